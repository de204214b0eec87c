package log

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	"github.com/gosimple/slug"
	slogmulti "github.com/samber/slog-multi"
)

// SetupEnvironmentLogging tees the logger in 'ctx' to a logfmt file for the
// environment 'name' under 'logsDirectory'. The file receives debug records
// regardless of the console level.
func SetupEnvironmentLogging(ctx context.Context, logsDirectory, name string) (context.Context, func()) {
	if logsDirectory == "" {
		return ctx, func() {}
	}

	if err := os.MkdirAll(logsDirectory, 0o755); err != nil {
		clog.WarnContext(ctx, "failed to create log directory", "path", logsDirectory, "error", err.Error())
		return ctx, func() {}
	}

	logPath := filepath.Join(logsDirectory, fmt.Sprintf("%s.log", slug.Make(name)))
	// #nosec G304
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		clog.WarnContext(ctx, "failed to create environment log file", "path", logPath, "error", err.Error())
		return ctx, func() {}
	}

	fileHandler := charmlog.NewWithOptions(logFile, charmlog.Options{
		Level:           charmlog.DebugLevel,
		Formatter:       charmlog.LogfmtFormatter,
		ReportTimestamp: true,
	})

	handler := slogmulti.Fanout(clog.FromContext(ctx).Handler(), fileHandler)

	clog.InfoContext(ctx, "logging environment output to file", "path", logPath)
	ctx = clog.WithLogger(ctx, clog.New(handler))

	return ctx, func() {
		if err := logFile.Close(); err != nil {
			clog.WarnContext(ctx, "failed to close log file", "path", logPath, "error", err.Error())
		}
	}
}
