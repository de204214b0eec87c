package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
)

// Options configures the process logger.
type Options struct {
	// Debug lowers the console level to debug.
	Debug bool
	// Console receives human readable output, os.Stderr when nil.
	Console io.Writer
	// Sinks receive every record in addition to the console. Nil entries
	// are ignored.
	Sinks []slog.Handler
}

// New builds the process logger, fanning records out to the console and to
// every sink.
func New(opts Options) *clog.Logger {
	w := opts.Console
	if w == nil {
		w = os.Stderr
	}
	level := charmlog.InfoLevel
	if opts.Debug {
		level = charmlog.DebugLevel
	}
	handlers := []slog.Handler{charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})}
	for _, sink := range opts.Sinks {
		if sink != nil {
			handlers = append(handlers, sink)
		}
	}
	return clog.New(slogmulti.Fanout(handlers...))
}

// Setup installs the process logger in 'ctx' and as the slog default.
func Setup(ctx context.Context, opts Options) context.Context {
	logger := New(opts)
	slog.SetDefault(&logger.Logger)
	return clog.WithLogger(ctx, logger)
}

// With returns a context whose logger carries 'args' on every record.
func With(ctx context.Context, args ...any) context.Context {
	logger := clog.FromContext(ctx).With(args...)
	return clog.WithLogger(ctx, logger)
}
