package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/imagetest-ec2/internal/cli"
	"github.com/chainguard-dev/imagetest-ec2/internal/o11y"
)

// these will be set by the goreleaser configuration
// to appropriate values for the compiled binary.
var version string = "dev"

func main() {
	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	shutdown, err := o11y.SetupTracing(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up tracing: %v\n", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "flushing traces: %v\n", err)
		}
	}()

	root := cli.Root()
	root.Version = version
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
