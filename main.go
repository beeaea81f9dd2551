package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/cli"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := cli.NewRootCommand(os.Stdout, os.Stderr, Version)
	if err := rc.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
