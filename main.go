package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/manjain15/propwealth-scraper/cmd"
	"github.com/manjain15/propwealth-scraper/internal/observability"
)

func main() {
	// Cancel in-flight scrapes on SIGINT/SIGTERM so browser sessions are
	// released cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
