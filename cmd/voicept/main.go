package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/briangreenhill/voicept/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := logging.New(os.Stderr, level, "console")
	root := newRootCommand(newEnv(os.Stdout, logger))
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
