package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version will be set at build time
var Version = "development"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Shutting down gracefully...", "signal", sig)
		cancel()
	}()

	app := &cli.App{
		Name:     "withdrawal-relayer",
		Usage:    "Prove and finalize OP stack withdrawals on L1",
		Version:  Version,
		Flags:    globalFlags,
		Before:   before,
		Commands: commands,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
