// Package main is the entry point for the shiptrack server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (config file + env vars)
//  2. Create dependencies (logger, database, API clients)
//  3. Start the application and wait for a shutdown signal
//
// All actual logic lives in internal/ packages. cmd/shipctl is a second
// entry point that runs the same jobs from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/shiptrack/internal/config"
	"github.com/sakif/shiptrack/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shiptrack: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. READ CONFIGURATION ===
	// -config wins over CONFIG_PATH; with neither, defaults + env vars only.
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// === 2. SET UP LOGGING ===
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	// === 3. SHUTDOWN SIGNAL ===
	// ctx is cancelled on Ctrl+C or SIGTERM; Server.Start returns once the
	// HTTP server and the scheduler have stopped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === 4. WIRE AND START ===
	deps, err := server.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.DB.Close()

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
