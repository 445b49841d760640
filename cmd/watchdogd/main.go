// Package main provides the entry point for the file monitoring daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"watchdog/internal/config"
	"watchdog/internal/console"
	"watchdog/internal/daemon"
	"watchdog/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// An absent config file is fine: the daemon runs with defaults.
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	var cfg *config.Configuration
	var err error
	if configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadOrCreate(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	source, err := watch.NewFsnotifySource()
	if err != nil {
		return fmt.Errorf("failed to initialize watch source: %w", err)
	}

	consCfg := console.DefaultConfig()
	consCfg.Verbose = cfg.Verbose
	cons := console.New(consCfg)
	logger := log.New(os.Stderr, "[watchdogd] ", log.LstdFlags)

	d, err := daemon.New(cfg, source, cons, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
