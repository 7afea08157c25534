// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cli holds the flags every command shares and the kong bootstrap
// that turns them into a logger, a configuration and a signal-aware context.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/log"
)

// Log configures the process logger.
type Log struct {
	Level string `help:"Log level: trace, debug, info, warn, error." default:"info" enum:"trace,debug,info,warn,error" env:"INERTIAL_LOG_LEVEL"`
	File  string `help:"Also write logs to this file." type:"path" env:"INERTIAL_LOG_FILE"`
}

// Globals are embedded in every command.
type Globals struct {
	Config string `help:"Path to the KEY=VALUE configuration file. Empty uses built-in defaults." default:"./inertial_config.txt" env:"INERTIAL_CONFIG"`
	Log    Log    `embed:"" prefix:"log-"`
}

// loadConfig loads and publishes the configuration file, or returns the
// defaults when no file is named.
func (g *Globals) loadConfig() (*config.Config, error) {
	if g.Config == "" {
		return config.Default(), nil
	}
	if err := config.InitGlobal(g.Config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config.Get(), nil
}

// Run parses the command line into cmd, sets up logging and configuration
// and calls cmd's Run method. cmd must embed Globals. Run binds
// *slog.Logger, *config.Config and a context.Context cancelled on SIGINT or
// SIGTERM.
func Run(cmd any, globals *Globals, name, description string) {
	ctx := kong.Parse(cmd,
		kong.Name(name),
		kong.Description(description),
		kong.UsageOnError(),
	)

	logger, closers, err := log.SetupLogger(globals.Log.Level, globals.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	code := run(ctx, globals, logger)
	closeAll(closers)
	os.Exit(code)
}

func run(ctx *kong.Context, globals *Globals, logger *slog.Logger) int {
	cfg, err := globals.loadConfig()
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Bind(logger, cfg)
	ctx.BindTo(sigCtx, (*context.Context)(nil))
	if err := ctx.Run(); err != nil {
		logger.Error("fatal", "error", err)
		return 1
	}
	return 0
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
