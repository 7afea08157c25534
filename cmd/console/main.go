// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/relabs-tech/inertial_ahrs/internal/app"
	"github.com/relabs-tech/inertial_ahrs/internal/cli"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
)

type command struct {
	cli.Globals

	Fast    bool `help:"Run the simulation without waiting for wall time."`
	Samples int  `help:"Stop after this many samples (0 runs until interrupted)."`
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	return app.RunMockConsole(ctx, cfg, logger, os.Stdout, c.Fast, c.Samples)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "console", "Fuse the simulated IMU offline and print the orientation.")
}
