// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log/slog"

	"github.com/relabs-tech/inertial_ahrs/internal/app"
	"github.com/relabs-tech/inertial_ahrs/internal/cli"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
)

type command struct {
	cli.Globals
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	return app.RunWeb(ctx, cfg, logger)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "web", "Serve the published orientation over HTTP and websocket.")
}
