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
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	return app.RunConsoleMQTT(ctx, cfg, logger, os.Stdout)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "console_mqtt", "Print the orientation, IMU and GPS messages published on MQTT.")
}
