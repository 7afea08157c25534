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

	Port string `help:"Serial port (overrides GPS_SERIAL_PORT)."`
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	if c.Port != "" {
		cfg.GPSSerialPort = c.Port
	}
	return app.RunGPSProducer(ctx, cfg, logger)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "gps_producer", "Read NMEA from the GPS serial port and publish fixes to MQTT.")
}
