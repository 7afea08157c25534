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

	Mock bool `help:"Use the simulated IMU instead of the MPU9250 (overrides IMU_MOCK)."`
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	if c.Mock {
		cfg.IMUMock = true
	}
	return app.RunInertialProducer(ctx, cfg, logger)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "imu_producer", "Fuse the IMU into an orientation estimate and publish it to MQTT.")
}
