// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/relabs-tech/inertial_ahrs/internal/app"
	"github.com/relabs-tech/inertial_ahrs/internal/cli"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
)

type command struct {
	cli.Globals

	Input     string  `arg:"" help:"Recorded CSV (time_s,gx,gy,gz,ax,ay,az[,mx,my,mz])." type:"existingfile"`
	Output    string  `short:"o" help:"Write the result CSV here instead of stdout." type:"path"`
	GyroRange float64 `help:"Full scale of the recording gyroscope in °/s." default:"2000"`
}

func (c *command) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	in, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	out := os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return app.RunReplay(ctx, cfg, logger, in, out, c.GyroRange)
}

func main() {
	var c command
	cli.Run(&c, &c.Globals, "replay", "Run a recorded IMU CSV through the AHRS and write the orientation as CSV.")
}
