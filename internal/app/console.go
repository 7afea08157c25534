// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
)

// formatPose renders a pose the way every console prints it.
func formatPose(p orientation.Pose) string {
	return fmt.Sprintf("ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f", p.Roll, p.Pitch, p.Yaw)
}

// formatState adds the recovery flags and channel errors to formatPose.
func formatState(st orientation.State) string {
	flags := ""
	for _, f := range []struct {
		on   bool
		name string
	}{
		{st.Flags.Initialising, "INIT"},
		{st.Flags.AngularRateRecovery, "GYRO-SAT"},
		{st.Flags.AccelerationRecovery, "ACC-REC"},
		{st.Flags.MagneticRecovery, "MAG-REC"},
	} {
		if f.on {
			flags += " " + f.name
		}
	}
	return fmt.Sprintf("%s  accErr=%5.1f° magErr=%5.1f°%s",
		formatPose(st.Pose), st.Internal.AccelerationError, st.Internal.MagneticError, flags)
}

// RunMockConsole fuses the simulated IMU offline and prints the state every
// CONSOLE_LOG_INTERVAL. With fast set the simulation runs without waiting
// for wall time. samples limits the run; 0 runs until ctx is cancelled.
func RunMockConsole(ctx context.Context, cfg *config.Config, logger *slog.Logger, w io.Writer, fast bool, samples int) error {
	opts, err := estimatorOptions(cfg, mockGyroscopeRange)
	if err != nil {
		return err
	}
	estimator, err := orientation.NewEstimator(opts, logger)
	if err != nil {
		return err
	}

	src := imu.NewMockSource(cfg.SampleInterval())
	printEvery := max(1, cfg.ConsoleLogInterval/cfg.IMUSampleInterval)

	var tick <-chan time.Time
	if !fast {
		ticker := time.NewTicker(cfg.SampleInterval())
		defer ticker.Stop()
		tick = ticker.C
	}

	for n := 1; samples <= 0 || n <= samples; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		s, err := src.Next()
		if err != nil {
			return err
		}
		state := estimator.Update(s)
		if n%printEvery != 0 {
			continue
		}

		truth := orientation.PoseFromQuaternion(src.Truth())
		if _, err := fmt.Fprintf(w, "%s | truth %s\n", formatState(state), formatPose(truth)); err != nil {
			return err
		}
	}
	return nil
}
