// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
)

// ReplayOutputHeader names the columns RunReplay writes.
var ReplayOutputHeader = []string{
	"time_s", "roll", "pitch", "yaw", "qw", "qx", "qy", "qz",
	"initialising", "angular_rate_recovery", "acceleration_recovery", "magnetic_recovery",
	"acceleration_error", "magnetic_error",
}

// RunReplay feeds a recorded CSV (see imu.ReplayHeader) through the
// estimator configured by cfg and writes one output row per sample.
// gyroFullScale is the range of the recording IMU in °/s.
func RunReplay(ctx context.Context, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer, gyroFullScale float64) error {
	opts, err := estimatorOptions(cfg, gyroFullScale)
	if err != nil {
		return err
	}
	estimator, err := orientation.NewEstimator(opts, logger)
	if err != nil {
		return err
	}
	source := orientation.NewSource(imu.NewReplaySource(in), estimator)

	w := csv.NewWriter(out)
	if err := w.Write(ReplayOutputHeader); err != nil {
		return err
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		state, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d samples: %w", n, err)
		}
		n++
		if err := w.Write(replayRecord(state)); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	logger.Info("replay complete", "samples", n, "heading", opts.Heading, "convention", opts.Settings.Convention)
	return nil
}

func replayRecord(st orientation.State) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	b := strconv.FormatBool
	q := st.Pose.Quaternion
	return []string{
		f(float64(st.Time.UnixNano()) / 1e9),
		f(st.Pose.Roll), f(st.Pose.Pitch), f(st.Pose.Yaw),
		f(q.W), f(q.X), f(q.Y), f(q.Z),
		b(st.Flags.Initialising), b(st.Flags.AngularRateRecovery),
		b(st.Flags.AccelerationRecovery), b(st.Flags.MagneticRecovery),
		f(st.Internal.AccelerationError), f(st.Internal.MagneticError),
	}
}
