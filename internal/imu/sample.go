// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu carries inertial samples from a sensor, a simulation or a
// recording to the orientation estimator.
package imu

import (
	"time"

	"github.com/golang/geo/r3"
)

// Sample is one synchronised IMU reading in physical units.
type Sample struct {
	Time time.Time `json:"time"`

	Gyroscope     r3.Vector `json:"gyroscope"`     // °/s
	Accelerometer r3.Vector `json:"accelerometer"` // g
	Magnetometer  r3.Vector `json:"magnetometer"`  // µT

	HasMagnetometer bool `json:"has_magnetometer"`

	// DeltaTime is the time since the previous sample in seconds, 0 for the
	// first one.
	DeltaTime float64 `json:"delta_time"`

	Raw *IMURaw `json:"raw,omitempty"`
}

// Source is anything that can provide samples over time.
// Next returns io.EOF when a finite source is exhausted.
type Source interface {
	Next() (Sample, error)
}
