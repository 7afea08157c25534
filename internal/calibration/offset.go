// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	offsetCutoffFrequency = 0.02 // Hz
	offsetTimeout         = 5    // seconds
	offsetThreshold       = 3.0  // degrees per second
)

// Offset tracks the gyroscope bias at run time. Once every axis has stayed
// below the stationary threshold for the timeout, the corrected output is
// low-pass filtered into the bias estimate.
type Offset struct {
	filterCoefficient float64
	timeout           int
	timer             int
	gyroscopeOffset   r3.Vector
}

// NewOffset returns an Offset for a gyroscope sampled at sampleRate Hz.
func NewOffset(sampleRate int) *Offset {
	sampleRate = max(sampleRate, 1)
	return &Offset{
		filterCoefficient: 2 * math.Pi * offsetCutoffFrequency / float64(sampleRate),
		timeout:           offsetTimeout * sampleRate,
	}
}

// Update removes the current bias estimate from gyroscope (°/s) and returns
// the corrected sample.
func (o *Offset) Update(gyroscope r3.Vector) r3.Vector {
	gyroscope = gyroscope.Sub(o.gyroscopeOffset)

	if math.Abs(gyroscope.X) > offsetThreshold ||
		math.Abs(gyroscope.Y) > offsetThreshold ||
		math.Abs(gyroscope.Z) > offsetThreshold {
		o.timer = 0
		return gyroscope
	}

	if o.timer < o.timeout {
		o.timer++
		return gyroscope
	}

	o.gyroscopeOffset = o.gyroscopeOffset.Add(gyroscope.Mul(o.filterCoefficient))
	return gyroscope
}

// Value is the current bias estimate in °/s.
func (o *Offset) Value() r3.Vector {
	return o.gyroscopeOffset
}

// Reset forgets the bias estimate.
func (o *Offset) Reset() {
	o.timer = 0
	o.gyroscopeOffset = r3.Vector{}
}
