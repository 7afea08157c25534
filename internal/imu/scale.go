// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
)

// MPU9250 full-scale settings, indexed by the range register value.
var (
	accelRangesG  = []float64{2, 4, 8, 16}
	gyroRangesDPS = []float64{250, 500, 1000, 2000}
	accelLSBPerG  = []float64{16384, 8192, 4096, 2048}
	gyroLSBPerDPS = []float64{131, 65.5, 32.8, 16.4}
)

// magnetometer counts as stored in IMURaw
const magMicroTeslaLSB = 0.1

// Scale converts raw counts into physical units.
type Scale struct {
	AccelLSBPerG    float64
	GyroLSBPerDPS   float64
	MagMicroTesla   float64 // µT per count
	GyroscopeRange  float64 // °/s full scale
	AccelerationMax float64 // g full scale
}

// ScaleForRanges returns the scale for the MPU9250 accelerometer range index
// (0..3 for ±2/4/8/16 g) and gyroscope range index (0..3 for ±250..2000 °/s).
func ScaleForRanges(accelRange, gyroRange byte) (Scale, error) {
	if int(accelRange) >= len(accelRangesG) {
		return Scale{}, fmt.Errorf("invalid accelerometer range %d (must be 0-3)", accelRange)
	}
	if int(gyroRange) >= len(gyroRangesDPS) {
		return Scale{}, fmt.Errorf("invalid gyroscope range %d (must be 0-3)", gyroRange)
	}
	return Scale{
		AccelLSBPerG:    accelLSBPerG[accelRange],
		GyroLSBPerDPS:   gyroLSBPerDPS[gyroRange],
		MagMicroTesla:   magMicroTeslaLSB,
		GyroscopeRange:  gyroRangesDPS[gyroRange],
		AccelerationMax: accelRangesG[accelRange],
	}, nil
}

// Convert scales a raw sample. dt is copied into the result.
func (s Scale) Convert(raw IMURaw, dt float64) Sample {
	return Sample{
		Gyroscope: r3.Vector{
			X: float64(raw.Gx) / s.GyroLSBPerDPS,
			Y: float64(raw.Gy) / s.GyroLSBPerDPS,
			Z: float64(raw.Gz) / s.GyroLSBPerDPS,
		},
		Accelerometer: r3.Vector{
			X: float64(raw.Ax) / s.AccelLSBPerG,
			Y: float64(raw.Ay) / s.AccelLSBPerG,
			Z: float64(raw.Az) / s.AccelLSBPerG,
		},
		Magnetometer: r3.Vector{
			X: float64(raw.Mx) * s.MagMicroTesla,
			Y: float64(raw.My) * s.MagMicroTesla,
			Z: float64(raw.Mz) * s.MagMicroTesla,
		},
		HasMagnetometer: raw.HasMagnetometer(),
		DeltaTime:       dt,
		Raw:             &raw,
	}
}

// scaledSource turns a RawSource into a Source, timing samples with now.
type scaledSource struct {
	raw   RawSource
	scale Scale
	now   func() time.Time
	last  time.Time
}

// NewScaledSource wraps raw so that it yields samples in physical units.
// DeltaTime is measured between successive reads.
func NewScaledSource(raw RawSource, scale Scale) Source {
	return &scaledSource{raw: raw, scale: scale, now: time.Now}
}

func (s *scaledSource) Next() (Sample, error) {
	raw, err := s.raw.ReadRaw()
	if err != nil {
		return Sample{}, err
	}
	t := s.now()
	var dt float64
	if !s.last.IsZero() {
		dt = t.Sub(s.last).Seconds()
	}
	s.last = t

	sample := s.scale.Convert(raw, dt)
	sample.Time = t
	return sample, nil
}
