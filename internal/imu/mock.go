// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// MockSource simulates a rigid body spinning at a constant body rate from a
// tilted start, with an ideal accelerometer and magnetometer. Axes are NWU.
// Samples are generated on a fixed clock, not wall time, so runs repeat
// exactly.
type MockSource struct {
	period time.Duration
	n      int
	epoch  time.Time

	start quat.Number
	rate  r3.Vector // body rate, °/s
	field r3.Vector // Earth field, µT

	truth quat.Number
}

// NewMockSource creates a mock source producing one sample per period.
func NewMockSource(period time.Duration) *MockSource {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	// roll 10°, pitch -5°
	r, p := 10*math.Pi/360, -5*math.Pi/360
	start := quat.Mul(
		quat.Number{Real: math.Cos(p), Jmag: math.Sin(p)},
		quat.Number{Real: math.Cos(r), Imag: math.Sin(r)},
	)
	return &MockSource{
		period: period,
		epoch:  time.Now(),
		start:  start,
		rate:   r3.Vector{X: 0, Y: 0, Z: 20},
		field:  r3.Vector{X: 20, Y: 0, Z: -45}, // 66° dip
		truth:  start,
	}
}

// Next returns the next simulated sample. It never fails.
func (m *MockSource) Next() (Sample, error) {
	t := m.period.Seconds() * float64(m.n)
	half := m.rate.Mul(math.Pi / 360 * t)
	m.truth = quat.Mul(m.start, quat.Exp(quat.Number{Imag: half.X, Jmag: half.Y, Kmag: half.Z}))

	var dt float64
	if m.n > 0 {
		dt = m.period.Seconds()
	}
	s := Sample{
		Time:            m.epoch.Add(time.Duration(m.n) * m.period),
		Gyroscope:       m.rate,
		Accelerometer:   toBody(m.truth, r3.Vector{X: 0, Y: 0, Z: 1}),
		Magnetometer:    toBody(m.truth, m.field),
		HasMagnetometer: true,
		DeltaTime:       dt,
	}
	m.n++
	return s, nil
}

// Truth is the simulated orientation of the last sample returned.
func (m *MockSource) Truth() quat.Number {
	return m.truth
}

// toBody rotates an Earth-frame vector into the body frame of q.
func toBody(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(quat.Conj(q), quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), q)
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}
