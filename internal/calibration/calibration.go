// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration applies precomputed sensor calibration to IMU samples.
// Estimating the coefficients is done elsewhere; this package only loads and
// applies them.
package calibration

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Inertial calibrates a gyroscope or accelerometer sample:
// misalignment · ((uncalibrated − offset) ⊙ sensitivity).
func Inertial(uncalibrated r3.Vector, misalignment mat.Matrix, sensitivity, offset r3.Vector) r3.Vector {
	v := uncalibrated.Sub(offset)
	return mulVec(misalignment, r3.Vector{X: v.X * sensitivity.X, Y: v.Y * sensitivity.Y, Z: v.Z * sensitivity.Z})
}

// Magnetic calibrates a magnetometer sample: softIron · (uncalibrated − hardIron).
func Magnetic(uncalibrated r3.Vector, softIron mat.Matrix, hardIron r3.Vector) r3.Vector {
	return mulVec(softIron, uncalibrated.Sub(hardIron))
}

func mulVec(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Calibrator applies one set of Coefficients sample by sample.
type Calibrator struct {
	gyroscopeMisalignment *mat.Dense
	gyroscopeSensitivity  r3.Vector
	gyroscopeOffset       r3.Vector

	accelerometerMisalignment *mat.Dense
	accelerometerSensitivity  r3.Vector
	accelerometerOffset       r3.Vector

	softIron *mat.Dense
	hardIron r3.Vector
}

// NewCalibrator validates c and prepares its matrices.
func NewCalibrator(c Coefficients) (*Calibrator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Calibrator{
		gyroscopeMisalignment:     dense(c.Gyroscope.Misalignment),
		gyroscopeSensitivity:      vector(c.Gyroscope.Sensitivity),
		gyroscopeOffset:           vector(c.Gyroscope.Offset),
		accelerometerMisalignment: dense(c.Accelerometer.Misalignment),
		accelerometerSensitivity:  vector(c.Accelerometer.Sensitivity),
		accelerometerOffset:       vector(c.Accelerometer.Offset),
		softIron:                  dense(c.Magnetometer.SoftIron),
		hardIron:                  vector(c.Magnetometer.HardIron),
	}, nil
}

func (c *Calibrator) Gyroscope(v r3.Vector) r3.Vector {
	return Inertial(v, c.gyroscopeMisalignment, c.gyroscopeSensitivity, c.gyroscopeOffset)
}

func (c *Calibrator) Accelerometer(v r3.Vector) r3.Vector {
	return Inertial(v, c.accelerometerMisalignment, c.accelerometerSensitivity, c.accelerometerOffset)
}

func (c *Calibrator) Magnetometer(v r3.Vector) r3.Vector {
	return Magnetic(v, c.softIron, c.hardIron)
}

func dense(rows [][]float64) *mat.Dense {
	data := make([]float64, 0, 9)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(3, 3, data)
}

func vector(v []float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func checkMatrix(name string, rows [][]float64) error {
	if len(rows) != 3 {
		return fmt.Errorf("%s: expected 3 rows, got %d", name, len(rows))
	}
	for i, r := range rows {
		if len(r) != 3 {
			return fmt.Errorf("%s: row %d has %d columns, expected 3", name, i, len(r))
		}
	}
	return nil
}

func checkVector(name string, v []float64) error {
	if len(v) != 3 {
		return fmt.Errorf("%s: expected 3 values, got %d", name, len(v))
	}
	return nil
}
