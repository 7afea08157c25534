// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestInertial(t *testing.T) {
	misalignment := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 0, 0,
		0, 0, 2,
	})
	got := Inertial(r3.Vector{X: 3, Y: 5, Z: 7}, misalignment,
		r3.Vector{X: 2, Y: 3, Z: 0.5}, r3.Vector{X: 1, Y: 1, Z: 1})

	// (u - o) ⊙ s = (4, 12, 3)
	assert.Equal(t, r3.Vector{X: 12, Y: 4, Z: 6}, got)
}

func TestMagnetic(t *testing.T) {
	softIron := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 1, 0,
		0, 0, 0.5,
	})
	got := Magnetic(r3.Vector{X: 10, Y: 20, Z: 30}, softIron, r3.Vector{X: 5, Y: 5, Z: 10})
	assert.Equal(t, r3.Vector{X: 10, Y: 15, Z: 10}, got)
}

func TestIdentityCalibrator(t *testing.T) {
	c, err := NewCalibrator(Identity())
	require.NoError(t, err)

	v := r3.Vector{X: 1.5, Y: -2, Z: 9.25}
	assert.Equal(t, v, c.Gyroscope(v))
	assert.Equal(t, v, c.Accelerometer(v))
	assert.Equal(t, v, c.Magnetometer(v))
}

func TestCalibratorRejectsBadShapes(t *testing.T) {
	c := Identity()
	c.Gyroscope.Misalignment = [][]float64{{1, 0, 0}, {0, 1}}
	c.Magnetometer.HardIron = []float64{1}

	_, err := NewCalibrator(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gyroscope misalignment")
	assert.Contains(t, err.Error(), "magnetometer hard iron")
}

func sampleCoefficients() Coefficients {
	c := Identity()
	c.Gyroscope.Offset = []float64{0.5, -0.25, 1}
	c.Accelerometer.Sensitivity = []float64{1.01, 0.99, 1}
	c.Magnetometer.SoftIron = [][]float64{{1.1, 0.02, 0}, {0.02, 0.95, 0}, {0, 0, 1}}
	c.Magnetometer.HardIron = []float64{12.5, -3, 40}
	return c
}

func TestSaveLoadFormats(t *testing.T) {
	for _, name := range []string{"cal.json", "cal.yaml", "cal.yml", "cal.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleCoefficients()

			require.NoError(t, want.Save(path))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imu.yaml")
	doc := `
gyroscope:
  misalignment: [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
  sensitivity: [1, 1, 1]
  offset: [0.1, 0.2, 0.3]
accelerometer:
  misalignment: [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
  sensitivity: [1, 1, 1]
  offset: [0, 0, 0]
magnetometer:
  soft_iron: [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
  hard_iron: [10, 20, 30]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, c.Gyroscope.Offset)
	assert.Equal(t, []float64{10, 20, 30}, c.Magnetometer.HardIron)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "cal.ini"))
	assert.ErrorContains(t, err, "unsupported calibration file format")

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"gyroscope":{"offset":[1,2,3]}}`), 0o644))
	_, err = Load(partial)
	assert.ErrorContains(t, err, "invalid calibration file")
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Identity(), c)
}
