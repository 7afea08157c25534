// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// InertialCoefficients calibrate a gyroscope or an accelerometer.
type InertialCoefficients struct {
	Misalignment [][]float64 `json:"misalignment" yaml:"misalignment" toml:"misalignment"`
	Sensitivity  []float64   `json:"sensitivity" yaml:"sensitivity" toml:"sensitivity"`
	Offset       []float64   `json:"offset" yaml:"offset" toml:"offset"`
}

// MagneticCoefficients calibrate a magnetometer.
type MagneticCoefficients struct {
	SoftIron [][]float64 `json:"soft_iron" yaml:"soft_iron" toml:"soft_iron"`
	HardIron []float64   `json:"hard_iron" yaml:"hard_iron" toml:"hard_iron"`
}

// Coefficients is the calibration of one IMU, as stored on disk.
type Coefficients struct {
	Gyroscope     InertialCoefficients `json:"gyroscope" yaml:"gyroscope" toml:"gyroscope"`
	Accelerometer InertialCoefficients `json:"accelerometer" yaml:"accelerometer" toml:"accelerometer"`
	Magnetometer  MagneticCoefficients `json:"magnetometer" yaml:"magnetometer" toml:"magnetometer"`
}

// Identity returns coefficients that leave samples unchanged.
func Identity() Coefficients {
	return Coefficients{
		Gyroscope: InertialCoefficients{
			Misalignment: identityMatrix(),
			Sensitivity:  []float64{1, 1, 1},
			Offset:       []float64{0, 0, 0},
		},
		Accelerometer: InertialCoefficients{
			Misalignment: identityMatrix(),
			Sensitivity:  []float64{1, 1, 1},
			Offset:       []float64{0, 0, 0},
		},
		Magnetometer: MagneticCoefficients{
			SoftIron: identityMatrix(),
			HardIron: []float64{0, 0, 0},
		},
	}
}

func identityMatrix() [][]float64 {
	return [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Validate checks every matrix is 3×3 and every vector has 3 elements.
func (c Coefficients) Validate() error {
	return errors.Join(
		checkMatrix("gyroscope misalignment", c.Gyroscope.Misalignment),
		checkVector("gyroscope sensitivity", c.Gyroscope.Sensitivity),
		checkVector("gyroscope offset", c.Gyroscope.Offset),
		checkMatrix("accelerometer misalignment", c.Accelerometer.Misalignment),
		checkVector("accelerometer sensitivity", c.Accelerometer.Sensitivity),
		checkVector("accelerometer offset", c.Accelerometer.Offset),
		checkMatrix("magnetometer soft iron", c.Magnetometer.SoftIron),
		checkVector("magnetometer hard iron", c.Magnetometer.HardIron),
	)
}

// Load reads coefficients from path. The format is picked from the file
// extension: .json, .yaml/.yml or .toml. An empty path yields Identity.
func Load(path string) (Coefficients, error) {
	if path == "" {
		return Identity(), nil
	}
	format, err := formatOf(path)
	if err != nil {
		return Coefficients{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Coefficients{}, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var c Coefficients
	switch format {
	case "json":
		err = json.Unmarshal(data, &c)
	case "yaml":
		err = yaml.Unmarshal(data, &c)
	case "toml":
		err = toml.Unmarshal(data, &c)
	}
	if err != nil {
		return Coefficients{}, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Coefficients{}, fmt.Errorf("invalid calibration file %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path in the format given by its extension.
func (c Coefficients) Save(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(c, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(c)
	case "toml":
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration file: %w", err)
	}
	return nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("unsupported calibration file format: %s", path)
	}
}
