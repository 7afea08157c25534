// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/relabs-tech/inertial_ahrs/internal/calibration"
	"github.com/relabs-tech/inertial_ahrs/internal/fusion"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
)

// Options configure an Estimator.
type Options struct {
	Settings    fusion.Settings
	Alignment   calibration.Alignment
	Calibration calibration.Coefficients
	Heading     HeadingSource

	// SampleRate in Hz enables the gyroscope offset correction. 0 disables it.
	SampleRate int

	// Seed sets the orientation from the first usable sample (accelerometer
	// tilt plus compass or external heading) instead of converging from
	// identity.
	Seed bool
}

// DefaultOptions returns options for an uncalibrated IMU.
func DefaultOptions() Options {
	return Options{
		Settings:    fusion.DefaultSettings(),
		Alignment:   calibration.IdentityAlignment,
		Calibration: calibration.Identity(),
		Heading:     HeadingMagnetometer,
	}
}

// Estimator runs the sample pipeline: axis alignment, calibration, gyroscope
// offset correction and AHRS fusion. It is safe for concurrent use.
type Estimator struct {
	mu sync.Mutex

	ahrs       *fusion.AHRS
	alignment  calibration.Alignment
	calibrator *calibration.Calibrator
	offset     *calibration.Offset
	heading    HeadingSource
	seed       bool
	seeded     bool

	external    float64
	hasExternal bool

	state  State
	logger *slog.Logger
}

// NewEstimator validates opts and returns a ready Estimator.
func NewEstimator(opts Options, logger *slog.Logger) (*Estimator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	calibrator, err := calibration.NewCalibrator(opts.Calibration)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	heading, err := ParseHeadingSource(string(opts.Heading))
	if err != nil {
		return nil, err
	}
	if opts.Alignment == (calibration.Alignment{}) {
		opts.Alignment = calibration.IdentityAlignment
	}

	e := &Estimator{
		ahrs:       fusion.NewAHRS(),
		alignment:  opts.Alignment,
		calibrator: calibrator,
		heading:    heading,
		seed:       opts.Seed,
		logger:     logger,
	}
	if opts.SampleRate > 0 {
		e.offset = calibration.NewOffset(opts.SampleRate)
	}
	e.ahrs.SetSettings(opts.Settings)
	e.ahrs.Reset()
	e.state = e.snapshot(imu.Sample{})

	logger.Info("orientation estimator ready",
		"convention", e.ahrs.Settings().Convention,
		"gain", e.ahrs.Settings().Gain,
		"heading", heading,
		"alignment", opts.Alignment,
		"offset_correction", e.offset != nil)
	return e, nil
}

// SetExternalHeading records the heading (degrees) used in HeadingExternal
// mode. It stays in force until replaced or cleared.
func (e *Estimator) SetExternalHeading(heading float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.external = heading
	e.hasExternal = true
}

// ClearExternalHeading stops external heading correction; yaw drifts until a
// new heading arrives.
func (e *Estimator) ClearExternalHeading() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasExternal = false
}

// Update runs one sample through the pipeline and returns the new state.
func (e *Estimator) Update(s imu.Sample) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	gyroscope := e.calibrator.Gyroscope(e.alignment.Apply(s.Gyroscope))
	accelerometer := e.calibrator.Accelerometer(e.alignment.Apply(s.Accelerometer))
	magnetometer := e.calibrator.Magnetometer(e.alignment.Apply(s.Magnetometer))
	if e.offset != nil {
		gyroscope = e.offset.Update(gyroscope)
	}

	if e.seed && !e.seeded {
		e.seedFrom(accelerometer, magnetometer, s.HasMagnetometer)
	}

	wasRecovering := e.ahrs.Flags().AngularRateRecovery
	switch {
	case e.heading == HeadingMagnetometer && s.HasMagnetometer:
		e.ahrs.Update(gyroscope, accelerometer, magnetometer, s.DeltaTime)
	case e.heading == HeadingExternal && e.hasExternal:
		e.ahrs.UpdateExternalHeading(gyroscope, accelerometer, e.external, s.DeltaTime)
	default:
		e.ahrs.UpdateNoMagnetometer(gyroscope, accelerometer, s.DeltaTime)
	}
	if flags := e.ahrs.Flags(); flags.AngularRateRecovery && !wasRecovering {
		e.logger.Warn("gyroscope saturated, reconverging", "gyroscope", gyroscope)
	}

	e.state = e.snapshot(s)
	return e.state
}

func (e *Estimator) seedFrom(accelerometer, magnetometer r3.Vector, hasMagnetometer bool) {
	if accelerometer.Norm2() == 0 {
		return
	}
	convention := e.ahrs.Settings().Convention
	roll, pitch := TiltFromAccelerometer(convention, accelerometer)

	var yaw float64
	switch e.heading {
	case HeadingMagnetometer:
		if !hasMagnetometer {
			return
		}
		yaw = fusion.CompassHeading(convention, accelerometer, magnetometer)
	case HeadingExternal:
		if !e.hasExternal {
			return
		}
		yaw = e.external
	}

	e.ahrs.SetQuaternion(fusion.EulerToQuaternion(fusion.Euler{Roll: roll, Pitch: pitch, Yaw: yaw}))
	e.seeded = true
	e.logger.Debug("orientation seeded", "roll", roll, "pitch", pitch, "yaw", yaw)
}

func (e *Estimator) snapshot(s imu.Sample) State {
	state := State{
		Time:               s.Time,
		Pose:               PoseFromQuaternion(e.ahrs.Quaternion()),
		Gravity:            e.ahrs.Gravity(),
		LinearAcceleration: e.ahrs.LinearAcceleration(),
		EarthAcceleration:  e.ahrs.EarthAcceleration(),
		Flags:              e.ahrs.Flags(),
		Internal:           e.ahrs.InternalStates(),
		Heading:            e.heading,
	}
	if e.offset != nil {
		state.GyroscopeOffset = e.offset.Value()
	}
	return state
}

// State returns the state after the last Update.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the fusion settings in force.
func (e *Estimator) Settings() fusion.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ahrs.Settings()
}

// Reset restarts convergence from identity. Calibration, settings and the
// external heading are kept; the gyroscope offset estimate is cleared.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ahrs.Reset()
	if e.offset != nil {
		e.offset.Reset()
	}
	e.seeded = false
	e.state = e.snapshot(imu.Sample{})
	e.logger.Info("orientation estimator reset")
}

// sampleSource adapts an imu.Source into an orientation Source.
type sampleSource struct {
	samples   imu.Source
	estimator *Estimator
}

// NewSource returns a Source that feeds every sample of samples through
// estimator.
func NewSource(samples imu.Source, estimator *Estimator) Source {
	return &sampleSource{samples: samples, estimator: estimator}
}

func (s *sampleSource) Next() (State, error) {
	sample, err := s.samples.Next()
	if err != nil {
		return State{}, err
	}
	return s.estimator.Update(sample), nil
}
