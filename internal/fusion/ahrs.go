// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion estimates the orientation of a rigid body relative to the
// Earth from gyroscope, accelerometer and magnetometer samples.
//
// The estimator is a complementary filter: the gyroscope is integrated and
// the error between the measured and predicted gravity and magnetic
// directions is fed back as an angular rate correction. After a reset the
// feedback gain starts high and ramps down to the configured gain, and each
// reference channel can reject outliers for a bounded number of samples
// before it is forced back into use.
//
// An AHRS is not safe for concurrent use.
package fusion

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const (
	// initialGain is the feedback gain right after a reset.
	initialGain = 10.0

	// rampDuration is the time in seconds the gain takes to ramp from
	// initialGain down to Settings.Gain.
	rampDuration = 3.0
)

// AHRS is the orientation estimator state. Create one with NewAHRS, or call
// Initialise on a zero value before use.
type AHRS struct {
	settings      Settings
	quaternion    quat.Number // body to Earth, always unit norm
	accelerometer r3.Vector   // last accelerometer sample, in g

	initialising   bool
	rampedGain     float64
	rampedGainStep float64 // gain per second

	angularRateRecovery bool

	acceleration channel
	magnetic     channel
}

// NewAHRS returns an initialised AHRS using DefaultSettings.
func NewAHRS() *AHRS {
	a := &AHRS{}
	a.Initialise()
	return a
}

// Initialise applies DefaultSettings and resets the state.
func (a *AHRS) Initialise() {
	a.settings = DefaultSettings()
	a.Reset()
}

// Reset returns the estimator to identity with the gain ramp restarted.
// Settings are kept.
func (a *AHRS) Reset() {
	a.quaternion = Identity
	a.accelerometer = r3.Vector{}
	a.initialising = true
	a.rampedGain = a.settings.initialGain()
	a.rampedGainStep = (a.rampedGain - a.settings.Gain) / rampDuration
	a.angularRateRecovery = false
	a.acceleration.reset(a.settings.RecoveryTriggerPeriod)
	a.magnetic.reset(a.settings.RecoveryTriggerPeriod)
}

// SetSettings validates and applies s. Out-of-range values are clamped.
// Convergence state is kept; the new values apply from the next update.
// During initialisation the ramp continues from the current gain toward the
// new Gain. Raising Gain to or above the ramped gain ends initialisation.
func (a *AHRS) SetSettings(s Settings) {
	a.settings = s.normalized()
	a.acceleration.setTimeout(a.settings.RecoveryTriggerPeriod)
	a.magnetic.setTimeout(a.settings.RecoveryTriggerPeriod)
	a.rampedGainStep = (a.settings.initialGain() - a.settings.Gain) / rampDuration
	if a.initialising && a.settings.Gain < a.rampedGain {
		a.rampedGain = min(a.rampedGain, a.settings.initialGain())
		return
	}
	a.initialising = false
	a.rampedGain = a.settings.Gain
}

// Settings returns the validated settings in force.
func (a *AHRS) Settings() Settings {
	return a.settings
}

// Update fuses one gyroscope (°/s), accelerometer (g) and magnetometer
// (any consistent unit) sample taken deltaTime seconds after the previous one.
func (a *AHRS) Update(gyroscope, accelerometer, magnetometer r3.Vector, deltaTime float64) {
	a.update(gyroscope, accelerometer, magnetometer, true, deltaTime)
}

// UpdateNoMagnetometer fuses a sample without a magnetometer. Yaw is not
// corrected and drifts with the gyroscope.
func (a *AHRS) UpdateNoMagnetometer(gyroscope, accelerometer r3.Vector, deltaTime float64) {
	a.update(gyroscope, accelerometer, r3.Vector{}, false, deltaTime)
}

// UpdateExternalHeading fuses a sample using heading (degrees) in place of a
// magnetometer. Only yaw is corrected by the heading.
func (a *AHRS) UpdateExternalHeading(gyroscope, accelerometer r3.Vector, heading, deltaTime float64) {
	magnetometer := rotateInverse(withHeading(a.quaternion, heading), a.settings.Convention.north())
	a.update(gyroscope, accelerometer, magnetometer, true, deltaTime)
}

func (a *AHRS) update(gyroscope, accelerometer, magnetometer r3.Vector, useMagnetometer bool, deltaTime float64) {
	if !(deltaTime > 0) {
		deltaTime = 0
	}
	a.accelerometer = accelerometer

	// Reinitialise if gyroscope range exceeded
	a.angularRateRecovery = a.gyroscopeSaturated(gyroscope)
	if a.angularRateRecovery {
		a.initialising = true
		a.rampedGain = a.settings.initialGain()
	}

	// Ramp down gain during initialisation
	if a.initialising {
		a.rampedGain -= a.rampedGainStep * deltaTime
		if a.rampedGain <= a.settings.Gain || a.settings.Gain == 0 {
			a.rampedGain = a.settings.Gain
			a.initialising = false
		}
	}

	rejecting := a.settings.Gain > 0
	up := rotateInverse(a.quaternion, a.settings.Convention.up())

	var halfAccelerometerFeedback r3.Vector
	if accelerometer.Norm2() > 0 {
		halfAccelerometerFeedback = a.acceleration.evaluate(
			feedback(accelerometer.Normalize(), up),
			a.settings.AccelerationRejection, rejecting)
	} else {
		a.acceleration.skip(false)
	}

	var halfMagnetometerFeedback r3.Vector
	switch west := up.Cross(magnetometer); {
	case !useMagnetometer:
		a.magnetic.skip(true)
	case west.Norm2() > 0:
		predictedWest := rotateInverse(a.quaternion, a.settings.Convention.west())
		halfMagnetometerFeedback = a.magnetic.evaluate(
			feedback(west.Normalize(), predictedWest),
			a.settings.MagneticRejection, rejecting)
	default:
		// zero magnetometer, or one parallel to gravity
		a.magnetic.skip(false)
	}

	if deltaTime == 0 {
		return
	}

	halfRate := gyroscope.Mul(degreesToRadians(0.5)).
		Add(halfAccelerometerFeedback.Add(halfMagnetometerFeedback).Mul(a.rampedGain))
	step := quat.Exp(pure(halfRate.Mul(deltaTime)))
	a.quaternion = normalizeQuaternion(quat.Mul(a.quaternion, step))
}

func (a *AHRS) gyroscopeSaturated(gyroscope r3.Vector) bool {
	r := a.settings.GyroscopeRange
	if r <= 0 {
		return false
	}
	return math.Abs(gyroscope.X) > r || math.Abs(gyroscope.Y) > r || math.Abs(gyroscope.Z) > r
}

// Quaternion returns the body-to-Earth orientation.
func (a *AHRS) Quaternion() quat.Number {
	return a.quaternion
}

// SetQuaternion overwrites the orientation. q is normalised; a zero q sets
// identity. Convergence state is kept.
func (a *AHRS) SetQuaternion(q quat.Number) {
	a.quaternion = normalizeQuaternion(q)
}

// SetHeading rotates the orientation about the Earth vertical so that its yaw
// equals heading (degrees). Roll and pitch are preserved.
func (a *AHRS) SetHeading(heading float64) {
	a.quaternion = withHeading(a.quaternion, heading)
}

// Gravity returns the accelerometer reading (g) the current orientation
// predicts for a body at rest, in the body frame.
func (a *AHRS) Gravity() r3.Vector {
	return rotateInverse(a.quaternion, a.settings.Convention.up())
}

// LinearAcceleration returns the last accelerometer sample minus Gravity, in
// the body frame (g).
func (a *AHRS) LinearAcceleration() r3.Vector {
	return a.accelerometer.Sub(a.Gravity())
}

// EarthAcceleration returns LinearAcceleration in the Earth frame (g).
func (a *AHRS) EarthAcceleration() r3.Vector {
	return rotate(a.quaternion, a.LinearAcceleration())
}

// InternalStates reports the channel errors and recovery progress.
func (a *AHRS) InternalStates() InternalStates {
	return InternalStates{
		AccelerationError:           a.acceleration.errorDegrees(),
		AccelerometerIgnored:        a.acceleration.ignored,
		AccelerationRecoveryTrigger: a.acceleration.triggerRatio(),
		MagneticError:               a.magnetic.errorDegrees(),
		MagnetometerIgnored:         a.magnetic.ignored,
		MagneticRecoveryTrigger:     a.magnetic.triggerRatio(),
	}
}

// Flags reports the state machine flags.
func (a *AHRS) Flags() Flags {
	return Flags{
		Initialising:         a.initialising,
		AngularRateRecovery:  a.angularRateRecovery,
		AccelerationRecovery: a.acceleration.recoveryTrigger > 0,
		MagneticRecovery:     a.magnetic.recoveryTrigger > 0,
	}
}
