// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

// InternalStates is a read-only view of the rejection channels.
// Errors are in degrees; recovery triggers are ratios in [0, 1].
type InternalStates struct {
	AccelerationError           float64 `json:"acceleration_error"`
	AccelerometerIgnored        bool    `json:"accelerometer_ignored"`
	AccelerationRecoveryTrigger float64 `json:"acceleration_recovery_trigger"`
	MagneticError               float64 `json:"magnetic_error"`
	MagnetometerIgnored         bool    `json:"magnetometer_ignored"`
	MagneticRecoveryTrigger     float64 `json:"magnetic_recovery_trigger"`
}

// Flags are the independent state machine flags. Any combination may be set.
type Flags struct {
	Initialising         bool `json:"initialising"`
	AngularRateRecovery  bool `json:"angular_rate_recovery"`
	AccelerationRecovery bool `json:"acceleration_recovery"`
	MagneticRecovery     bool `json:"magnetic_recovery"`
}
