// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

// Settings holds the AHRS tuning parameters.
//
// Angles are in degrees, GyroscopeRange in degrees per second and
// RecoveryTriggerPeriod in samples. A zero GyroscopeRange disables the
// saturation check; a zero rejection disables rejection on that channel; a
// zero RecoveryTriggerPeriod disables rejection on both channels.
type Settings struct {
	Convention            Convention
	Gain                  float64
	GyroscopeRange        float64
	AccelerationRejection float64
	MagneticRejection     float64
	RecoveryTriggerPeriod int
}

// DefaultSettings returns the settings applied by Initialise.
func DefaultSettings() Settings {
	return Settings{
		Convention:            NWU,
		Gain:                  0.5,
		GyroscopeRange:        0,
		AccelerationRejection: 90,
		MagneticRejection:     90,
		RecoveryTriggerPeriod: 0,
	}
}

// normalized clamps every field into its valid range. NaN is treated as 0.
func (s Settings) normalized() Settings {
	if !s.Convention.Valid() {
		s.Convention = NWU
	}
	s.Gain = nonNegative(s.Gain)
	s.GyroscopeRange = nonNegative(s.GyroscopeRange)
	s.AccelerationRejection = nonNegative(s.AccelerationRejection)
	s.MagneticRejection = nonNegative(s.MagneticRejection)
	if s.RecoveryTriggerPeriod < 0 {
		s.RecoveryTriggerPeriod = 0
	}
	return s
}

// initialGain is the ramp start for these settings; it never sits below Gain.
func (s Settings) initialGain() float64 {
	return max(initialGain, s.Gain)
}

func nonNegative(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}
