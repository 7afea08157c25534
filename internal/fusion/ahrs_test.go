// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

const dt = 0.01

var (
	zero      = r3.Vector{}
	level     = r3.Vector{X: 0, Y: 0, Z: 1}
	northward = r3.Vector{X: 1, Y: 0, Z: 0}
)

func newAHRS(t *testing.T, s Settings) *AHRS {
	t.Helper()
	a := NewAHRS()
	a.SetSettings(s)
	a.Reset()
	return a
}

func assertQuaternionInDelta(t *testing.T, want, got quat.Number, delta float64) {
	t.Helper()
	// q and -q are the same rotation
	if want.Real*got.Real+want.Imag*got.Imag+want.Jmag*got.Jmag+want.Kmag*got.Kmag < 0 {
		got = quat.Scale(-1, got)
	}
	assert.InDelta(t, want.Real, got.Real, delta, "w")
	assert.InDelta(t, want.Imag, got.Imag, delta, "x")
	assert.InDelta(t, want.Jmag, got.Jmag, delta, "y")
	assert.InDelta(t, want.Kmag, got.Kmag, delta, "z")
}

func assertVectorInDelta(t *testing.T, want, got r3.Vector, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func randomVector(rng *rand.Rand, scale float64) r3.Vector {
	return r3.Vector{
		X: (rng.Float64()*2 - 1) * scale,
		Y: (rng.Float64()*2 - 1) * scale,
		Z: (rng.Float64()*2 - 1) * scale,
	}
}

func TestNewAHRS(t *testing.T) {
	a := NewAHRS()

	assert.Equal(t, Identity, a.Quaternion())
	assert.Equal(t, DefaultSettings(), a.Settings())
	assert.Equal(t, Flags{Initialising: true}, a.Flags())
	assert.Equal(t, InternalStates{}, a.InternalStates())
}

func TestUnitNormInvariant(t *testing.T) {
	for _, c := range []Convention{NWU, ENU, NED} {
		t.Run(c.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			a := newAHRS(t, Settings{
				Convention:            c,
				Gain:                  0.5,
				GyroscopeRange:        1000,
				AccelerationRejection: 10,
				MagneticRejection:     10,
				RecoveryTriggerPeriod: 20,
			})

			for i := 0; i < 5000; i++ {
				g := randomVector(rng, 1500)
				acc := randomVector(rng, 4)
				mag := randomVector(rng, 60)
				step := rng.Float64() * 0.05
				switch i % 3 {
				case 0:
					a.Update(g, acc, mag, step)
				case 1:
					a.UpdateNoMagnetometer(g, acc, step)
				default:
					a.UpdateExternalHeading(g, acc, rng.Float64()*360-180, step)
				}
				require.InDelta(t, 1.0, quat.Abs(a.Quaternion()), 1e-9, "sample %d", i)
			}
		})
	}
}

func TestOpenLoopIntegration(t *testing.T) {
	tests := []struct {
		name string
		acc  r3.Vector
		mag  r3.Vector
	}{
		{name: "aligned references", acc: level, mag: northward},
		{name: "conflicting references", acc: r3.Vector{X: 1, Y: 0, Z: 0}, mag: r3.Vector{X: 0, Y: 1, Z: 0}},
		{name: "no references", acc: zero, mag: zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.Gain = 0
			a := newAHRS(t, s)

			for rangeIdx := 0; rangeIdx < 100; rangeIdx++ {
				a.Update(r3.Vector{X: 0, Y: 0, Z: 90}, tt.acc, tt.mag, dt)
			}

			e := QuaternionToEuler(a.Quaternion())
			assert.InDelta(t, 90, e.Yaw, 1)
			assert.InDelta(t, 0, e.Roll, 1e-9)
			assert.InDelta(t, 0, e.Pitch, 1e-9)
			assert.False(t, a.Flags().Initialising)
		})
	}
}

func TestSteadyStateConvergence(t *testing.T) {
	a := NewAHRS()

	for i := 0; i < 290; i++ {
		a.Update(zero, level, northward, dt)
		require.True(t, a.Flags().Initialising, "sample %d", i)
	}
	for rangeIdx := 0; rangeIdx < 20; rangeIdx++ {
		a.Update(zero, level, northward, dt)
	}
	assert.False(t, a.Flags().Initialising)

	for rangeIdx := 0; rangeIdx < 500; rangeIdx++ {
		a.Update(zero, level, northward, dt)
	}
	assertQuaternionInDelta(t, Identity, a.Quaternion(), 1e-9)
	assert.InDelta(t, 0, a.InternalStates().AccelerationError, 1e-6)
	assert.InDelta(t, 0, a.InternalStates().MagneticError, 1e-6)
}

func TestConvergesFromDisturbedOrientation(t *testing.T) {
	a := NewAHRS()
	a.SetQuaternion(EulerToQuaternion(Euler{Roll: 20, Pitch: -15, Yaw: 30}))

	for rangeIdx := 0; rangeIdx < 1000; rangeIdx++ {
		a.Update(zero, level, northward, dt)
	}

	e := QuaternionToEuler(a.Quaternion())
	assert.InDelta(t, 0, e.Roll, 0.5)
	assert.InDelta(t, 0, e.Pitch, 0.5)
	assert.InDelta(t, 0, e.Yaw, 0.5)
}

func TestAccelerationRejection(t *testing.T) {
	const period = 5
	a := newAHRS(t, Settings{
		Convention:            NWU,
		Gain:                  0.5,
		AccelerationRejection: 10,
		MagneticRejection:     10,
		RecoveryTriggerPeriod: period,
	})
	sideways := r3.Vector{X: 1, Y: 0, Z: 0}

	for i := 1; i <= period; i++ {
		a.UpdateNoMagnetometer(zero, sideways, dt)

		states := a.InternalStates()
		require.True(t, states.AccelerometerIgnored, "sample %d", i)
		assert.InDelta(t, 90, states.AccelerationError, 1e-9)
		assert.InDelta(t, float64(i)/period, states.AccelerationRecoveryTrigger, 1e-12)
		assert.True(t, a.Flags().AccelerationRecovery)
		assertQuaternionInDelta(t, Identity, a.Quaternion(), 0)
	}

	a.UpdateNoMagnetometer(zero, sideways, dt)

	states := a.InternalStates()
	assert.False(t, states.AccelerometerIgnored)
	assert.Zero(t, states.AccelerationRecoveryTrigger)
	assert.False(t, a.Flags().AccelerationRecovery)
	assert.Greater(t, math.Abs(a.Quaternion().Jmag), 1e-3, "forced correction should tilt about y")
}

func TestAccelerationRecoveryDrains(t *testing.T) {
	a := newAHRS(t, Settings{
		Convention:            NWU,
		Gain:                  0.5,
		AccelerationRejection: 10,
		RecoveryTriggerPeriod: 100,
	})

	for rangeIdx := 0; rangeIdx < 50; rangeIdx++ {
		a.UpdateNoMagnetometer(zero, r3.Vector{X: 1, Y: 0, Z: 0}, dt)
	}
	require.InDelta(t, 0.5, a.InternalStates().AccelerationRecoveryTrigger, 1e-12)

	a.UpdateNoMagnetometer(zero, level, dt)
	assert.False(t, a.InternalStates().AccelerometerIgnored)
	assert.InDelta(t, 0.41, a.InternalStates().AccelerationRecoveryTrigger, 1e-12)

	for rangeIdx := 0; rangeIdx < 10; rangeIdx++ {
		a.UpdateNoMagnetometer(zero, level, dt)
	}
	assert.Zero(t, a.InternalStates().AccelerationRecoveryTrigger)
	assert.False(t, a.Flags().AccelerationRecovery)
}

func TestMagneticRejectionIsIndependent(t *testing.T) {
	a := newAHRS(t, Settings{
		Convention:            NWU,
		Gain:                  0.5,
		AccelerationRejection: 10,
		MagneticRejection:     10,
		RecoveryTriggerPeriod: 10,
	})
	west := r3.Vector{X: 0, Y: 1, Z: 0}

	for rangeIdx := 0; rangeIdx < 3; rangeIdx++ {
		a.Update(zero, level, west, dt)
	}

	states := a.InternalStates()
	assert.True(t, states.MagnetometerIgnored)
	assert.InDelta(t, 90, states.MagneticError, 1e-9)
	assert.False(t, states.AccelerometerIgnored)
	assert.Equal(t, Flags{Initialising: true, MagneticRecovery: true}, a.Flags())
}

func TestRejectionDisabled(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{name: "zero threshold", settings: Settings{Gain: 0.5, RecoveryTriggerPeriod: 5}},
		{name: "zero period", settings: Settings{Gain: 0.5, AccelerationRejection: 10}},
		{name: "zero gain", settings: Settings{AccelerationRejection: 10, RecoveryTriggerPeriod: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAHRS(t, tt.settings)
			for rangeIdx := 0; rangeIdx < 3; rangeIdx++ {
				a.UpdateNoMagnetometer(zero, r3.Vector{X: 1, Y: 0, Z: 0}, dt)
			}
			assert.False(t, a.InternalStates().AccelerometerIgnored)
			assert.False(t, a.Flags().AccelerationRecovery)
		})
	}
}

func TestGravityAndLinearAccelerationDecompose(t *testing.T) {
	for _, c := range []Convention{NWU, ENU, NED} {
		t.Run(c.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			s := DefaultSettings()
			s.Convention = c
			a := newAHRS(t, s)

			for rangeIdx := 0; rangeIdx < 200; rangeIdx++ {
				acc := randomVector(rng, 2)
				a.Update(randomVector(rng, 200), acc, randomVector(rng, 50), dt)

				assertVectorInDelta(t, acc, a.Gravity().Add(a.LinearAcceleration()), 1e-12)
				assert.InDelta(t, 1, a.Gravity().Norm(), 1e-9)
				assertVectorInDelta(t, a.LinearAcceleration(),
					rotateInverse(a.Quaternion(), a.EarthAcceleration()), 1e-9)
			}
		})
	}
}

func TestGravityAtRest(t *testing.T) {
	tests := []struct {
		convention Convention
		want       r3.Vector
	}{
		{NWU, r3.Vector{X: 0, Y: 0, Z: 1}},
		{ENU, r3.Vector{X: 0, Y: 0, Z: 1}},
		{NED, r3.Vector{X: 0, Y: 0, Z: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.convention.String(), func(t *testing.T) {
			s := DefaultSettings()
			s.Convention = tt.convention
			a := newAHRS(t, s)
			a.UpdateNoMagnetometer(zero, tt.want, dt)

			assertVectorInDelta(t, tt.want, a.Gravity(), 1e-12)
			assertVectorInDelta(t, zero, a.LinearAcceleration(), 1e-12)
			assertVectorInDelta(t, zero, a.EarthAcceleration(), 1e-12)
		})
	}
}

func TestSetHeadingPreservesTilt(t *testing.T) {
	a := NewAHRS()
	a.SetQuaternion(EulerToQuaternion(Euler{Roll: 25, Pitch: -10, Yaw: 70}))
	for rangeIdx := 0; rangeIdx < 50; rangeIdx++ {
		a.UpdateNoMagnetometer(r3.Vector{X: 5, Y: -3, Z: 12}, zero, dt)
	}
	before := QuaternionToEuler(a.Quaternion())
	require.Greater(t, math.Abs(before.Roll), 1.0)
	require.Greater(t, math.Abs(before.Pitch), 1.0)

	a.SetHeading(45)

	after := QuaternionToEuler(a.Quaternion())
	assert.InDelta(t, before.Roll, after.Roll, 1e-9)
	assert.InDelta(t, before.Pitch, after.Pitch, 1e-9)
	assert.InDelta(t, 45, after.Yaw, 1e-9)
	assert.InDelta(t, 1, quat.Abs(a.Quaternion()), 1e-12)
}

func TestSaturationForcesReconvergence(t *testing.T) {
	s := DefaultSettings()
	s.GyroscopeRange = 500
	a := newAHRS(t, s)

	for rangeIdx := 0; rangeIdx < 400; rangeIdx++ {
		a.Update(zero, level, northward, dt)
	}
	require.False(t, a.Flags().Initialising)

	a.Update(r3.Vector{X: 0, Y: -600, Z: 0}, level, northward, dt)
	assert.True(t, a.Flags().AngularRateRecovery)
	assert.True(t, a.Flags().Initialising)

	a.Update(zero, level, northward, dt)
	assert.False(t, a.Flags().AngularRateRecovery)
	assert.True(t, a.Flags().Initialising)
}

func TestSaturationDisabledByZeroRange(t *testing.T) {
	a := NewAHRS()
	a.Update(r3.Vector{X: 4000, Y: 0, Z: 0}, level, northward, dt)
	assert.False(t, a.Flags().AngularRateRecovery)
}

func TestResetIsIdempotent(t *testing.T) {
	s := Settings{
		Convention:            NED,
		Gain:                  0.8,
		GyroscopeRange:        250,
		AccelerationRejection: 5,
		MagneticRejection:     5,
		RecoveryTriggerPeriod: 50,
	}
	fresh := newAHRS(t, s)

	a := newAHRS(t, s)
	rng := rand.New(rand.NewSource(3))
	for rangeIdx := 0; rangeIdx < 100; rangeIdx++ {
		a.Update(randomVector(rng, 400), randomVector(rng, 2), randomVector(rng, 50), dt)
	}
	a.Reset()
	assert.Equal(t, *fresh, *a)

	a.Reset()
	assert.Equal(t, *fresh, *a)
}

func TestNonPositiveDeltaTime(t *testing.T) {
	for _, step := range []float64{0, -0.01, math.NaN(), math.Inf(-1)} {
		a := NewAHRS()
		start := EulerToQuaternion(Euler{Roll: 10, Pitch: 5, Yaw: -20})
		a.SetQuaternion(start)

		a.Update(r3.Vector{X: 100, Y: 0, Z: 90}, level, northward, step)

		assertQuaternionInDelta(t, start, a.Quaternion(), 1e-12)
		assert.True(t, a.Flags().Initialising)
		assertVectorInDelta(t, level, a.Gravity().Add(a.LinearAcceleration()), 1e-12)
		assert.Greater(t, a.InternalStates().AccelerationError, 1.0)
	}
}

func TestDegenerateMeasurementsSkipChannel(t *testing.T) {
	a := newAHRS(t, Settings{
		Gain:                  0.5,
		AccelerationRejection: 10,
		MagneticRejection:     10,
		RecoveryTriggerPeriod: 5,
	})

	// magnetometer parallel to gravity carries no heading
	a.Update(zero, zero, level, dt)

	states := a.InternalStates()
	assert.False(t, states.AccelerometerIgnored)
	assert.False(t, states.MagnetometerIgnored)
	assert.Zero(t, states.AccelerationError)
	assert.Zero(t, states.MagneticError)
	assertQuaternionInDelta(t, Identity, a.Quaternion(), 0)
}

func TestUpdateNoMagnetometer(t *testing.T) {
	a := NewAHRS()
	a.Update(zero, level, r3.Vector{X: 0, Y: 1, Z: 0}, dt)
	require.NotZero(t, a.InternalStates().MagneticError)
	start := QuaternionToEuler(a.Quaternion()).Yaw

	for rangeIdx := 0; rangeIdx < 100; rangeIdx++ {
		a.UpdateNoMagnetometer(r3.Vector{X: 0, Y: 0, Z: 30}, level, dt)
	}

	states := a.InternalStates()
	assert.True(t, states.MagnetometerIgnored)
	assert.Zero(t, states.MagneticError)
	assert.False(t, a.Flags().MagneticRecovery)

	e := QuaternionToEuler(a.Quaternion())
	assert.InDelta(t, start+30, e.Yaw, 1e-6, "yaw follows the gyroscope")
}

func TestUpdateExternalHeading(t *testing.T) {
	a := NewAHRS()

	for rangeIdx := 0; rangeIdx < 1000; rangeIdx++ {
		a.UpdateExternalHeading(zero, level, 60, dt)
	}

	e := QuaternionToEuler(a.Quaternion())
	assert.InDelta(t, 60, e.Yaw, 0.5)
	assert.InDelta(t, 0, e.Roll, 1e-6)
	assert.InDelta(t, 0, e.Pitch, 1e-6)
	assert.False(t, a.InternalStates().MagnetometerIgnored)
}

func TestUpdateExternalHeadingKeepsTilt(t *testing.T) {
	s := DefaultSettings()
	s.Convention = NED
	a := newAHRS(t, s)
	tilted := EulerToQuaternion(Euler{Roll: 15, Pitch: 8, Yaw: 0})
	acc := rotateInverse(tilted, NED.up())
	a.SetQuaternion(tilted)

	for rangeIdx := 0; rangeIdx < 1000; rangeIdx++ {
		a.UpdateExternalHeading(zero, acc, -120, dt)
	}

	e := QuaternionToEuler(a.Quaternion())
	assert.InDelta(t, -120, e.Yaw, 0.5)
	assert.InDelta(t, 15, e.Roll, 0.1)
	assert.InDelta(t, 8, e.Pitch, 0.1)
}

func TestSetSettingsClamps(t *testing.T) {
	a := NewAHRS()
	a.SetSettings(Settings{
		Convention:            Convention(42),
		Gain:                  -1,
		GyroscopeRange:        math.NaN(),
		AccelerationRejection: -5,
		MagneticRejection:     math.Inf(1),
		RecoveryTriggerPeriod: -10,
	})

	got := a.Settings()
	assert.Equal(t, NWU, got.Convention)
	assert.Zero(t, got.Gain)
	assert.Zero(t, got.GyroscopeRange)
	assert.Zero(t, got.AccelerationRejection)
	assert.True(t, math.IsInf(got.MagneticRejection, 1))
	assert.Zero(t, got.RecoveryTriggerPeriod)
}

func TestSetSettingsKeepsConvergenceState(t *testing.T) {
	a := NewAHRS()
	q := EulerToQuaternion(Euler{Roll: 5, Pitch: 0, Yaw: 90})
	a.SetQuaternion(q)
	for rangeIdx := 0; rangeIdx < 10; rangeIdx++ {
		a.UpdateNoMagnetometer(zero, r3.Vector{X: 1, Y: 0, Z: 0}, dt)
	}

	s := DefaultSettings()
	s.Gain = 2
	before := a.Quaternion()
	a.SetSettings(s)

	assert.Equal(t, before, a.Quaternion())
	assert.True(t, a.Flags().Initialising)
	assert.Equal(t, 2.0, a.Settings().Gain)
}

func TestSetSettingsClampsLiveTrigger(t *testing.T) {
	a := newAHRS(t, Settings{Gain: 0.5, AccelerationRejection: 10, RecoveryTriggerPeriod: 20})
	for rangeIdx := 0; rangeIdx < 10; rangeIdx++ {
		a.UpdateNoMagnetometer(zero, r3.Vector{X: 1, Y: 0, Z: 0}, dt)
	}

	a.SetSettings(Settings{Gain: 0.5, AccelerationRejection: 10, RecoveryTriggerPeriod: 4})

	assert.Equal(t, 1.0, a.InternalStates().AccelerationRecoveryTrigger)
	a.UpdateNoMagnetometer(zero, r3.Vector{X: 1, Y: 0, Z: 0}, dt)
	assert.False(t, a.InternalStates().AccelerometerIgnored, "trigger at the new timeout forces acceptance")
}

func TestSetQuaternionNormalises(t *testing.T) {
	a := NewAHRS()

	a.SetQuaternion(quat.Number{Real: 2, Imag: 0, Jmag: 0, Kmag: 2})
	assertQuaternionInDelta(t, quat.Number{Real: math.Sqrt2 / 2, Kmag: math.Sqrt2 / 2}, a.Quaternion(), 1e-12)

	a.SetQuaternion(quat.Number{})
	assert.Equal(t, Identity, a.Quaternion())

	a.SetQuaternion(quat.Number{Real: math.NaN()})
	assert.Equal(t, Identity, a.Quaternion())
}

func TestInvertedAccelerometerConverges(t *testing.T) {
	upsideDown := r3.Vector{X: 0, Y: 0, Z: -1}

	t.Run("accepted", func(t *testing.T) {
		a := newAHRS(t, Settings{Gain: 0.5})
		for rangeIdx := 0; rangeIdx < 2000; rangeIdx++ {
			a.UpdateNoMagnetometer(zero, upsideDown, dt)
		}
		assertVectorInDelta(t, upsideDown, a.Gravity(), 1e-3)
		assert.InDelta(t, 180, math.Abs(QuaternionToEuler(a.Quaternion()).Roll), 1)
	})

	t.Run("rejected", func(t *testing.T) {
		a := newAHRS(t, Settings{Gain: 0.5, AccelerationRejection: 10, RecoveryTriggerPeriod: 5})
		a.UpdateNoMagnetometer(zero, upsideDown, dt)
		assert.InDelta(t, 90, a.InternalStates().AccelerationError, 1e-9)
		assert.True(t, a.InternalStates().AccelerometerIgnored)

		for rangeIdx := 0; rangeIdx < 1999; rangeIdx++ {
			a.UpdateNoMagnetometer(zero, upsideDown, dt)
		}
		assert.Less(t, a.InternalStates().AccelerationError, 90.0)
		assert.Less(t, a.Gravity().Z, 0.0)
	})
}

func TestRampedGainNeverRises(t *testing.T) {
	s := DefaultSettings()
	s.GyroscopeRange = 500
	a := newAHRS(t, s)

	prev := a.rampedGain
	check := func(restarted bool) {
		t.Helper()
		assert.LessOrEqual(t, a.rampedGain, a.settings.initialGain())
		assert.GreaterOrEqual(t, a.rampedGain, a.settings.Gain)
		if a.initialising && !restarted {
			assert.LessOrEqual(t, a.rampedGain, prev)
		}
		prev = a.rampedGain
	}

	for rangeIdx := 0; rangeIdx < 50; rangeIdx++ {
		a.Update(zero, level, northward, dt)
		check(false)
	}

	a.Update(r3.Vector{X: 0, Y: 0, Z: 600}, level, northward, dt)
	require.True(t, a.Flags().AngularRateRecovery)
	assert.Less(t, a.rampedGain, a.settings.initialGain())
	check(true)

	for rangeIdx := 0; rangeIdx < 50; rangeIdx++ {
		a.Update(zero, level, northward, dt)
		check(false)
	}

	s.Gain = 0.2
	a.SetSettings(s)
	require.True(t, a.initialising)
	check(false)

	for a.initialising {
		a.Update(zero, level, northward, dt)
		check(false)
	}
	assert.Equal(t, 0.2, a.rampedGain)
}

func TestSetSettingsRaisingGainEndsRamp(t *testing.T) {
	a := newAHRS(t, DefaultSettings())
	for rangeIdx := 0; rangeIdx < 100; rangeIdx++ {
		a.Update(zero, level, northward, dt)
	}
	require.True(t, a.Flags().Initialising)
	ramped := a.rampedGain

	s := DefaultSettings()
	s.Gain = ramped + 1
	a.SetSettings(s)
	assert.False(t, a.Flags().Initialising)
	assert.Equal(t, s.Gain, a.rampedGain)

	a.Update(zero, level, northward, dt)
	assert.Equal(t, s.Gain, a.rampedGain)
}
