// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/relabs-tech/inertial_ahrs/internal/fusion"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is the JSON form of a unit quaternion.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Number converts back to a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Pose is the canonical representation of orientation for the app.
// Angles are ZYX Euler angles in degrees.
type Pose struct {
	Roll       float64    `json:"roll"`
	Pitch      float64    `json:"pitch"`
	Yaw        float64    `json:"yaw"`
	Quaternion Quaternion `json:"quaternion"`
}

// PoseFromQuaternion builds a Pose from a body-to-Earth quaternion.
func PoseFromQuaternion(q quat.Number) Pose {
	e := fusion.QuaternionToEuler(q)
	return Pose{
		Roll:       e.Roll,
		Pitch:      e.Pitch,
		Yaw:        e.Yaw,
		Quaternion: Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag},
	}
}

// State is everything the estimator reports after a sample. It is the
// payload of the ahrs topic and of the web API.
type State struct {
	Time               time.Time             `json:"time"`
	Pose               Pose                  `json:"pose"`
	Gravity            r3.Vector             `json:"gravity"`
	LinearAcceleration r3.Vector             `json:"linear_acceleration"`
	EarthAcceleration  r3.Vector             `json:"earth_acceleration"`
	GyroscopeOffset    r3.Vector             `json:"gyroscope_offset"`
	Flags              fusion.Flags          `json:"flags"`
	Internal           fusion.InternalStates `json:"internal"`
	Heading            HeadingSource         `json:"heading_source"`
}

// Source is anything that can provide orientation states over time.
type Source interface {
	Next() (State, error)
}

// TiltFromAccelerometer computes roll and pitch (degrees) from an
// accelerometer at rest. Yaw is unobservable from gravity alone.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccelerometer(c fusion.Convention, acc r3.Vector) (roll, pitch float64) {
	if c == fusion.NED {
		acc = acc.Mul(-1)
	}
	rollRad := math.Atan2(acc.Y, acc.Z)
	pitchRad := math.Atan2(-acc.X, math.Sqrt(acc.Y*acc.Y+acc.Z*acc.Z))
	return rollRad * 180.0 / math.Pi, pitchRad * 180.0 / math.Pi
}
