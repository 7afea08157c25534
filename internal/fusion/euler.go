// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Euler holds ZYX (aerospace) angles in degrees.
type Euler struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// QuaternionToEuler decomposes a unit quaternion into ZYX angles.
// Pitch is limited to ±90°; at the singularity roll and yaw share the rotation.
func QuaternionToEuler(q quat.Number) Euler {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	sinPitch := math.Max(-1, math.Min(1, 2*(w*y-z*x)))
	return Euler{
		Roll:  radiansToDegrees(math.Atan2(w*x+y*z, 0.5-x*x-y*y)),
		Pitch: radiansToDegrees(math.Asin(sinPitch)),
		Yaw:   radiansToDegrees(yawRadians(q)),
	}
}

// EulerToQuaternion is the inverse of QuaternionToEuler.
func EulerToQuaternion(e Euler) quat.Number {
	cr, sr := math.Cos(degreesToRadians(e.Roll)/2), math.Sin(degreesToRadians(e.Roll)/2)
	cp, sp := math.Cos(degreesToRadians(e.Pitch)/2), math.Sin(degreesToRadians(e.Pitch)/2)
	cy, sy := math.Cos(degreesToRadians(e.Yaw)/2), math.Sin(degreesToRadians(e.Yaw)/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}
