// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Identity is the identity orientation.
var Identity = quat.Number{Real: 1}

func pure(v r3.Vector) quat.Number {
	return quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

func vector(q quat.Number) r3.Vector {
	return r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// rotate maps a body-frame vector into the Earth frame. q must be unit.
func rotate(q quat.Number, v r3.Vector) r3.Vector {
	return vector(quat.Mul(quat.Mul(q, pure(v)), quat.Conj(q)))
}

// rotateInverse maps an Earth-frame vector into the body frame. q must be unit.
func rotateInverse(q quat.Number, v r3.Vector) r3.Vector {
	return vector(quat.Mul(quat.Mul(quat.Conj(q), pure(v)), q))
}

// normalizeQuaternion returns q/|q|, or Identity when the norm has collapsed
// to zero or is not finite.
func normalizeQuaternion(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// yawRadians is the ZYX yaw of q.
func yawRadians(q quat.Number) float64 {
	return math.Atan2(q.Real*q.Kmag+q.Imag*q.Jmag, 0.5-q.Jmag*q.Jmag-q.Kmag*q.Kmag)
}

// withHeading rotates q about the Earth vertical so its ZYX yaw equals heading
// (degrees). Roll and pitch are unchanged.
func withHeading(q quat.Number, heading float64) quat.Number {
	half := 0.5 * (degreesToRadians(heading) - yawRadians(q))
	rotation := quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
	return normalizeQuaternion(quat.Mul(rotation, q))
}

func degreesToRadians(d float64) float64 { return d * math.Pi / 180 }

func radiansToDegrees(r float64) float64 { return r * 180 / math.Pi }
