// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"github.com/golang/geo/r3"
)

// CompassHeading returns the tilt-compensated magnetic heading in degrees for
// a body at rest, measured the same way as Euler.Yaw in the given convention.
// It returns 0 when either vector is zero or they are parallel.
func CompassHeading(c Convention, accelerometer, magnetometer r3.Vector) float64 {
	// an accelerometer at rest reads Earth up in every convention
	up := accelerometer
	west := up.Cross(magnetometer)
	if west.Norm2() == 0 {
		return 0
	}
	west = west.Normalize()
	north := west.Cross(up).Normalize()

	switch c {
	case ENU:
		return radiansToDegrees(math.Atan2(north.X, -west.X))
	case NED:
		return radiansToDegrees(math.Atan2(-west.X, north.X))
	default:
		return radiansToDegrees(math.Atan2(west.X, north.X))
	}
}
