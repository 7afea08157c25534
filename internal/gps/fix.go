// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps turns NMEA sentences into fixes and fixes into a heading the
// orientation estimator can use.
package gps

import (
	"math"

	"github.com/relabs-tech/inertial_ahrs/internal/fusion"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // DD/MM/YY
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground, clockwise from true north
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// Valid reports whether the receiver marked the fix active.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// Heading returns the course over ground in degrees when the fix is valid
// and the speed is at least minSpeedKnots. Below that speed the course is
// noise.
func (f Fix) Heading(minSpeedKnots float64) (float64, bool) {
	if !f.Valid() || f.SpeedKnots < minSpeedKnots || math.IsNaN(f.CourseDeg) {
		return 0, false
	}
	return f.CourseDeg, true
}

// YawFromCourse converts a compass course (clockwise from north) into the
// yaw of convention c, in (-180, 180].
func YawFromCourse(c fusion.Convention, course float64) float64 {
	var yaw float64
	switch c {
	case fusion.NED:
		yaw = course
	case fusion.ENU:
		yaw = 90 - course
	default:
		yaw = -course
	}
	return wrap180(yaw)
}

func wrap180(deg float64) float64 {
	deg = math.Mod(deg, 360)
	switch {
	case deg > 180:
		deg -= 360
	case deg <= -180:
		deg += 360
	}
	return deg
}
