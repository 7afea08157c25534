// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"strings"
)

// HeadingSource selects what corrects yaw.
type HeadingSource string

const (
	// HeadingMagnetometer uses the IMU magnetometer when the sample has one.
	HeadingMagnetometer HeadingSource = "magnetometer"
	// HeadingExternal uses the last heading passed to SetExternalHeading,
	// typically GPS course over ground.
	HeadingExternal HeadingSource = "external"
	// HeadingNone lets yaw drift with the gyroscope.
	HeadingNone HeadingSource = "none"
)

// ParseHeadingSource parses magnetometer, external or none.
func ParseHeadingSource(s string) (HeadingSource, error) {
	switch h := HeadingSource(strings.ToLower(strings.TrimSpace(s))); h {
	case HeadingMagnetometer, HeadingExternal, HeadingNone:
		return h, nil
	case "":
		return HeadingMagnetometer, nil
	default:
		return "", fmt.Errorf("unknown heading source %q (expected magnetometer, external or none)", s)
	}
}
