// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// Convention describes the Earth axes the orientation is expressed in.
type Convention int

const (
	// NWU is North-West-Up.
	NWU Convention = iota
	// ENU is East-North-Up.
	ENU
	// NED is North-East-Down.
	NED
)

var conventionNames = map[Convention]string{
	NWU: "nwu",
	ENU: "enu",
	NED: "ned",
}

func (c Convention) String() string {
	if n, ok := conventionNames[c]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether c is one of the known conventions.
func (c Convention) Valid() bool {
	_, ok := conventionNames[c]
	return ok
}

// ParseConvention parses "nwu", "enu" or "ned" (case-insensitive).
func ParseConvention(s string) (Convention, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, n := range conventionNames {
		if n == key {
			return c, nil
		}
	}
	return NWU, fmt.Errorf("unknown convention %q (expected nwu, enu or ned)", s)
}

// up is the Earth-frame direction an accelerometer at rest reads.
func (c Convention) up() r3.Vector {
	if c == NED {
		return r3.Vector{X: 0, Y: 0, Z: -1}
	}
	return r3.Vector{X: 0, Y: 0, Z: 1}
}

// north is the Earth-frame direction of magnetic north.
func (c Convention) north() r3.Vector {
	if c == ENU {
		return r3.Vector{X: 0, Y: 1, Z: 0}
	}
	return r3.Vector{X: 1, Y: 0, Z: 0}
}

// west is up × north for every convention.
func (c Convention) west() r3.Vector {
	switch c {
	case ENU:
		return r3.Vector{X: -1, Y: 0, Z: 0}
	case NED:
		return r3.Vector{X: 0, Y: -1, Z: 0}
	default:
		return r3.Vector{X: 0, Y: 1, Z: 0}
	}
}
