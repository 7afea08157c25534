// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// Alignment remaps sensor axes onto body axes. It is written as three signed
// sensor axes, one per body axis: "+Y-X+Z" means body X = sensor Y,
// body Y = −sensor X, body Z = sensor Z.
type Alignment struct {
	axis [3]int
	sign [3]float64
}

// IdentityAlignment is "+X+Y+Z".
var IdentityAlignment = Alignment{axis: [3]int{0, 1, 2}, sign: [3]float64{1, 1, 1}}

// ParseAlignment parses an alignment string. Each sensor axis must appear
// exactly once and the result must be a proper rotation (no mirroring).
func ParseAlignment(s string) (Alignment, error) {
	axes := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if axes == "" {
		return IdentityAlignment, nil
	}
	if len(axes) != 6 {
		return Alignment{}, fmt.Errorf("invalid alignment %q: expected three signed axes like +Y-X+Z", s)
	}

	var a Alignment
	var seen [3]bool
	for i := 0; i < 3; i++ {
		switch axes[2*i] {
		case '+':
			a.sign[i] = 1
		case '-':
			a.sign[i] = -1
		default:
			return Alignment{}, fmt.Errorf("invalid alignment %q: missing sign for axis %d", s, i+1)
		}
		axis := strings.IndexByte("XYZ", axes[2*i+1])
		if axis < 0 {
			return Alignment{}, fmt.Errorf("invalid alignment %q: unknown axis %q", s, axes[2*i+1])
		}
		if seen[axis] {
			return Alignment{}, fmt.Errorf("invalid alignment %q: axis %c used twice", s, axes[2*i+1])
		}
		seen[axis] = true
		a.axis[i] = axis
	}

	if a.determinant() < 0 {
		return Alignment{}, fmt.Errorf("invalid alignment %q: mirrors the sensor frame", s)
	}
	return a, nil
}

// determinant of the signed permutation matrix.
func (a Alignment) determinant() float64 {
	d := a.sign[0] * a.sign[1] * a.sign[2]
	// odd permutations of (0 1 2) flip the sign
	inversions := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if a.axis[i] > a.axis[j] {
				inversions++
			}
		}
	}
	if inversions%2 == 1 {
		d = -d
	}
	return d
}

// Apply maps a sensor-frame vector into the body frame.
func (a Alignment) Apply(v r3.Vector) r3.Vector {
	in := [3]float64{v.X, v.Y, v.Z}
	return r3.Vector{
		X: a.sign[0] * in[a.axis[0]],
		Y: a.sign[1] * in[a.axis[1]],
		Z: a.sign[2] * in[a.axis[2]],
	}
}

func (a Alignment) String() string {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		if a.sign[i] < 0 {
			b.WriteByte('-')
		} else {
			b.WriteByte('+')
		}
		b.WriteByte("XYZ"[a.axis[i]])
	}
	return b.String()
}
