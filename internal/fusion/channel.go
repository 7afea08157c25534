// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"math"

	"github.com/golang/geo/r3"
)

// recoveryTriggerDecrement is subtracted from a channel's trigger for every
// accepted sample, so recovery drains nine times faster than it builds.
const recoveryTriggerDecrement = 9

// channel is the rejection/recovery state of one reference direction
// (gravity or magnetic west). The two channels evolve independently.
type channel struct {
	halfFeedback    r3.Vector // last computed correction, scaled by 0.5
	ignored         bool
	recoveryTrigger int // always within [0, recoveryTimeout]
	recoveryTimeout int
}

func (c *channel) reset(timeout int) {
	*c = channel{recoveryTimeout: timeout}
}

func (c *channel) setTimeout(timeout int) {
	c.recoveryTimeout = timeout
	c.recoveryTrigger = min(c.recoveryTrigger, timeout)
}

// skip records that no measurement was usable this sample. The trigger is
// left alone: a missing vector is not a rejection.
func (c *channel) skip(ignored bool) {
	c.halfFeedback = r3.Vector{}
	c.ignored = ignored
}

// evaluate takes the full-scale feedback for this sample and returns the half
// feedback to apply, which is zero while the measurement is rejected.
// threshold is in degrees; rejection is only considered when rejecting is set
// and both threshold and timeout are positive.
func (c *channel) evaluate(feedback r3.Vector, threshold float64, rejecting bool) r3.Vector {
	c.halfFeedback = feedback.Mul(0.5)

	if !rejecting || threshold <= 0 || c.recoveryTimeout <= 0 || c.errorDegrees() <= threshold {
		c.ignored = false
		c.recoveryTrigger = max(c.recoveryTrigger-recoveryTriggerDecrement, 0)
		return c.halfFeedback
	}

	// Rejected for a full period: trust the measurement once and start over.
	if c.recoveryTrigger >= c.recoveryTimeout {
		c.ignored = false
		c.recoveryTrigger = 0
		return c.halfFeedback
	}

	c.recoveryTrigger++
	c.ignored = true
	return r3.Vector{}
}

// errorDegrees is the angle between measured and predicted direction implied
// by the last feedback. Saturates at 90°.
func (c *channel) errorDegrees() float64 {
	return radiansToDegrees(math.Asin(min(2*c.halfFeedback.Norm(), 1)))
}

// triggerRatio is the trigger as a fraction of the timeout.
func (c *channel) triggerRatio() float64 {
	if c.recoveryTimeout <= 0 {
		return 0
	}
	return float64(c.recoveryTrigger) / float64(c.recoveryTimeout)
}

// feedback is the correction turning the predicted direction onto the
// measured one. Both inputs are unit vectors. Beyond 90° the cross product
// shrinks again, so it is normalised to keep full strength. Exactly opposite
// directions have no cross product; any axis perpendicular to measured then
// turns the estimate around.
func feedback(measured, predicted r3.Vector) r3.Vector {
	cross := measured.Cross(predicted)
	if measured.Dot(predicted) < 0 {
		if cross.Norm2() == 0 {
			return measured.Ortho()
		}
		return cross.Normalize()
	}
	return cross
}
