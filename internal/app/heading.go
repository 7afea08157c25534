// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/fusion"
	"github.com/relabs-tech/inertial_ahrs/internal/gps"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
)

// headingTarget receives external headings.
type headingTarget interface {
	SetExternalHeading(heading float64)
	ClearExternalHeading()
}

// gpsHeading feeds GPS course over ground into an estimator and withdraws it
// when no usable fix has arrived for ttl.
type gpsHeading struct {
	mu sync.Mutex

	target     headingTarget
	convention fusion.Convention
	minSpeed   float64
	ttl        time.Duration
	logger     *slog.Logger

	last   time.Time
	active bool
}

func newGPSHeading(target headingTarget, convention fusion.Convention, minSpeedKnots float64, ttl time.Duration, logger *slog.Logger) *gpsHeading {
	return &gpsHeading{
		target:     target,
		convention: convention,
		minSpeed:   minSpeedKnots,
		ttl:        ttl,
		logger:     logger,
	}
}

// handleFix applies the course of f if it is usable.
func (h *gpsHeading) handleFix(f gps.Fix, now time.Time) {
	course, ok := f.Heading(h.minSpeed)
	if !ok {
		return
	}
	yaw := gps.YawFromCourse(h.convention, course)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.target.SetExternalHeading(yaw)
	h.last = now
	if !h.active {
		h.active = true
		h.logger.Info("external heading acquired", "course", course, "yaw", yaw)
	}
}

// expire clears the heading once it is older than ttl. A zero ttl never
// expires.
func (h *gpsHeading) expire(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active || h.ttl <= 0 || now.Sub(h.last) < h.ttl {
		return
	}
	h.active = false
	h.target.ClearExternalHeading()
	h.logger.Warn("external heading lost", "age", now.Sub(h.last))
}

var _ headingTarget = (*orientation.Estimator)(nil)
