// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/gps"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
)

func formatRaw(s imu.IMURaw) string {
	return fmt.Sprintf("ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d  mx=%6d my=%6d mz=%6d",
		s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, s.Mx, s.My, s.Mz)
}

func formatFix(f gps.Fix) string {
	return fmt.Sprintf("time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity)
}

// throttledPrinter writes at most one line per tag every interval.
type throttledPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func newThrottledPrinter(w io.Writer, interval time.Duration) *throttledPrinter {
	return &throttledPrinter{w: w, interval: interval, last: make(map[string]time.Time), now: time.Now}
}

func (p *throttledPrinter) print(tag, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if last, ok := p.last[tag]; ok && now.Sub(last) < p.interval {
		return
	}
	p.last[tag] = now
	fmt.Fprintf(p.w, "[%-5s] %s\n", tag, line)
}

// RunConsoleMQTT prints the AHRS state, raw IMU samples and GPS fixes
// published on MQTT until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *slog.Logger, w io.Writer) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	out := newThrottledPrinter(w, time.Duration(cfg.ConsoleLogInterval)*time.Millisecond)

	if err := subscribeJSON(client, cfg.TopicAHRS, logger, func(st orientation.State, _ []byte) {
		out.print("AHRS", formatState(st))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicIMULeft, logger, func(s imu.IMURaw, _ []byte) {
		out.print("IMU-L", formatRaw(s))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, logger, func(f gps.Fix, _ []byte) {
		out.print("GPS", formatFix(f))
	}); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
