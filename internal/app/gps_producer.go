// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/gps"
)

// fixLogInterval rate-limits the per-fix info log.
const fixLogInterval = 10 * time.Second

// publishFixes scans NMEA from r and publishes every fix on topic.
func publishFixes(ctx context.Context, r io.Reader, pub publisher, topic string, logger *slog.Logger) error {
	var lastLog time.Time
	return gps.Scan(ctx, r, func(fix gps.Fix) error {
		if err := publishJSON(pub, topic, fix); err != nil {
			logger.Warn("GPS publish failed", "error", err)
			return nil
		}
		if time.Since(lastLog) >= fixLogInterval {
			lastLog = time.Now()
			logger.Info("published GPS fix",
				"lat", fix.Latitude,
				"lon", fix.Longitude,
				"speed_knots", fix.SpeedKnots,
				"course", fix.CourseDeg,
				"validity", fix.Validity)
		}
		return nil
	})
}

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes combined GPS fixes as JSON to TOPIC_GPS.
func RunGPSProducer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err != nil {
		return err
	}
	logger.Info("GPS serial port opened", "port", cfg.GPSSerialPort, "baud", cfg.GPSBaudRate)

	// closing the port unblocks the scanner on shutdown
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	err = publishFixes(ctx, port, mqttPublisher{client: client}, cfg.TopicGPS, logger)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		logger.Info("GPS producer stopped")
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}
