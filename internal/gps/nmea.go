// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens the GPS serial port at baud, 8N1.
func OpenSerial(portName string, baud int) (io.ReadWriteCloser, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open GPS serial port %s: %w", portName, err)
	}
	return port, nil
}

// Apply merges one NMEA sentence into fix. It reports whether the sentence
// carried position or course data; other sentence types are ignored.
func Apply(fix *Fix, line string) (bool, error) {
	line = strings.TrimSpace(line)
	// NMEA sentences usually start with '$'
	if !strings.HasPrefix(line, "$") {
		return false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return false, err
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		fix.Time = m.Time.String()
		fix.Date = m.Date.String()
		fix.Latitude = m.Latitude
		fix.Longitude = m.Longitude
		fix.SpeedKnots = m.Speed
		fix.CourseDeg = m.Course
		fix.Validity = m.Validity
		return true, nil
	case nmea.TypeVTG:
		m := sentence.(nmea.VTG)
		fix.SpeedKnots = m.GroundSpeedKnots
		fix.CourseDeg = m.TrueTrack
		return true, nil
	default:
		// ignore other sentence types (GGA, GSA, etc.)
		return false, nil
	}
}

// Scan reads NMEA lines from r and calls fn with the updated fix after every
// RMC or VTG sentence. Unparseable lines are skipped. Scan returns when r is
// exhausted, ctx is done, or fn fails.
func Scan(ctx context.Context, r io.Reader, fn func(Fix) error) error {
	scanner := bufio.NewScanner(r)
	var current Fix
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		updated, err := Apply(&current, scanner.Text())
		if err != nil || !updated {
			// noisy GPS or partial sentences
			continue
		}
		if err := fn(current); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("GPS read error: %w", err)
	}
	return ctx.Err()
}
