// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
)

// ReplayHeader is the column layout read by ReplaySource. The magnetometer
// columns are optional.
var ReplayHeader = []string{"time_s", "gx", "gy", "gz", "ax", "ay", "az", "mx", "my", "mz"}

// ReplaySource reads recorded samples from CSV. Gyroscope in °/s,
// accelerometer in g, magnetometer in µT, time in seconds. A header row and
// lines starting with '#' are skipped.
type ReplaySource struct {
	r       *csv.Reader
	records int
	last    float64
	started bool
}

// NewReplaySource reads samples from r.
func NewReplaySource(r io.Reader) *ReplaySource {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &ReplaySource{r: cr}
}

// Next returns the next recorded sample, or io.EOF at the end of input.
func (s *ReplaySource) Next() (Sample, error) {
	for {
		record, err := s.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Sample{}, io.EOF
			}
			return Sample{}, fmt.Errorf("replay: %w", err)
		}
		s.records++

		values, err := parseRecord(record)
		if err != nil {
			if s.records == 1 {
				// header
				continue
			}
			line, _ := s.r.FieldPos(0)
			return Sample{}, fmt.Errorf("replay line %d: %w", line, err)
		}
		return s.sample(values), nil
	}
}

func (s *ReplaySource) sample(v []float64) Sample {
	var dt float64
	if s.started {
		dt = v[0] - s.last
	}
	s.started = true
	s.last = v[0]

	sec, frac := math.Modf(v[0])
	out := Sample{
		Time:          time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Gyroscope:     r3.Vector{X: v[1], Y: v[2], Z: v[3]},
		Accelerometer: r3.Vector{X: v[4], Y: v[5], Z: v[6]},
		DeltaTime:     dt,
	}
	if len(v) == 10 {
		out.Magnetometer = r3.Vector{X: v[7], Y: v[8], Z: v[9]}
		out.HasMagnetometer = true
	}
	return out
}

func parseRecord(record []string) ([]float64, error) {
	if len(record) != 7 && len(record) != 10 {
		return nil, fmt.Errorf("expected 7 or 10 columns, got %d", len(record))
	}
	values := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", ReplayHeader[i], err)
		}
		values[i] = v
	}
	return values, nil
}
