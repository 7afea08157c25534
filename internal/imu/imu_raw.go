// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// IMURaw represents a single raw IMU sample in sensor counts.
type IMURaw struct {
	Source string `json:"source"` // "left", "mock", "replay"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer, 0.1 µT per count; all zero when absent
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// HasMagnetometer reports whether the sample carries a magnetometer reading.
func (r IMURaw) HasMagnetometer() bool {
	return r.Mx != 0 || r.My != 0 || r.Mz != 0
}

// RawSource is a device that yields raw samples.
type RawSource interface {
	ReadRaw() (IMURaw, error)
}
