// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors reads raw samples from the MPU9250 over SPI.
package sensors

import (
	"fmt"
	"log/slog"

	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

var (
	accelRangeNames = []string{"±2g", "±4g", "±8g", "±16g"}
	gyroRangeNames  = []string{"±250°/s", "±500°/s", "±1000°/s", "±2000°/s"}
)

// device is the part of the MPU9250 driver a sample read needs.
type device interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

type imuSource struct {
	name string // "left" for logging
	imu  device
}

// NewIMUSourceLeft initializes the left MPU9250 from cfg.
func NewIMUSourceLeft(cfg *config.Config, logger *slog.Logger) (imu.RawSource, error) {
	return newIMUSource("left", cfg.IMULeftSPIDevice, cfg.IMULeftCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange, logger)
}

func newIMUSource(name, spiDev, csPin string, accelRange, gyroRange byte, logger *slog.Logger) (imu.RawSource, error) {
	if int(accelRange) >= len(accelRangeNames) || int(gyroRange) >= len(gyroRangeNames) {
		return nil, fmt.Errorf("%s IMU: invalid range (accel %d, gyro %d)", name, accelRange, gyroRange)
	}
	logger = logger.With("imu", name)

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w", name, spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	if _, err := dev.SelfTest(); err != nil {
		logger.Warn("self-test failed", "error", err)
	}

	// Calibrate resets the ranges, so they are applied afterwards.
	if err := dev.Calibrate(); err != nil {
		logger.Warn("calibration failed", "error", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set accel range: %w", name, err)
	}
	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set gyro range: %w", name, err)
	}

	logger.Info("IMU ready",
		"spi", spiDev,
		"cs", csPin,
		"accel_range", accelRangeNames[accelRange],
		"gyro_range", gyroRangeNames[gyroRange],
		"magnetometer", false)
	return &imuSource{name: name, imu: dev}, nil
}

// ReadRaw reads accelerometer and gyroscope data from this IMU. The driver
// has no magnetometer access, so the magnetometer fields stay zero.
func (s *imuSource) ReadRaw() (imu.IMURaw, error) {
	raw := imu.IMURaw{Source: s.name}
	reads := []struct {
		axis string
		dst  *int16
		read func() (int16, error)
	}{
		{"accel X", &raw.Ax, s.imu.GetAccelerationX},
		{"accel Y", &raw.Ay, s.imu.GetAccelerationY},
		{"accel Z", &raw.Az, s.imu.GetAccelerationZ},
		{"gyro X", &raw.Gx, s.imu.GetRotationX},
		{"gyro Y", &raw.Gy, s.imu.GetRotationY},
		{"gyro Z", &raw.Gz, s.imu.GetRotationZ},
	}
	for _, r := range reads {
		v, err := r.read()
		if err != nil {
			return imu.IMURaw{}, fmt.Errorf("%s IMU %s: %w", s.name, r.axis, err)
		}
		*r.dst = v
	}
	return raw, nil
}
