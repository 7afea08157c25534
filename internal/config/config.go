// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/fusion"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicPoseFused string
	TopicAHRS      string
	TopicIMULeft   string
	TopicGPS       string

	// IMU Hardware
	IMULeftSPIDevice string
	IMULeftCSPin     string
	IMUMock          bool

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Sensor to body axes, e.g. "+Y-X+Z"
	IMUAlignment string

	// Calibration coefficients file (.json, .yaml or .toml); empty = identity
	CalibrationFile string

	// AHRS
	AHRSConvention          fusion.Convention
	AHRSGain                float64
	AHRSGyroRange           float64 // °/s, 0 = IMU full scale
	AHRSAccelRejection      float64 // degrees
	AHRSMagRejection        float64 // degrees
	AHRSRecoveryPeriod      float64 // seconds
	AHRSHeadingSource       string  // magnetometer, external, none
	AHRSSeed                bool
	AHRSOffsetCorrection    bool
	AHRSExternalHeadingTTL  int // seconds without GPS heading before it is dropped
	AHRSPublishEverySamples int

	// GPS
	GPSSerialPort    string
	GPSBaudRate      int
	GPSMinSpeedKnots float64

	// Timing
	IMUSampleInterval  int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys absent from the file.
func Default() *Config {
	return &Config{
		MQTTClientIDProducer: "inertial-producer",
		MQTTClientIDGPS:      "inertial-gps",
		MQTTClientIDConsole:  "inertial-console",
		MQTTClientIDWeb:      "inertial-web",

		TopicPoseFused: "inertial/pose/fused",
		TopicAHRS:      "inertial/ahrs",
		TopicIMULeft:   "inertial/imu/left",
		TopicGPS:       "inertial/gps",

		IMULeftCSPin:  "18",
		IMUAccelRange: 0,
		IMUGyroRange:  3,
		IMUAlignment:  "+X+Y+Z",

		AHRSConvention:          fusion.NWU,
		AHRSGain:                0.5,
		AHRSAccelRejection:      10,
		AHRSMagRejection:        10,
		AHRSRecoveryPeriod:      5,
		AHRSHeadingSource:       "magnetometer",
		AHRSExternalHeadingTTL:  5,
		AHRSPublishEverySamples: 1,

		GPSBaudRate:      9600,
		GPSMinSpeedKnots: 2,

		IMUSampleInterval:  10,
		ConsoleLogInterval: 500,
		WebServerPort:      8080,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_POSE_FUSED":
		c.TopicPoseFused = value
	case "TOPIC_AHRS":
		c.TopicAHRS = value
	case "TOPIC_IMU_LEFT":
		c.TopicIMULeft = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// IMU Hardware
	case "IMU_LEFT_SPI_DEVICE":
		c.IMULeftSPIDevice = value
	case "IMU_LEFT_CS_PIN":
		c.IMULeftCSPin = value
	case "IMU_MOCK":
		c.IMUMock, err = parseBool(key, value)

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value, "0=±2g, 1=±4g, 2=±8g, 3=±16g")
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value, "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s")
	case "IMU_ALIGNMENT":
		c.IMUAlignment = value
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// AHRS
	case "AHRS_CONVENTION":
		c.AHRSConvention, err = fusion.ParseConvention(value)
	case "AHRS_GAIN":
		c.AHRSGain, err = parseNonNegative(key, value)
	case "AHRS_GYRO_RANGE":
		c.AHRSGyroRange, err = parseNonNegative(key, value)
	case "AHRS_ACCEL_REJECTION":
		c.AHRSAccelRejection, err = parseNonNegative(key, value)
	case "AHRS_MAG_REJECTION":
		c.AHRSMagRejection, err = parseNonNegative(key, value)
	case "AHRS_RECOVERY_PERIOD":
		c.AHRSRecoveryPeriod, err = parseNonNegative(key, value)
	case "AHRS_HEADING_SOURCE":
		switch v := strings.ToLower(value); v {
		case "magnetometer", "external", "none":
			c.AHRSHeadingSource = v
		default:
			return fmt.Errorf("AHRS_HEADING_SOURCE must be magnetometer, external or none, got %q", value)
		}
	case "AHRS_SEED":
		c.AHRSSeed, err = parseBool(key, value)
	case "AHRS_OFFSET_CORRECTION":
		c.AHRSOffsetCorrection, err = parseBool(key, value)
	case "AHRS_EXTERNAL_HEADING_TTL":
		c.AHRSExternalHeadingTTL, err = parseInt(key, value)
	case "AHRS_PUBLISH_EVERY":
		c.AHRSPublishEverySamples, err = parseInt(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)
	case "GPS_MIN_SPEED_KNOTS":
		c.GPSMinSpeedKnots, err = parseNonNegative(key, value)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseNonNegative(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite non-negative number, got %q", key, value)
	}
	return v, nil
}

func parseRange(key, value, help string) (byte, error) {
	rangeVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if rangeVal < 0 || rangeVal > 3 {
		return 0, fmt.Errorf("%s must be 0-3 (%s), got %d", key, help, rangeVal)
	}
	return byte(rangeVal), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.IMULeftSPIDevice == "" && !c.IMUMock {
		return fmt.Errorf("IMU_LEFT_SPI_DEVICE is required unless IMU_MOCK=true")
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive")
	}
	if c.AHRSHeadingSource == "external" && c.TopicGPS == "" {
		return fmt.Errorf("TOPIC_GPS is required when AHRS_HEADING_SOURCE=external")
	}
	if c.AHRSPublishEverySamples <= 0 {
		return fmt.Errorf("AHRS_PUBLISH_EVERY must be positive")
	}
	return nil
}

// SampleRate is the IMU sampling rate in Hz.
func (c *Config) SampleRate() int {
	return max(1, int(math.Round(1000/float64(c.IMUSampleInterval))))
}

// SampleInterval is IMU_SAMPLE_INTERVAL as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.IMUSampleInterval) * time.Millisecond
}

// gyroSaturationMargin scales the IMU full scale into the saturation
// threshold. A clipped reading (32767 counts) sits just below full scale.
const gyroSaturationMargin = 0.98

// FusionSettings converts the AHRS keys into fusion settings. The recovery
// period is converted from seconds to samples, and a zero AHRS_GYRO_RANGE
// falls back to 98% of the IMU full scale.
func (c *Config) FusionSettings(imuGyroFullScale float64) fusion.Settings {
	gyroRange := c.AHRSGyroRange
	if gyroRange == 0 {
		gyroRange = gyroSaturationMargin * imuGyroFullScale
	}
	return fusion.Settings{
		Convention:            c.AHRSConvention,
		Gain:                  c.AHRSGain,
		GyroscopeRange:        gyroRange,
		AccelerationRejection: c.AHRSAccelRejection,
		MagneticRejection:     c.AHRSMagRejection,
		RecoveryTriggerPeriod: int(math.Round(c.AHRSRecoveryPeriod * float64(c.SampleRate()))),
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
