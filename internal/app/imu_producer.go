// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/inertial_ahrs/internal/calibration"
	"github.com/relabs-tech/inertial_ahrs/internal/config"
	"github.com/relabs-tech/inertial_ahrs/internal/gps"
	"github.com/relabs-tech/inertial_ahrs/internal/imu"
	"github.com/relabs-tech/inertial_ahrs/internal/orientation"
	"github.com/relabs-tech/inertial_ahrs/internal/sensors"
	"golang.org/x/sync/errgroup"
)

// frameBuffer bounds the sampler to publisher queue. Frames are dropped when
// it is full so that a slow broker never delays sampling.
const frameBuffer = 32

// mockGyroscopeRange is the full scale assumed for the simulated IMU (°/s).
const mockGyroscopeRange = 2000

// frame is one published sample.
type frame struct {
	state orientation.State
	raw   *imu.IMURaw
}

// estimatorOptions builds the orientation pipeline options from cfg.
func estimatorOptions(cfg *config.Config, gyroFullScale float64) (orientation.Options, error) {
	opts := orientation.DefaultOptions()
	opts.Settings = cfg.FusionSettings(gyroFullScale)
	opts.Seed = cfg.AHRSSeed

	alignment, err := calibration.ParseAlignment(cfg.IMUAlignment)
	if err != nil {
		return opts, fmt.Errorf("IMU_ALIGNMENT: %w", err)
	}
	opts.Alignment = alignment

	coefficients, err := calibration.Load(cfg.CalibrationFile)
	if err != nil {
		return opts, err
	}
	opts.Calibration = coefficients

	heading, err := orientation.ParseHeadingSource(cfg.AHRSHeadingSource)
	if err != nil {
		return opts, err
	}
	opts.Heading = heading

	if cfg.AHRSOffsetCorrection {
		opts.SampleRate = cfg.SampleRate()
	}
	return opts, nil
}

// openIMU returns the configured sample source and its gyroscope full scale.
func openIMU(cfg *config.Config, logger *slog.Logger) (imu.Source, float64, error) {
	if cfg.IMUMock {
		logger.Info("using mock IMU source")
		return imu.NewMockSource(cfg.SampleInterval()), mockGyroscopeRange, nil
	}

	scale, err := imu.ScaleForRanges(cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return nil, 0, err
	}
	raw, err := sensors.NewIMUSourceLeft(cfg, logger)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to initialize left IMU: %w", err)
	}
	return imu.NewScaledSource(raw, scale), scale.GyroscopeRange, nil
}

// producer samples the IMU, runs the estimator and publishes the results.
type producer struct {
	source    imu.Source
	estimator *orientation.Estimator
	pub       publisher
	heading   *gpsHeading // nil unless the heading source is external
	logger    *slog.Logger

	interval     time.Duration // 0 samples as fast as the source allows
	publishEvery int

	topicPoseFused string
	topicAHRS      string
	topicIMU       string

	now func() time.Time
}

func (p *producer) run(ctx context.Context) error {
	frames := make(chan frame, frameBuffer)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		return p.sample(ctx, frames)
	})
	g.Go(func() error {
		p.publish(frames)
		return nil
	})
	return g.Wait()
}

// sample runs until ctx is done or the source is exhausted.
func (p *producer) sample(ctx context.Context, frames chan<- frame) error {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var n, dropped, readErrors int
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if p.heading != nil {
			p.heading.expire(p.now())
		}

		s, err := p.source.Next()
		if errors.Is(err, io.EOF) {
			p.logger.Info("IMU source exhausted", "samples", n, "dropped", dropped)
			return nil
		}
		if err != nil {
			readErrors++
			// log the first error of a run, then every 100th
			if readErrors%100 == 1 {
				p.logger.Warn("error reading IMU", "error", err, "count", readErrors)
			}
			continue
		}
		readErrors = 0

		state := p.estimator.Update(s)
		n++
		if n%p.publishEvery != 0 {
			continue
		}

		select {
		case frames <- frame{state: state, raw: s.Raw}:
		default:
			dropped++
			p.logger.Debug("publisher busy, frame dropped", "dropped", dropped)
		}
	}
}

func (p *producer) publish(frames <-chan frame) {
	for f := range frames {
		if err := publishJSON(p.pub, p.topicPoseFused, f.state.Pose); err != nil {
			p.logger.Warn("publish failed", "error", err)
			continue
		}
		if err := publishJSON(p.pub, p.topicAHRS, f.state); err != nil {
			p.logger.Warn("publish failed", "error", err)
		}
		if f.raw != nil {
			if err := publishJSON(p.pub, p.topicIMU, f.raw); err != nil {
				p.logger.Warn("publish failed", "error", err)
			}
		}
	}
}

// RunInertialProducer reads the IMU, fuses it and publishes orientation to
// MQTT until ctx is cancelled.
func RunInertialProducer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting inertial AHRS producer")

	source, gyroFullScale, err := openIMU(cfg, logger)
	if err != nil {
		return err
	}

	opts, err := estimatorOptions(cfg, gyroFullScale)
	if err != nil {
		return err
	}
	estimator, err := orientation.NewEstimator(opts, logger)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	p := &producer{
		source:         source,
		estimator:      estimator,
		pub:            mqttPublisher{client: client},
		logger:         logger,
		interval:       cfg.SampleInterval(),
		publishEvery:   cfg.AHRSPublishEverySamples,
		topicPoseFused: cfg.TopicPoseFused,
		topicAHRS:      cfg.TopicAHRS,
		topicIMU:       cfg.TopicIMULeft,
		now:            time.Now,
	}

	if opts.Heading == orientation.HeadingExternal {
		p.heading = newGPSHeading(estimator, opts.Settings.Convention, cfg.GPSMinSpeedKnots,
			time.Duration(cfg.AHRSExternalHeadingTTL)*time.Second, logger)
		err := subscribeJSON(client, cfg.TopicGPS, logger, func(f gps.Fix, _ []byte) {
			p.heading.handleFix(f, time.Now())
		})
		if err != nil {
			return err
		}
	}

	logger.Info("publish loop running",
		"interval", p.interval,
		"publish_every", p.publishEvery,
		"topics", []string{p.topicPoseFused, p.topicAHRS, p.topicIMU})

	if err := p.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("producer stopped")
	return nil
}
