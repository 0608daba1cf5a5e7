package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lamp/device"
	"lamp/recording"
)

// RecordOptions names the new recording and its sampling.
type RecordOptions struct {
	Name      string
	FrameRate float64
	Duration  time.Duration
}

// driverObserver lets the recorder sample a device driver.
type driverObserver struct {
	driver device.Driver
}

func (o driverObserver) Observe() (map[string]float64, error) {
	return o.driver.Observe()
}

// Record samples the motor positions into a new recording until interrupted
// or until opts.Duration has passed.
func (c *Controller) Record(ctx context.Context, opts RecordOptions) error {
	driver, err := newDriver(c.cfg.Motors.Driver, c.cfg.MotorDriverConfig())
	if err != nil {
		return err
	}
	ctx, stop := withSignals(ctx)
	defer stop()

	_, err = c.record(ctx, driver, recording.NewCSVStore(c.cfg.RecordingsDir), opts)
	return err
}

func (c *Controller) record(ctx context.Context, driver device.Driver, store *recording.CSVStore, opts RecordOptions) (n int, err error) {
	if opts.Name == "" {
		return 0, errors.New("record needs a recording name")
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = c.cfg.Animation.FrameRate
	}

	if err := driver.Connect(); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, driver.Disconnect())
	}()
	if free, ok := driver.(interface{ ReleaseTorque() error }); ok {
		if err := free.ReleaseTorque(); err != nil {
			logger.With(zap.Error(err)).Warn("Failed to release torque, joints may resist")
		}
	}

	w, err := store.Create(opts.Name, c.cfg.LampID)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	rec, err := recording.NewRecorder(driverObserver{driver}, w, opts.FrameRate)
	if err != nil {
		return 0, err
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	path := store.Path(opts.Name, c.cfg.LampID)
	c.printf("Recording %s at %v fps, interrupt to finish\n", path, opts.FrameRate)
	n, err = rec.Run(ctx)
	if err != nil {
		return n, fmt.Errorf("record %s: %w", opts.Name, err)
	}
	c.printf("Recorded %d frames to %s\n", n, path)
	return n, nil
}
