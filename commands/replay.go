package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lamp/device"
	"lamp/recording"
)

// ReplayOptions selects a recording by name or by file.
type ReplayOptions struct {
	Name      string
	File      string
	FrameRate float64
	Timeout   time.Duration
}

// Replay plays a single recording through a motor service with no idle and
// no blend, then stops the service.
func (c *Controller) Replay(ctx context.Context, opts ReplayOptions) error {
	name, frames, err := c.replayFrames(opts)
	if err != nil {
		return err
	}
	driver, err := newDriver(c.cfg.Motors.Driver, c.cfg.MotorDriverConfig())
	if err != nil {
		return err
	}

	ctx, stop := withSignals(ctx)
	defer stop()
	return c.replay(ctx, driver, name, frames, opts)
}

func (c *Controller) replayFrames(opts ReplayOptions) (string, []recording.Frame, error) {
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		frames, err := recording.ParseCSV(f)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", opts.File, err)
		}
		name, _ := strings.CutSuffix(filepath.Base(opts.File), ".csv")
		return name, frames, nil
	}

	if opts.Name == "" {
		return "", nil, errors.New("replay needs a recording name or --file")
	}
	frames, err := recording.NewCSVStore(c.cfg.RecordingsDir).Read(opts.Name, c.cfg.LampID)
	if err != nil {
		return "", nil, err
	}
	return opts.Name, frames, nil
}

func (c *Controller) replay(ctx context.Context, driver device.Driver, name string, frames []recording.Frame, opts ReplayOptions) error {
	store := recording.NewMemoryStore()
	store.Put(name, c.cfg.LampID, frames)

	fps := c.cfg.Animation.FrameRate
	if opts.FrameRate > 0 {
		fps = opts.FrameRate
	}

	outcome := make(chan device.PlaybackEvent, 1)
	svc := device.NewMotorService(c.cfg.LampID, driver, recording.NewLoader(store, c.cfg.LampID),
		device.WithFrameRate(fps),
		device.WithPlaybackListener(func(ev device.PlaybackEvent) {
			if ev.Type == device.PlaybackStarted {
				return
			}
			select {
			case outcome <- ev:
			default:
			}
		}))

	if err := svc.Start(); err != nil {
		return err
	}
	c.printf("Replaying %d frames of %s at %v fps\n", len(frames), name, fps)

	var err error
	if !svc.Dispatch(device.EventPlay, name) {
		err = fmt.Errorf("replay %s was not accepted", name)
	} else {
		var timeout <-chan time.Time
		if opts.Timeout > 0 {
			timer := time.NewTimer(opts.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}

		select {
		case ev := <-outcome:
			switch ev.Type {
			case device.PlaybackFinished:
				c.printf("Replayed %s: %d commands\n", name, ev.Commands)
			case device.PlaybackFailed:
				err = fmt.Errorf("replay %s failed: %w", name, ev.Err)
			default:
				err = fmt.Errorf("replay %s %s", name, ev.Type)
			}
		case <-timeout:
			err = fmt.Errorf("replay %s did not finish within %v", name, opts.Timeout)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	return errors.Join(err, svc.Stop(c.cfg.Animation.StopTimeout()))
}
