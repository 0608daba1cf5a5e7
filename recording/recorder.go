package recording

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Observer reports the current channel values of an actuator.
type Observer interface {
	Observe() (map[string]float64, error)
}

// Sink receives recorded frames.
type Sink interface {
	WriteFrame(Frame) error
}

// Recorder samples an Observer at a fixed rate and writes each sample to a Sink.
type Recorder struct {
	source    Observer
	sink      Sink
	frameRate float64
}

// NewRecorder samples source frameRate times per second.
func NewRecorder(source Observer, sink Sink, frameRate float64) (*Recorder, error) {
	if frameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %v", frameRate)
	}
	return &Recorder{source: source, sink: sink, frameRate: frameRate}, nil
}

// Run records until ctx is done and returns the number of frames written.
// Each frame is stamped with its scheduled slot, so timestamps are exact
// multiples of the frame interval starting at 0.
func (r *Recorder) Run(ctx context.Context) (int, error) {
	interval := time.Duration(float64(time.Second) / r.frameRate)
	written := 0

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	start := time.Now()
	deadline := start

	for {
		if ctx.Err() != nil {
			return written, nil
		}

		state, err := r.source.Observe()
		if err != nil {
			return written, fmt.Errorf("observe: %w", err)
		}
		frame := Frame{Timestamp: deadline.Sub(start).Seconds(), State: state}
		if err := r.sink.WriteFrame(frame); err != nil {
			return written, fmt.Errorf("write frame %d: %w", written, err)
		}
		written++

		deadline = deadline.Add(interval)
		wait := time.Until(deadline)
		if wait <= 0 {
			logger.With(zap.Duration("behind", -wait)).Debug("Recorder cannot keep up with frame rate")
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return written, nil
		case <-timer.C:
		}
	}
}
