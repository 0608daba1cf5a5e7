package device

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"lamp/recording"
)

// overrunWarnInterval rate-limits overrun warnings per playback.
const overrunWarnInterval = 10 * time.Second

// Outcome is how a playback ended.
type Outcome int

const (
	OutcomeFinished Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// PlaybackOptions configures a single Playback.
type PlaybackOptions struct {
	FrameRate float64

	// BlendFrom is the last commanded state. It seeds the tracked state and,
	// when BlendDuration > 0, is the start of the blend prefix.
	BlendFrom     State
	BlendDuration time.Duration

	Logger *zap.SugaredLogger
}

// Result summarizes a finished, cancelled or failed playback.
type Result struct {
	Outcome  Outcome
	Commands int
	Overruns int
	Blended  int
	Err      error
}

// Playback steps one sequence onto a driver at a fixed frame rate.
type Playback struct {
	sequence *recording.Sequence
	driver   Driver
	opts     PlaybackOptions
	log      *zap.SugaredLogger
}

// NewPlayback validates opts and prepares sequence for driver.
func NewPlayback(sequence *recording.Sequence, driver Driver, opts PlaybackOptions) (*Playback, error) {
	if sequence == nil {
		return nil, fmt.Errorf("playback needs a sequence")
	}
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %v", opts.FrameRate)
	}
	if opts.BlendDuration < 0 {
		return nil, fmt.Errorf("blend duration must not be negative, got %v", opts.BlendDuration)
	}
	log := opts.Logger
	if log == nil {
		log = logger
	}
	return &Playback{sequence: sequence, driver: driver, opts: opts, log: log}, nil
}

// Interval is the time between two frames.
func (p *Playback) Interval() time.Duration {
	return time.Duration(float64(time.Second) / p.opts.FrameRate)
}

// blendFrames builds the linear transition from BlendFrom to the first
// recorded frame. Frame i sits at progress i/n, so the first recorded frame
// itself is never duplicated.
func (p *Playback) blendFrames() []map[string]float64 {
	if p.opts.BlendDuration <= 0 || len(p.opts.BlendFrom) == 0 {
		return nil
	}
	n := int(math.Round(p.opts.BlendDuration.Seconds() * p.opts.FrameRate))
	if n <= 0 {
		return nil
	}

	target := p.sequence.First().State
	frames := make([]map[string]float64, n)
	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n)
		frame := make(map[string]float64, len(target))
		for ch, to := range target {
			from, ok := p.opts.BlendFrom[ch]
			if !ok {
				from = to
			}
			frame[ch] = from + (to-from)*progress
		}
		frames[i] = frame
	}
	return frames
}

// Run plays the blend prefix followed by every recorded frame. It returns
// when the last frame's slot has elapsed, when ctx is cancelled, or when
// the driver rejects a command. The driver keeps its last commanded state.
func (p *Playback) Run(ctx context.Context) Result {
	blend := p.blendFrames()
	total := len(blend) + p.sequence.Len()
	interval := p.Interval()

	state := p.opts.BlendFrom.Clone()
	if state == nil {
		state = State{}
	}

	result := Result{Blended: len(blend)}
	var lastWarning time.Time

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	deadline := time.Now()
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			result.Outcome = OutcomeCancelled
			return result
		}

		if i < len(blend) {
			state.Merge(blend[i])
		} else {
			state.Merge(p.sequence.Frame(i - len(blend)).State)
		}

		if err := p.driver.Command(state.Clone()); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("frame %d of %s: %w", i, p.sequence.Name(), err)
			return result
		}
		result.Commands++

		deadline = deadline.Add(interval)
		wait := time.Until(deadline)
		if wait <= 0 {
			result.Overruns++
			if time.Since(lastWarning) > overrunWarnInterval {
				p.log.With(
					zap.Error(ErrFrameOverrun),
					zap.String("recording", p.sequence.Name()),
					zap.Int("frame", i),
					zap.Duration("behind", -wait)).
					Warn("Playback cannot keep up with frame rate")
				lastWarning = time.Now()
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			result.Outcome = OutcomeCancelled
			return result
		case <-timer.C:
		}
	}

	result.Outcome = OutcomeFinished
	return result
}
