package recording

import (
	"fmt"
	"sort"
)

// Frame is one timestamped snapshot of actuator channel values.
type Frame struct {
	Timestamp float64
	State     map[string]float64
}

// Sequence is an ordered, immutable list of frames loaded from storage.
type Sequence struct {
	name     string
	frames   []Frame
	channels []string
}

// NewSequence validates frames and builds a Sequence. The frames are copied.
func NewSequence(name string, frames []Frame) (*Sequence, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: recording %s has no frames", ErrMalformed, name)
	}

	seen := make(map[string]struct{})
	copied := make([]Frame, len(frames))
	for i, f := range frames {
		if i > 0 && f.Timestamp < frames[i-1].Timestamp {
			return nil, fmt.Errorf("%w: recording %s frame %d timestamp %v before %v",
				ErrMalformed, name, i, f.Timestamp, frames[i-1].Timestamp)
		}
		state := make(map[string]float64, len(f.State))
		for ch, v := range f.State {
			state[ch] = v
			seen[ch] = struct{}{}
		}
		copied[i] = Frame{Timestamp: f.Timestamp, State: state}
	}

	channels := make([]string, 0, len(seen))
	for ch := range seen {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	return &Sequence{name: name, frames: copied, channels: channels}, nil
}

// Name is the recording name.
func (s *Sequence) Name() string { return s.name }

// Len is the number of recorded frames, always at least one.
func (s *Sequence) Len() int { return len(s.frames) }

// Frame returns frame i. Callers must not modify the returned state.
func (s *Sequence) Frame(i int) Frame { return s.frames[i] }

func (s *Sequence) First() Frame { return s.frames[0] }

func (s *Sequence) Last() Frame { return s.frames[len(s.frames)-1] }

// Channels returns the sorted union of channel names across all frames.
func (s *Sequence) Channels() []string {
	out := make([]string, len(s.channels))
	copy(out, s.channels)
	return out
}

// Duration is the span between the first and last timestamps, in seconds.
func (s *Sequence) Duration() float64 {
	return s.Last().Timestamp - s.First().Timestamp
}
