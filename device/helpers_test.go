package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lamp/recording"
)

// journal is an ordered log shared by drivers and listeners.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *journal) index(entry string) int {
	for i, e := range j.snapshot() {
		if e == entry {
			return i
		}
	}
	return -1
}

func (j *journal) listener() PlaybackListener {
	return func(ev PlaybackEvent) {
		j.add("%s:%s", ev.Type, ev.Recording)
	}
}

// fakeDriver records every call.
type fakeDriver struct {
	connectErr error
	commandErr error
	delay      time.Duration
	observed   State
	journal    *journal

	inflight    atomic.Int32
	maxInflight atomic.Int32

	mu          sync.Mutex
	connects    int
	disconnects int
	commands    []State
	times       []time.Time
}

func (f *fakeDriver) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeDriver) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeDriver) Command(state State) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.commandErr != nil {
		return f.commandErr
	}

	f.mu.Lock()
	f.commands = append(f.commands, state.Clone())
	f.times = append(f.times, time.Now())
	f.mu.Unlock()
	if f.journal != nil {
		f.journal.add("cmd:%v", state["x"])
	}
	return nil
}

func (f *fakeDriver) Observe() (State, error) {
	return f.observed.Clone(), nil
}

func (f *fakeDriver) sent() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]State, len(f.commands))
	copy(out, f.commands)
	return out
}

func (f *fakeDriver) sentTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.times))
	copy(out, f.times)
	return out
}

func (f *fakeDriver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func (f *fakeDriver) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeDriver) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// ramp builds n frames 10ms apart with x = offset + i.
func ramp(n int, offset float64) []recording.Frame {
	frames := make([]recording.Frame, n)
	for i := range frames {
		frames[i] = recording.Frame{
			Timestamp: float64(i) * 0.01,
			State:     map[string]float64{"x": offset + float64(i)},
		}
	}
	return frames
}

func mustSequence(t *testing.T, name string, frames []recording.Frame) *recording.Sequence {
	t.Helper()
	seq, err := recording.NewSequence(name, frames)
	require.NoError(t, err)
	return seq
}

const testActuator = "lelamp"

func newTestLoader(recordings map[string][]recording.Frame) *recording.Loader {
	store := recording.NewMemoryStore()
	for name, frames := range recordings {
		store.Put(name, testActuator, frames)
	}
	return recording.NewLoader(store, testActuator)
}
