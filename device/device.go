package device

import (
	"sort"
	"sync"

	"lamp/logging"
)

var logger = logging.New("device")

// State maps channel names to their commanded values.
type State map[string]float64

func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge copies values onto s. Channels not present in values are left alone.
func (s State) Merge(values map[string]float64) {
	for k, v := range values {
		s[k] = v
	}
}

// Channels returns the sorted channel names of s.
func (s State) Channels() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Driver is the boundary to one piece of actuator hardware.
type Driver interface {
	Connect() error            // open the hardware connection
	Disconnect() error         // release the hardware (torque off, strip dark)
	Command(state State) error // write a full channel state
	Observe() (State, error)   // read the current state, if the hardware supports it
}

// guardedDriver serializes driver access and remembers the last state
// successfully written to the hardware.
type guardedDriver struct {
	mu     sync.Mutex
	driver Driver
	last   State
}

func newGuardedDriver(d Driver) *guardedDriver {
	return &guardedDriver{driver: d, last: State{}}
}

func (g *guardedDriver) Connect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Connect()
}

func (g *guardedDriver) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Disconnect()
}

func (g *guardedDriver) Command(state State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.driver.Command(state); err != nil {
		return err
	}
	g.last = state.Clone()
	return nil
}

func (g *guardedDriver) Observe() (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Observe()
}

// Last returns a copy of the last commanded state.
func (g *guardedDriver) Last() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last.Clone()
}

func (g *guardedDriver) seed(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = state.Clone()
}
