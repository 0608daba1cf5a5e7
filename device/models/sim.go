package models

import (
	"fmt"
	"sync"

	"lamp/device"
)

// SimDriver is an in-memory actuator for dry runs. It accepts every command
// and reports the last one back from Observe.
type SimDriver struct {
	mu        sync.Mutex
	connected bool
	state     device.State
	commands  int
}

// NewSimDriver starts out reporting initial.
func NewSimDriver(initial device.State) *SimDriver {
	return &SimDriver{state: initial.Clone()}
}

func newSimFromConfig(cfg map[string]any) (device.Driver, error) {
	initial := device.State{}
	if raw, ok := cfg[KeyInitial]; ok && raw != nil {
		values, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s must be an object, got %T", KeyInitial, raw)
		}
		for ch, v := range values {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("%s.%s must be a number", KeyInitial, ch)
			}
			initial[ch] = f
		}
	}
	return NewSimDriver(initial), nil
}

func (d *SimDriver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *SimDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *SimDriver) Command(state device.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return fmt.Errorf("sim driver not connected")
	}
	d.state = state.Clone()
	d.commands++
	return nil
}

func (d *SimDriver) Observe() (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone(), nil
}

// Commands returns how many commands were accepted.
func (d *SimDriver) Commands() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commands
}

// Connected reports whether Connect was called without a later Disconnect.
func (d *SimDriver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}
