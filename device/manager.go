package device

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lamp/define"
)

// Actuator is the surface the manager and the HTTP API need from a service.
type Actuator interface {
	ID() string
	Kind() define.ActuatorKind
	Start() error
	Stop(timeout time.Duration) error
	Dispatch(event string, payload any) bool
	Status() Status
	Observe() (State, error)
	Recordings() ([]string, error)
}

var (
	_ Actuator = (*Service)(nil)
	_ Actuator = (*AnimationService)(nil)
)

// Manager keeps the actuator services of one lamp.
type Manager struct {
	mu        sync.RWMutex
	actuators map[string]Actuator
}

// NewManager returns an empty manager.
func NewManager() *Manager { return &Manager{actuators: make(map[string]Actuator)} }

// Register adds an actuator. IDs must be unique.
func (m *Manager) Register(a Actuator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := a.ID()
	if _, exists := m.actuators[id]; exists {
		return fmt.Errorf("actuator %s already registered", id)
	}
	m.actuators[id] = a
	return nil
}

// Get returns the actuator with id or ErrUnknownActuator.
func (m *Manager) Get(id string) (Actuator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actuators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	return a, nil
}

// List returns every actuator ordered by ID.
func (m *Manager) List() []Actuator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Actuator, 0, len(m.actuators))
	for _, a := range m.actuators {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Remove forgets the actuator without stopping it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.actuators[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	delete(m.actuators, id)
	return nil
}

// StartAll starts every actuator concurrently and returns the first error.
// Actuators that did start are left running.
func (m *Manager) StartAll() error {
	var g errgroup.Group
	for _, a := range m.List() {
		g.Go(a.Start)
	}
	return g.Wait()
}

// StopAll stops every actuator concurrently, each with its own timeout.
func (m *Manager) StopAll(timeout time.Duration) error {
	var g errgroup.Group
	for _, a := range m.List() {
		g.Go(func() error { return a.Stop(timeout) })
	}
	return g.Wait()
}
