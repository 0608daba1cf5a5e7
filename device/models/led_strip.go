package models

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lamp/communication"
	"lamp/device"
)

const (
	DefaultStrip    = "strip0"
	DefaultLedCount = 64
)

// LedStripDriver writes ledN.r/g/b channels to an addressable strip on the bridge.
type LedStripDriver struct {
	comm  communication.Communicator
	strip string
	count int

	mu   sync.Mutex
	last device.State
}

// NewLedStripDriver drives count LEDs on strip through comm.
func NewLedStripDriver(comm communication.Communicator, strip string, count int) *LedStripDriver {
	if strip == "" {
		strip = DefaultStrip
	}
	if count <= 0 {
		count = DefaultLedCount
	}
	return &LedStripDriver{comm: comm, strip: strip, count: count}
}

func newLedStripFromConfig(cfg map[string]any) (device.Driver, error) {
	url, err := requiredString(cfg, KeyBridgeURL)
	if err != nil {
		return nil, err
	}
	strip, err := stringParam(cfg, KeyStrip, DefaultStrip)
	if err != nil {
		return nil, err
	}
	count, err := intParam(cfg, KeyLedCount, DefaultLedCount)
	if err != nil {
		return nil, err
	}
	return NewLedStripDriver(communication.NewBridgeClient(url), strip, count), nil
}

func (d *LedStripDriver) LedCount() int { return d.count }

func (d *LedStripDriver) Connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()

	statuses, err := d.comm.GetAllPortStatuses(ctx)
	if err != nil {
		return fmt.Errorf("%w: bridge unreachable: %v", device.ErrConnection, err)
	}
	if !statuses[d.strip] {
		return fmt.Errorf("%w: strip %s is not active on the bridge", device.ErrConnection, d.strip)
	}
	logger.With(zap.String("strip", d.strip), zap.Int("leds", d.count)).Info("LED strip connected")
	return nil
}

func (d *LedStripDriver) Disconnect() error {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
	return nil
}

func (d *LedStripDriver) Command(state device.State) error {
	colors := device.LedColors(state, d.count)
	pixels := make([][3]uint8, len(colors))
	for i, c := range colors {
		pixels[i] = [3]uint8{c.R, c.G, c.B}
	}

	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()
	if err := d.comm.SendPixels(ctx, d.strip, pixels); err != nil {
		return err
	}

	d.mu.Lock()
	d.last = state.Clone()
	d.mu.Unlock()
	return nil
}

// Observe echoes the last frame written; the strip has no readback.
func (d *LedStripDriver) Observe() (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Clone(), nil
}
