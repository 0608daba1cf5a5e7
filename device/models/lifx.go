package models

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"lamp/device"
)

const (
	DefaultLifxGroup   = "LAMP"
	defaultLifxFade    = 50 * time.Millisecond
	lifxDiscoveryLimit = 5 * time.Second
	lifxKelvin         = 3500
)

// LifxDriver mirrors the LED channels onto a LIFX group as a single color,
// the average of every LED.
type LifxDriver struct {
	groupName string
	ledCount  int
	fade      time.Duration

	mu     sync.Mutex
	client *golifx.Client
	group  common.Group
	last   device.State
}

// NewLifxDriver mirrors ledCount LEDs onto the LIFX group groupName.
func NewLifxDriver(groupName string, ledCount int, fade time.Duration) *LifxDriver {
	if groupName == "" {
		groupName = DefaultLifxGroup
	}
	if ledCount <= 0 {
		ledCount = DefaultLedCount
	}
	if fade < 0 {
		fade = defaultLifxFade
	}
	return &LifxDriver{groupName: groupName, ledCount: ledCount, fade: fade}
}

func newLifxFromConfig(cfg map[string]any) (device.Driver, error) {
	group, err := stringParam(cfg, KeyGroup, DefaultLifxGroup)
	if err != nil {
		return nil, err
	}
	count, err := intParam(cfg, KeyLedCount, DefaultLedCount)
	if err != nil {
		return nil, err
	}
	fade, err := durationParam(cfg, KeyFade, defaultLifxFade)
	if err != nil {
		return nil, err
	}
	return NewLifxDriver(group, count, fade), nil
}

// Connect discovers the group by label on the LAN.
func (d *LifxDriver) Connect() error {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return fmt.Errorf("%w: lifx client: %v", device.ErrConnection, err)
	}
	client.SetDiscoveryInterval(15 * time.Second)

	logger.With(zap.String("group", d.groupName)).Info("LIFX discovery starting...")

	type found struct {
		group common.Group
		err   error
	}
	completed := make(chan found, 1)
	go func() {
		g, err := client.GetGroupByLabel(d.groupName)
		completed <- found{g, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), lifxDiscoveryLimit)
	defer cancel()

	select {
	case <-ctx.Done():
		client.Close()
		return fmt.Errorf("%w: lifx group %s not found within %v", device.ErrConnection, d.groupName, lifxDiscoveryLimit)
	case res := <-completed:
		if res.err != nil || res.group == nil {
			client.Close()
			return fmt.Errorf("%w: lifx group %s: %v", device.ErrConnection, d.groupName, res.err)
		}
		if err := res.group.SetPower(true); err != nil {
			logger.With(zap.Error(err)).Warn("Failed to power on LIFX group")
		}
		d.mu.Lock()
		d.client = client
		d.group = res.group
		d.mu.Unlock()
		logger.With(zap.String("group", res.group.GetLabel())).Info("LIFX group found")
		return nil
	}
}

func (d *LifxDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.group == nil {
		return nil
	}

	var err error
	if perr := d.group.SetPower(false); perr != nil {
		err = fmt.Errorf("power off %s: %w", d.groupName, perr)
	}
	d.client.Close()
	d.client = nil
	d.group = nil
	d.last = nil
	return err
}

func (d *LifxDriver) Command(state device.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.group == nil {
		return fmt.Errorf("lifx group %s not connected", d.groupName)
	}

	if err := d.group.SetColor(lifxColor(averageColor(device.LedColors(state, d.ledCount))), d.fade); err != nil {
		return err
	}
	d.last = state.Clone()
	return nil
}

func (d *LifxDriver) Observe() (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Clone(), nil
}

func averageColor(colors []device.Color) device.Color {
	if len(colors) == 0 {
		return device.Color{}
	}
	var r, g, b int
	for _, c := range colors {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(colors)
	return device.Color{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}

func lifxColor(c device.Color) common.Color {
	hue, saturation, brightness := rgbToHsb(c.R, c.G, c.B)
	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     lifxKelvin,
	}
}
