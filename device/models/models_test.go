package models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamp/device"
	"lamp/recording"
)

type fakeComm struct {
	mu        sync.Mutex
	statuses  map[string]bool
	statusErr error
	positions map[string]float64
	sent      []map[string]float64
	torque    []bool
	pixels    [][][3]uint8
}

func (f *fakeComm) SendPositions(_ context.Context, port string, positions map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, positions)
	return nil
}

func (f *fakeComm) ReadPositions(_ context.Context, port string) (map[string]float64, error) {
	return f.positions, nil
}

func (f *fakeComm) SetTorque(_ context.Context, port string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torque = append(f.torque, enabled)
	return nil
}

func (f *fakeComm) SendPixels(_ context.Context, strip string, pixels [][3]uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pixels = append(f.pixels, pixels)
	return nil
}

func (f *fakeComm) GetAllPortStatuses(context.Context) (map[string]bool, error) {
	return f.statuses, f.statusErr
}

func (f *fakeComm) SetServiceURL(string) {}

func (f *fakeComm) IsConnected() bool { return f.statusErr == nil }

func TestMotorBusDriver(t *testing.T) {
	comm := &fakeComm{
		statuses:  map[string]bool{DefaultMotorPort: true},
		positions: map[string]float64{BaseYaw.Channel(): 10},
	}
	d := NewMotorBusDriver(comm, "")
	assert.Equal(t, DefaultMotorPort, d.Port())

	require.NoError(t, d.Connect())
	assert.Equal(t, []bool{true}, comm.torque)

	require.NoError(t, d.Command(device.State{BaseYaw.Channel(): 1, WristRoll.Channel(): 2}))
	require.Len(t, comm.sent, 1)
	assert.Equal(t, 2.0, comm.sent[0]["wrist_roll.pos"])

	st, err := d.Observe()
	require.NoError(t, err)
	assert.Equal(t, device.State{"base_yaw.pos": 10}, st)

	require.NoError(t, d.Disconnect())
	assert.Equal(t, []bool{true, false}, comm.torque)
}

func TestMotorBusDriverConnectErrors(t *testing.T) {
	tests := []struct {
		name string
		comm *fakeComm
	}{
		{name: "bridge down", comm: &fakeComm{statusErr: errors.New("connection refused")}},
		{name: "port inactive", comm: &fakeComm{statuses: map[string]bool{DefaultMotorPort: false}}},
		{name: "port unknown", comm: &fakeComm{statuses: map[string]bool{"/dev/ttyUSB0": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMotorBusDriver(tt.comm, DefaultMotorPort).Connect()
			assert.ErrorIs(t, err, device.ErrConnection)
			assert.Empty(t, tt.comm.torque)
		})
	}
}

func TestLedStripDriver(t *testing.T) {
	comm := &fakeComm{statuses: map[string]bool{DefaultStrip: true}}
	d := NewLedStripDriver(comm, "", 2)
	require.NoError(t, d.Connect())

	st := device.LedState([]device.Color{{R: 255, G: 10, B: 0}, {R: 1, G: 2, B: 3}})
	require.NoError(t, d.Command(st))
	require.Len(t, comm.pixels, 1)
	assert.Equal(t, [][3]uint8{{255, 10, 0}, {1, 2, 3}}, comm.pixels[0])

	observed, err := d.Observe()
	require.NoError(t, err)
	assert.Equal(t, st, observed)

	assert.ErrorIs(t, NewLedStripDriver(&fakeComm{statuses: map[string]bool{}}, "", 2).Connect(), device.ErrConnection)
}

func TestRgbToHsb(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v uint16
	}{
		{name: "black", r: 0, g: 0, b: 0, h: 0, s: 0, v: 0},
		{name: "white", r: 255, g: 255, b: 255, h: 0, s: 0, v: 0xFFFF},
		{name: "red", r: 255, g: 0, b: 0, h: 0, s: 0xFFFF, v: 0xFFFF},
		{name: "green", r: 0, g: 255, b: 0, h: 21845, s: 0xFFFF, v: 0xFFFF},
		{name: "blue", r: 0, g: 0, b: 255, h: 43690, s: 0xFFFF, v: 0xFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := rgbToHsb(tt.r, tt.g, tt.b)
			assert.Equal(t, tt.h, h)
			assert.Equal(t, tt.s, s)
			assert.Equal(t, tt.v, v)
		})
	}
}

func TestAverageColor(t *testing.T) {
	assert.Equal(t, device.Color{}, averageColor(nil))
	assert.Equal(t, device.Color{R: 100, G: 50, B: 1},
		averageColor([]device.Color{{R: 200, G: 100, B: 3}, {R: 0, G: 0, B: 0}}))

	c := lifxColor(device.Color{R: 255})
	assert.Equal(t, uint16(lifxKelvin), c.Kelvin)
	assert.Equal(t, uint16(0xFFFF), c.Brightness)
}

func TestDriverFactory(t *testing.T) {
	RegisterDriverTypes()
	assert.Subset(t, device.GetSupportedModels(), []string{ModelMotorBridge, ModelStripBridge, ModelLifx, ModelSim})

	d, err := device.CreateDriver(ModelSim, map[string]any{KeyInitial: map[string]any{"x": 1.5}})
	require.NoError(t, err)
	st, err := d.Observe()
	require.NoError(t, err)
	assert.Equal(t, device.State{"x": 1.5}, st)

	_, err = device.CreateDriver(ModelMotorBridge, map[string]any{})
	assert.Error(t, err)

	d, err = device.CreateDriver(ModelStripBridge, map[string]any{KeyBridgeURL: "http://localhost:8081", KeyLedCount: float64(12)})
	require.NoError(t, err)
	assert.Equal(t, 12, d.(*LedStripDriver).LedCount())

	d, err = device.CreateDriver(ModelLifx, map[string]any{KeyFade: "200ms"})
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, d.(*LifxDriver).fade)

	_, err = device.CreateDriver(ModelLifx, map[string]any{KeyFade: true})
	assert.Error(t, err)
}

func TestSimDriverUnderAnimationService(t *testing.T) {
	store := recording.NewMemoryStore()
	store.Put("idle", "lelamp", []recording.Frame{
		{Timestamp: 0, State: map[string]float64{BaseYaw.Channel(): 0}},
		{Timestamp: 0.01, State: map[string]float64{BaseYaw.Channel(): 1}},
	})
	sim := NewSimDriver(nil)
	svc := device.NewAnimationService("lelamp", sim, recording.NewLoader(store, "lelamp"),
		device.AnimationConfig{IdleRecording: "idle"}, device.WithFrameRate(100))

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return sim.Commands() >= 4 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop(time.Second))
	assert.False(t, sim.Connected())
}
