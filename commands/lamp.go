package commands

import (
	"fmt"

	"go.uber.org/zap"

	"lamp/config"
	"lamp/device"
	"lamp/device/models"
	"lamp/recording"
)

// lightSuffix names the light actuator after the lamp: "lelamp" gets "lelamp-lights".
const lightSuffix = "-lights"

// lamp is one assembled lamp: a motor animation service and a light service
// over drivers built from the configuration.
type lamp struct {
	cfg     *config.Config
	store   *recording.CSVStore
	drivers struct{ motors, lights device.Driver }
	loader  *recording.Loader
	motors  *device.AnimationService
	lights  *device.Service
	manager *device.Manager
}

func newDriver(model string, params map[string]any) (device.Driver, error) {
	models.RegisterDriverTypes()
	d, err := device.CreateDriver(model, params)
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", model, err)
	}
	return d, nil
}

func buildLamp(cfg *config.Config, opts ...device.Option) (*lamp, error) {
	motorDriver, err := newDriver(cfg.Motors.Driver, cfg.MotorDriverConfig())
	if err != nil {
		return nil, err
	}
	lightDriver, err := newDriver(cfg.Lights.Driver, cfg.LightDriverConfig())
	if err != nil {
		return nil, err
	}
	return assembleLamp(cfg, motorDriver, lightDriver, opts...)
}

func assembleLamp(cfg *config.Config, motorDriver, lightDriver device.Driver, opts ...device.Option) (*lamp, error) {
	store := recording.NewCSVStore(cfg.RecordingsDir)
	loader := recording.NewLoader(store, cfg.LampID)

	opts = append([]device.Option{device.WithFrameRate(cfg.Animation.FrameRate)}, opts...)
	motors := device.NewAnimationService(cfg.LampID, motorDriver, loader, device.AnimationConfig{
		IdleRecording:      cfg.Animation.IdleRecording,
		TransitionDuration: cfg.Animation.Transition(),
	}, opts...)
	lights := device.NewLightService(cfg.LampID+lightSuffix, lightDriver, cfg.Lights.LedCount,
		device.NewDefaultPresets(), opts...)

	manager := device.NewManager()
	for _, a := range []device.Actuator{motors, lights} {
		if err := manager.Register(a); err != nil {
			return nil, err
		}
	}

	l := &lamp{
		cfg:     cfg,
		store:   store,
		loader:  loader,
		motors:  motors,
		lights:  lights,
		manager: manager,
	}
	l.drivers.motors = motorDriver
	l.drivers.lights = lightDriver
	return l, nil
}

// greet runs the configured startup recording and color.
func (l *lamp) greet() {
	if name := l.cfg.Animation.StartupRecording; name != "" {
		if !l.motors.Dispatch(device.EventPlay, name) {
			logger.With(zap.String("recording", name)).Warn("Startup recording not dispatched")
		}
	}
	if color := l.cfg.Lights.StartupColor; color != "" {
		if !l.lights.Dispatch(device.EventSolid, color) {
			logger.With(zap.String("color", color)).Warn("Startup color not dispatched")
		}
	}
}
