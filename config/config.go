package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
)

// Config is the lamp configuration. Values come from GetDefaultConfig, then
// an optional JSON file, then LAMP_* environment variables.
type Config struct {
	LampID        string `json:"lamp_id" env:"LAMP_ID"`
	RecordingsDir string `json:"recordings_dir" env:"LAMP_RECORDINGS_DIR"`
	// WatchRecordings reloads recordings edited on disk while serving.
	WatchRecordings bool `json:"watch_recordings" env:"LAMP_WATCH_RECORDINGS"`

	Animation AnimationConfig `json:"animation"`
	Motors    MotorConfig     `json:"motors"`
	Lights    LightConfig     `json:"lights"`
	Server    ServerConfig    `json:"server"`

	BridgeURL string `json:"bridge_url" env:"LAMP_BRIDGE_URL"`
	LogLevel  string `json:"log_level" env:"LAMP_LOG_LEVEL"`
}

// AnimationConfig tunes playback and the idle behaviour of the motors.
type AnimationConfig struct {
	FrameRate          float64 `json:"frame_rate" env:"LAMP_FRAME_RATE"`
	IdleRecording      string  `json:"idle_recording" env:"LAMP_IDLE_RECORDING"`
	TransitionSeconds  float64 `json:"transition_seconds" env:"LAMP_TRANSITION_SECONDS"`
	StopTimeoutSeconds float64 `json:"stop_timeout_seconds" env:"LAMP_STOP_TIMEOUT_SECONDS"`
	// StartupRecording is played once the services are up. Empty disables it.
	StartupRecording string `json:"startup_recording" env:"LAMP_STARTUP_RECORDING"`
}

// MotorConfig selects the motor driver and its serial port.
type MotorConfig struct {
	Driver string `json:"driver" env:"LAMP_MOTOR_DRIVER"`
	Port   string `json:"port" env:"LAMP_MOTOR_PORT"`
}

// LightConfig selects the light driver and the LED layout.
type LightConfig struct {
	Driver    string  `json:"driver" env:"LAMP_LIGHT_DRIVER"`
	Strip     string  `json:"strip" env:"LAMP_LED_STRIP"`
	LedCount  int     `json:"led_count" env:"LAMP_LED_COUNT"`
	LifxGroup string  `json:"lifx_group" env:"LAMP_LIFX_GROUP"`
	LifxFade  float64 `json:"lifx_fade_seconds" env:"LAMP_LIFX_FADE_SECONDS"`
	// StartupColor is shown once the services are up. Empty disables it.
	StartupColor string `json:"startup_color" env:"LAMP_STARTUP_COLOR"`
}

// ServerConfig is the HTTP API listener.
type ServerConfig struct {
	Port       int    `json:"port" env:"LAMP_WEB_PORT"`
	Host       string `json:"host" env:"LAMP_WEB_HOST"`
	EnableCORS bool   `json:"enable_cors" env:"LAMP_ENABLE_CORS"`
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() *Config {
	return &Config{
		LampID:          "lelamp",
		RecordingsDir:   "recordings",
		WatchRecordings: true,
		Animation: AnimationConfig{
			FrameRate:          30,
			IdleRecording:      "idle",
			TransitionSeconds:  3.0,
			StopTimeoutSeconds: 2.0,
			StartupRecording:   "wake_up",
		},
		Motors: MotorConfig{
			Driver: "motor_bridge",
			Port:   "/dev/ttyACM0",
		},
		Lights: LightConfig{
			Driver:       "strip_bridge",
			Strip:        "strip0",
			LedCount:     40,
			LifxGroup:    "LAMP",
			LifxFade:     0.05,
			StartupColor: "white",
		},
		Server: ServerConfig{
			Port:       8080,
			Host:       "0.0.0.0",
			EnableCORS: true,
		},
		BridgeURL: "http://localhost:8081",
		LogLevel:  "info",
	}
}

// LoadConfig reads a JSON file over the defaults. Fields missing from the
// file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := GetDefaultConfig()

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load builds the effective configuration. A missing file at configPath is
// not an error; an empty path skips the file entirely.
func Load(configPath string) (*Config, error) {
	cfg := GetDefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	for _, section := range []any{cfg, &cfg.Animation, &cfg.Motors, &cfg.Lights, &cfg.Server} {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("failed to parse environment: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as indented JSON.
func SaveConfig(cfg *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.LampID == "" {
		errs = append(errs, errors.New("lamp_id must not be empty"))
	}
	if c.Animation.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame_rate must be positive, got %v", c.Animation.FrameRate))
	}
	if c.Animation.TransitionSeconds < 0 {
		errs = append(errs, fmt.Errorf("transition_seconds must not be negative, got %v", c.Animation.TransitionSeconds))
	}
	if c.Lights.LedCount <= 0 {
		errs = append(errs, fmt.Errorf("led_count must be positive, got %d", c.Lights.LedCount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Transition is the blend-in duration before a recording.
func (a AnimationConfig) Transition() time.Duration {
	return seconds(a.TransitionSeconds)
}

// StopTimeout is the grace period given to a stopping service.
func (a AnimationConfig) StopTimeout() time.Duration {
	return seconds(a.StopTimeoutSeconds)
}

func (l LightConfig) Fade() time.Duration {
	return seconds(l.LifxFade)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// MotorDriverConfig returns the constructor parameters for the motor driver.
func (c *Config) MotorDriverConfig() map[string]any {
	return map[string]any{
		"bridge_url": c.BridgeURL,
		"port":       c.Motors.Port,
	}
}

// LightDriverConfig returns the constructor parameters for the light driver.
func (c *Config) LightDriverConfig() map[string]any {
	return map[string]any{
		"bridge_url": c.BridgeURL,
		"strip":      c.Lights.Strip,
		"led_count":  c.Lights.LedCount,
		"group":      c.Lights.LifxGroup,
		"fade":       c.Lights.Fade(),
	}
}
