package models

import (
	"fmt"
	"time"
)

// Keys understood by the driver constructors.
const (
	KeyBridgeURL = "bridge_url"
	KeyPort      = "port"
	KeyStrip     = "strip"
	KeyLedCount  = "led_count"
	KeyGroup     = "group"
	KeyFade      = "fade"
	KeyInitial   = "initial"
)

func stringParam(cfg map[string]any, key, def string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func requiredString(cfg map[string]any, key string) (string, error) {
	s, err := stringParam(cfg, key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return s, nil
}

func intParam(cfg map[string]any, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

func durationParam(cfg map[string]any, key string, def time.Duration) (time.Duration, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		return time.ParseDuration(d)
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("%s must be a duration, got %T", key, v)
	}
}
