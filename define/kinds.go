package define

import "fmt"

// ActuatorKind tells which family of events an actuator service understands.
type ActuatorKind int

const (
	KIND_UNKNOWN ActuatorKind = iota
	KIND_MOTOR
	KIND_LIGHT
)

func (k ActuatorKind) String() string {
	switch k {
	case KIND_MOTOR:
		return "motor"
	case KIND_LIGHT:
		return "light"
	}
	return "unknown"
}

func ActuatorKindFromString(s string) ActuatorKind {
	switch s {
	case "motor", "motors":
		return KIND_MOTOR
	case "light", "rgb":
		return KIND_LIGHT
	}
	return KIND_UNKNOWN
}

func (k ActuatorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ServiceState is the lifecycle state of an actuator service.
type ServiceState int32

const (
	STATE_STOPPED ServiceState = iota
	STATE_STARTING
	STATE_RUNNING
	STATE_STOPPING
)

func (s ServiceState) String() string {
	switch s {
	case STATE_STOPPED:
		return "stopped"
	case STATE_STARTING:
		return "starting"
	case STATE_RUNNING:
		return "running"
	case STATE_STOPPING:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

func (s ServiceState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
