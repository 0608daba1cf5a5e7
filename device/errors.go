package device

import "errors"

var (
	// ErrConnection is returned by Start when the hardware cannot be reached.
	ErrConnection = errors.New("actuator connection failed")

	// ErrCancellationTimeout is returned by Stop when the execution goroutine
	// did not exit within the grace period. Shutdown still completes.
	ErrCancellationTimeout = errors.New("cancellation timed out")

	// ErrFrameOverrun marks a frame whose deadline had already passed. Logged only.
	ErrFrameOverrun = errors.New("frame deadline overrun")

	// ErrUnknownActuator is returned by Manager lookups.
	ErrUnknownActuator = errors.New("unknown actuator")

	// ErrUnknownModel is returned by CreateDriver for unregistered models.
	ErrUnknownModel = errors.New("unknown driver model")

	// ErrUnsupported is returned when an actuator kind lacks an optional capability.
	ErrUnsupported = errors.New("not supported by this actuator")
)
