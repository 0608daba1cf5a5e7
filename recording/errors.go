package recording

import "errors"

var (
	// ErrNotFound is returned when no recording matches a name and actuator.
	ErrNotFound = errors.New("recording not found")

	// ErrMalformed is returned when a recording cannot be parsed into a sequence.
	ErrMalformed = errors.New("malformed recording")

	// ErrNoSamples is returned when a recording session ends without a frame.
	ErrNoSamples = errors.New("no samples recorded")
)
