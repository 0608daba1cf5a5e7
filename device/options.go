package device

import (
	"go.uber.org/zap"
)

// DefaultFrameRate is the playback rate used when none is configured.
const DefaultFrameRate = 30.0

type serviceOptions struct {
	frameRate float64
	logger    *zap.SugaredLogger
	listeners []PlaybackListener
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithFrameRate sets the default playback rate in Hz. Non-positive values are ignored.
func WithFrameRate(fps float64) Option {
	return func(o *serviceOptions) {
		if fps > 0 {
			o.frameRate = fps
		}
	}
}

// WithLogger replaces the service logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPlaybackListener registers fn for playback events. Listeners run on
// the service's execution goroutine and must not block.
func WithPlaybackListener(fn PlaybackListener) Option {
	return func(o *serviceOptions) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}
