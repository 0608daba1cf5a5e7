package recording

import (
	"sync"

	"go.uber.org/zap"

	"lamp/logging"
)

var logger = logging.New("recording")

// Loader resolves recording names for one actuator and caches parsed sequences.
type Loader struct {
	store      Store
	actuatorID string

	mu    sync.RWMutex
	cache map[string]*Sequence
}

// NewLoader loads actuatorID's recordings from store.
func NewLoader(store Store, actuatorID string) *Loader {
	return &Loader{
		store:      store,
		actuatorID: actuatorID,
		cache:      make(map[string]*Sequence),
	}
}

// ActuatorID is the suffix this loader reads recordings for.
func (l *Loader) ActuatorID() string { return l.actuatorID }

// Load returns the cached sequence for name, reading it from the store on a miss.
func (l *Loader) Load(name string) (*Sequence, error) {
	l.mu.RLock()
	seq, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return seq, nil
	}

	frames, err := l.store.Read(name, l.actuatorID)
	if err != nil {
		return nil, err
	}
	seq, err = NewSequence(name, frames)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[name] = seq
	l.mu.Unlock()

	logger.With(
		zap.String("recording", name),
		zap.String("actuator", l.actuatorID),
		zap.Int("frames", seq.Len()),
		zap.Strings("channels", seq.Channels())).
		Debug("Loaded recording")
	return seq, nil
}

// Invalidate drops name from the cache so the next Load rereads it.
func (l *Loader) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[name]; ok {
		delete(l.cache, name)
		logger.With(zap.String("recording", name)).Info("Recording cache invalidated")
	}
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*Sequence)
}

// Cached reports whether name is currently cached.
func (l *Loader) Cached(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[name]
	return ok
}

// Available lists the recordings stored for this actuator.
func (l *Loader) Available() ([]string, error) {
	return l.store.List(l.actuatorID)
}
