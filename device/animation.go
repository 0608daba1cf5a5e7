package device

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lamp/define"
	"lamp/recording"
)

const EventPlay = "play"

func recordingName(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty recording name")
		}
		return v, nil
	case map[string]any:
		if name, ok := v["name"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("play expects a recording name, got %T", payload)
}

// motorHandler plays recordings verbatim with no blend and no idle.
type motorHandler struct {
	loader *recording.Loader
}

// NewMotorService builds a plain playback service over loader's recordings.
func NewMotorService(id string, driver Driver, loader *recording.Loader, opts ...Option) *Service {
	return NewService(id, driver, &motorHandler{loader: loader}, opts...)
}

func (h *motorHandler) Kind() define.ActuatorKind { return define.KIND_MOTOR }

func (h *motorHandler) Events() []string { return []string{EventPlay} }

func (h *motorHandler) Resolve(event string, payload any) (Request, error) {
	name, err := recordingName(payload)
	if err != nil {
		return Request{}, err
	}
	seq, err := h.loader.Load(name)
	if err != nil {
		return Request{}, err
	}
	return Request{Name: name, Sequence: seq}, nil
}

func (h *motorHandler) SafeState(State) State { return nil }

func (h *motorHandler) Recordings() ([]string, error) { return h.loader.Available() }

// AnimationConfig configures an AnimationService.
type AnimationConfig struct {
	IdleRecording      string
	TransitionDuration time.Duration
}

// AnimationService plays recordings with a blended lead-in and falls back
// to an idle recording whenever a non-idle recording finishes on its own.
type AnimationService struct {
	*Service

	loader     *recording.Loader
	idleName   string
	transition time.Duration

	mu   sync.RWMutex
	idle *recording.Sequence
}

// NewAnimationService builds a motor service that idles between recordings.
func NewAnimationService(id string, driver Driver, loader *recording.Loader, cfg AnimationConfig, opts ...Option) *AnimationService {
	a := &AnimationService{
		loader:     loader,
		idleName:   cfg.IdleRecording,
		transition: cfg.TransitionDuration,
	}
	a.Service = NewService(id, driver, &animationHandler{a: a}, opts...)
	a.Service.afterFinish = a.resume
	return a
}

func (a *AnimationService) IdleRecording() string { return a.idleName }

func (a *AnimationService) TransitionDuration() time.Duration { return a.transition }

// Start loads the idle recording, starts the service and plays idle.
// A missing idle recording is logged; the service then simply rests after
// each playback.
func (a *AnimationService) Start() error {
	var idle *recording.Sequence
	if a.idleName != "" {
		seq, err := a.loader.Load(a.idleName)
		if err != nil {
			a.log.With(zap.String("recording", a.idleName), zap.Error(err)).Warn("Idle recording unavailable")
		} else {
			idle = seq
		}
	}
	a.mu.Lock()
	a.idle = idle
	a.mu.Unlock()

	started, err := a.start()
	if err != nil {
		return err
	}
	if started && idle != nil {
		a.Dispatch(EventPlay, a.idleName)
	}
	return nil
}

func (a *AnimationService) idleSequence() *recording.Sequence {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.idle
}

// resume picks what plays after prev finished naturally. Idle loops in
// place; anything else blends back into idle exactly once.
func (a *AnimationService) resume(prev Request) (Request, bool) {
	idle := a.idleSequence()
	if idle == nil {
		return Request{}, false
	}
	if prev.Idle {
		return Request{Name: a.idleName, Sequence: prev.Sequence, Idle: true}, true
	}
	a.stats.idleResumes.Add(1)
	a.log.With(zap.String("after", prev.Name)).Debug("Resuming idle")
	return Request{Name: a.idleName, Sequence: idle, Transition: a.transition, Idle: true}, true
}

type animationHandler struct {
	a *AnimationService
}

func (h *animationHandler) Kind() define.ActuatorKind { return define.KIND_MOTOR }

func (h *animationHandler) Events() []string { return []string{EventPlay} }

func (h *animationHandler) Resolve(event string, payload any) (Request, error) {
	name, err := recordingName(payload)
	if err != nil {
		return Request{}, err
	}
	seq, err := h.a.loader.Load(name)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Name:       name,
		Sequence:   seq,
		Transition: h.a.transition,
		Idle:       name == h.a.idleName,
	}, nil
}

func (h *animationHandler) SafeState(State) State { return nil }

func (h *animationHandler) Recordings() ([]string, error) { return h.a.loader.Available() }
