package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"lamp/define"
	"lamp/recording"
)

// DefaultStopTimeout is used by Stop when given a non-positive timeout.
const DefaultStopTimeout = 2 * time.Second

// Request is a resolved playback request.
type Request struct {
	Name       string
	Sequence   *recording.Sequence
	Transition time.Duration // blend prefix length, 0 for none
	Idle       bool
	FrameRate  float64 // overrides the service rate when > 0
}

// Handler turns dispatched events into playback requests for one actuator kind.
type Handler interface {
	Kind() define.ActuatorKind
	Events() []string
	Resolve(event string, payload any) (Request, error)
	// SafeState is commanded on Stop before disconnecting. nil skips the command.
	SafeState(last State) State
}

// PlaybackEventType identifies a playback transition reported to listeners.
type PlaybackEventType string

const (
	PlaybackStarted   PlaybackEventType = "started"
	PlaybackFinished  PlaybackEventType = "finished"
	PlaybackCancelled PlaybackEventType = "cancelled"
	PlaybackFailed    PlaybackEventType = "failed"
)

// PlaybackEvent reports a playback starting or ending.
type PlaybackEvent struct {
	ActuatorID string
	Recording  string
	Type       PlaybackEventType
	Idle       bool
	Commands   int
	Err        error
}

// PlaybackListener receives playback events on the service goroutine.
type PlaybackListener func(PlaybackEvent)

// Counters are cumulative since the service was created.
type Counters struct {
	Dispatched  int64 `json:"dispatched"`
	Dropped     int64 `json:"dropped"`
	Superseded  int64 `json:"superseded"`
	Started     int64 `json:"started"`
	Finished    int64 `json:"finished"`
	Cancelled   int64 `json:"cancelled"`
	Failed      int64 `json:"failed"`
	Commands    int64 `json:"commands"`
	Overruns    int64 `json:"overruns"`
	IdleResumes int64 `json:"idle_resumes"`
}

type counters struct {
	dispatched, dropped, superseded      atomic.Int64
	started, finished, cancelled, failed atomic.Int64
	commands, overruns, idleResumes      atomic.Int64
}

func (c *counters) snapshot() Counters {
	return Counters{
		Dispatched:  c.dispatched.Load(),
		Dropped:     c.dropped.Load(),
		Superseded:  c.superseded.Load(),
		Started:     c.started.Load(),
		Finished:    c.finished.Load(),
		Cancelled:   c.cancelled.Load(),
		Failed:      c.failed.Load(),
		Commands:    c.commands.Load(),
		Overruns:    c.overruns.Load(),
		IdleResumes: c.idleResumes.Load(),
	}
}

// Status is a point-in-time view of a service.
type Status struct {
	ID        string              `json:"id"`
	Kind      define.ActuatorKind `json:"kind"`
	State     define.ServiceState `json:"state"`
	Current   string              `json:"current,omitempty"`
	Events    []string            `json:"events"`
	LastState State               `json:"last_state"`
	Counters  Counters            `json:"counters"`
}

type activePlayback struct {
	req    Request
	cancel context.CancelFunc
	result chan Result
}

// Service owns one driver and runs at most one playback on it at a time.
// Producers talk to it only through Dispatch; the execution goroutine
// resolves commands, cancels and awaits the active playback, then starts
// the next one from the last commanded state.
type Service struct {
	id      string
	handler Handler
	events  map[string]struct{}
	driver  *guardedDriver
	opts    serviceOptions
	log     *zap.SugaredLogger

	// afterFinish may chain a follow-up request when a playback finishes naturally.
	afterFinish func(prev Request) (Request, bool)

	lifecycle sync.Mutex // serializes Start and Stop
	state     atomic.Int32
	cancel    context.CancelFunc
	done      chan struct{}

	inbox *inbox

	mu      sync.RWMutex
	current string

	stats counters
}

// NewService builds a stopped service. Most callers want one of the kind
// constructors instead.
func NewService(id string, driver Driver, handler Handler, opts ...Option) *Service {
	o := serviceOptions{frameRate: DefaultFrameRate, logger: logger}
	for _, opt := range opts {
		opt(&o)
	}

	events := make(map[string]struct{})
	for _, e := range handler.Events() {
		events[e] = struct{}{}
	}

	s := &Service{
		id:      id,
		handler: handler,
		events:  events,
		driver:  newGuardedDriver(driver),
		opts:    o,
		log:     o.logger.With(zap.String("actuator", id), zap.Stringer("kind", handler.Kind())),
		inbox:   newInbox(),
	}
	s.state.Store(int32(define.STATE_STOPPED))
	return s
}

func (s *Service) ID() string { return s.id }

func (s *Service) Kind() define.ActuatorKind { return s.handler.Kind() }

func (s *Service) FrameRate() float64 { return s.opts.frameRate }

// Events returns the recognized event types, sorted.
func (s *Service) Events() []string {
	out := make([]string, 0, len(s.events))
	for e := range s.events {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// State is the current lifecycle state.
func (s *Service) State() define.ServiceState {
	return define.ServiceState(s.state.Load())
}

func (s *Service) setState(st define.ServiceState) {
	s.state.Store(int32(st))
	s.log.With(zap.Stringer("state", st)).Debug("Lifecycle transition")
}

// Current returns the name of the recording being played, if any.
func (s *Service) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) setCurrent(name string) {
	s.mu.Lock()
	s.current = name
	s.mu.Unlock()
}

// Start connects the driver and launches the execution goroutine.
// Starting a running service is a no-op.
func (s *Service) Start() error {
	_, err := s.start()
	return err
}

// start reports whether this call moved the service to Running.
func (s *Service) start() (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if st := s.State(); st != define.STATE_STOPPED {
		return false, nil
	}

	s.setState(define.STATE_STARTING)
	if err := s.driver.Connect(); err != nil {
		s.setState(define.STATE_STOPPED)
		if !errors.Is(err, ErrConnection) {
			err = fmt.Errorf("%w: %w", ErrConnection, err)
		}
		s.log.With(zap.Error(err)).Error("Failed to connect actuator")
		return false, fmt.Errorf("start %s: %w", s.id, err)
	}

	if observed, err := s.driver.Observe(); err != nil {
		s.log.With(zap.Error(err)).Debug("Initial observe failed, starting from last commanded state")
	} else if len(observed) > 0 {
		s.driver.seed(observed)
	}

	s.inbox.drain()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.setState(define.STATE_RUNNING)
	go s.run(ctx, s.done)

	s.log.Info("Actuator service started")
	return true, nil
}

// Stop cancels the active playback, waits up to timeout for the execution
// goroutine, commands the safe state and disconnects. The service always
// ends Stopped; a missed grace period is reported as ErrCancellationTimeout.
func (s *Service) Stop(timeout time.Duration) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() != define.STATE_RUNNING {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	s.setState(define.STATE_STOPPING)
	s.cancel()

	var errs []error
	timer := time.NewTimer(timeout)
	select {
	case <-s.done:
		timer.Stop()
	case <-timer.C:
		err := fmt.Errorf("stop %s: %w after %v", s.id, ErrCancellationTimeout, timeout)
		s.log.With(zap.Error(err)).Warn("Execution goroutine did not exit in time, forcing shutdown")
		errs = append(errs, err)
	}

	if safe := s.handler.SafeState(s.driver.Last()); safe != nil {
		if err := s.driver.Command(safe); err != nil {
			s.log.With(zap.Error(err)).Warn("Failed to command safe state")
			errs = append(errs, fmt.Errorf("safe state: %w", err))
		}
	}
	if err := s.driver.Disconnect(); err != nil {
		s.log.With(zap.Error(err)).Warn("Failed to disconnect actuator")
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}

	s.inbox.drain()
	s.setCurrent("")
	s.setState(define.STATE_STOPPED)
	s.log.Info("Actuator service stopped")
	return errors.Join(errs...)
}

// Dispatch hands an event to the execution goroutine without blocking.
// It returns false when the event is not recognized or the service is not
// running; the event is dropped and logged.
func (s *Service) Dispatch(event string, payload any) bool {
	if _, ok := s.events[event]; !ok {
		s.stats.dropped.Add(1)
		s.log.With(zap.String("event", event)).Warn("Unknown event type, dropping")
		return false
	}
	if st := s.State(); st != define.STATE_RUNNING {
		s.stats.dropped.Add(1)
		s.log.With(zap.String("event", event), zap.Stringer("state", st)).Warn("Service not running, dropping event")
		return false
	}

	if s.inbox.put(Command{Type: event, Payload: payload}) {
		s.stats.superseded.Add(1)
		s.log.With(zap.String("event", event)).Debug("Replaced pending command")
	}
	s.stats.dispatched.Add(1)
	return true
}

// Observe reads the hardware state through the driver.
func (s *Service) Observe() (State, error) {
	return s.driver.Observe()
}

// LastState returns the last state commanded to the driver.
func (s *Service) LastState() State {
	return s.driver.Last()
}

// Recordings lists the recordings this actuator can play.
func (s *Service) Recordings() ([]string, error) {
	if l, ok := s.handler.(interface{ Recordings() ([]string, error) }); ok {
		return l.Recordings()
	}
	return nil, fmt.Errorf("%s: %w", s.id, ErrUnsupported)
}

// Status snapshots the service for the API.
func (s *Service) Status() Status {
	return Status{
		ID:        s.id,
		Kind:      s.handler.Kind(),
		State:     s.State(),
		Current:   s.Current(),
		Events:    s.Events(),
		LastState: s.driver.Last(),
		Counters:  s.stats.snapshot(),
	}
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var active *activePlayback
	for {
		var finished <-chan Result
		if active != nil {
			finished = active.result
		}

		select {
		case <-ctx.Done():
			if active != nil {
				s.halt(active)
			}
			return

		case <-s.inbox.signal:
			cmd, ok := s.inbox.take()
			if !ok {
				continue
			}
			req, err := s.handler.Resolve(cmd.Type, cmd.Payload)
			if err != nil {
				s.log.With(zap.String("event", cmd.Type), zap.Error(err)).Warn("Failed to resolve command, keeping current playback")
				continue
			}
			if active != nil {
				s.halt(active)
				active = nil
			}
			active = s.begin(ctx, req)

		case res := <-finished:
			prev := active.req
			active = nil
			s.settle(prev, res)
			if res.Outcome == OutcomeFinished && s.afterFinish != nil {
				if next, ok := s.afterFinish(prev); ok {
					active = s.begin(ctx, next)
				}
			}
		}
	}
}

// halt cancels a playback and waits for it to exit.
func (s *Service) halt(a *activePlayback) {
	a.cancel()
	s.settle(a.req, <-a.result)
}

func (s *Service) begin(ctx context.Context, req Request) *activePlayback {
	fps := req.FrameRate
	if fps <= 0 {
		fps = s.opts.frameRate
	}

	pb, err := NewPlayback(req.Sequence, s.driver, PlaybackOptions{
		FrameRate:     fps,
		BlendFrom:     s.driver.Last(),
		BlendDuration: req.Transition,
		Logger:        s.log,
	})
	if err != nil {
		s.log.With(zap.String("recording", req.Name), zap.Error(err)).Error("Cannot start playback")
		return nil
	}

	pctx, cancel := context.WithCancel(ctx)
	a := &activePlayback{req: req, cancel: cancel, result: make(chan Result, 1)}

	s.setCurrent(req.Name)
	s.stats.started.Add(1)
	s.log.With(
		zap.String("recording", req.Name),
		zap.Bool("idle", req.Idle),
		zap.Duration("transition", req.Transition),
		zap.Int("frames", req.Sequence.Len())).
		Debug("Playback started")
	s.notify(PlaybackEvent{ActuatorID: s.id, Recording: req.Name, Type: PlaybackStarted, Idle: req.Idle})

	go func() {
		a.result <- pb.Run(pctx)
	}()
	return a
}

// settle records the result of a playback that has fully exited.
func (s *Service) settle(req Request, res Result) {
	s.setCurrent("")
	s.stats.commands.Add(int64(res.Commands))
	s.stats.overruns.Add(int64(res.Overruns))

	ev := PlaybackEvent{ActuatorID: s.id, Recording: req.Name, Idle: req.Idle, Commands: res.Commands, Err: res.Err}
	log := s.log.With(zap.String("recording", req.Name), zap.Int("commands", res.Commands))
	switch res.Outcome {
	case OutcomeFinished:
		s.stats.finished.Add(1)
		ev.Type = PlaybackFinished
		log.Debug("Playback finished")
	case OutcomeCancelled:
		s.stats.cancelled.Add(1)
		ev.Type = PlaybackCancelled
		log.Debug("Playback cancelled")
	case OutcomeFailed:
		s.stats.failed.Add(1)
		ev.Type = PlaybackFailed
		log.With(zap.Error(res.Err)).Error("Playback failed")
	}
	s.notify(ev)
}

func (s *Service) notify(ev PlaybackEvent) {
	for _, fn := range s.opts.listeners {
		fn(ev)
	}
}
