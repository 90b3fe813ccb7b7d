// Package timer posts events to a machine after a delay.
//
// Timers are named; starting a timer with a name that is already running
// replaces it. A state-scoped timer is cancelled as soon as the machine
// leaves the state that was current when the timer started, so its event is
// never delivered to a later state.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/librescoot/relayfsm"
)

// Scope defines when a timer is automatically cancelled
type Scope int

const (
	// ScopeGlobal - timer lives until explicitly stopped or the scheduler closes
	ScopeGlobal Scope = iota
	// ScopeState - timer auto-cancelled when exiting the state that started it
	ScopeState
)

// entry tracks a running timer
type entry[E relayfsm.Event] struct {
	timer    *time.Timer
	event    E
	scope    Scope
	owner    relayfsm.StateID
	duration time.Duration
}

// Scheduler owns the named timers of one machine
type Scheduler[E relayfsm.Event] struct {
	post    func(E)
	current func() relayfsm.StateID
	logger  *slog.Logger
	sub     *relayfsm.Subscription

	mu     sync.Mutex
	timers map[string]*entry[E]
}

// Option is a functional option for configuring a Scheduler
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for the scheduler
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Scheduler posting to m. It observes m to clean up
// state-scoped timers; call Close to detach it.
func New[S relayfsm.State, E relayfsm.Event, F relayfsm.SideEffect](m *relayfsm.Machine[S, E, F], opts ...Option) (*Scheduler[E], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler[E]{
		post:    m.PostEvent,
		current: func() relayfsm.StateID { return m.CurrentState().StateID() },
		logger:  o.logger,
		timers:  make(map[string]*entry[E]),
	}

	sub, err := m.Observe(relayfsm.SyncRelay{}, func(obs *relayfsm.Observer[S, F]) {
		obs.OnExit(relayfsm.AnyState, func(state S) {
			s.cleanupForState(state.StateID())
		})
	})
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// Start starts a named timer that posts event after d. It is only cancelled
// by Stop, StopAll or Close.
func (s *Scheduler[E]) Start(name string, d time.Duration, event E) {
	s.start(name, d, event, ScopeGlobal, "")
}

// StartInState starts a named timer owned by the current state; leaving
// that state cancels it. Inside a reducer the current state is still the one
// being left, so call it from an OnEnter callback or use StartFor there.
func (s *Scheduler[E]) StartInState(name string, d time.Duration, event E) {
	s.start(name, d, event, ScopeState, s.current())
}

// StartFor starts a named timer owned by the given state. It is cancelled
// the next time the machine exits owner.
func (s *Scheduler[E]) StartFor(name string, d time.Duration, event E, owner relayfsm.StateID) {
	s.start(name, d, event, ScopeState, owner)
}

func (s *Scheduler[E]) start(name string, d time.Duration, event E, scope Scope, owner relayfsm.StateID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancel existing timer with same name
	if existing, ok := s.timers[name]; ok {
		existing.timer.Stop()
		delete(s.timers, name)
	}

	e := &entry[E]{
		event:    event,
		scope:    scope,
		owner:    owner,
		duration: d,
	}
	e.timer = time.AfterFunc(d, func() { s.fire(name, e) })
	s.timers[name] = e

	s.logger.Debug("timer started", "name", name, "duration", d, "event", event.EventID(), "state", owner)
}

func (s *Scheduler[E]) fire(name string, e *entry[E]) {
	s.mu.Lock()
	// Check timer still exists (wasn't cancelled or replaced)
	if s.timers[name] != e {
		s.mu.Unlock()
		return
	}
	delete(s.timers, name)
	s.mu.Unlock()

	s.logger.Debug("timer fired", "name", name, "event", e.event.EventID())
	s.post(e.event)
}

// Stop stops a timer by name. No-op if the timer doesn't exist.
func (s *Scheduler[E]) Stop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[name]; ok {
		e.timer.Stop()
		delete(s.timers, name)
		s.logger.Debug("timer stopped", "name", name)
	}
}

// Reset restarts a running timer with a new duration, keeping its event and
// scope. No-op if the timer doesn't exist.
func (s *Scheduler[E]) Reset(name string, d time.Duration) {
	s.mu.Lock()
	e, ok := s.timers[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(s.timers, name)
	s.mu.Unlock()

	s.start(name, d, e.event, e.scope, e.owner)
}

// Active reports whether a timer is running
func (s *Scheduler[E]) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// StopAll stops all running timers
func (s *Scheduler[E]) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, e := range s.timers {
		e.timer.Stop()
		s.logger.Debug("timer stopped (cleanup)", "name", name)
	}
	s.timers = make(map[string]*entry[E])
}

// Close stops all timers and detaches the scheduler from its machine
func (s *Scheduler[E]) Close() {
	s.sub.Unsubscribe()
	s.StopAll()
}

// cleanupForState cancels all state-scoped timers owned by the given state
func (s *Scheduler[E]) cleanupForState(state relayfsm.StateID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, e := range s.timers {
		if e.scope == ScopeState && e.owner == state {
			e.timer.Stop()
			delete(s.timers, name)
			s.logger.Debug("timer cleaned up (state exit)", "name", name, "state", state)
		}
	}
}
