package relayfsm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrDuplicateHandler is returned by Observe when an observer registers two
// handlers for the same state or side effect slot
var ErrDuplicateHandler = errors.New("duplicate handler")

// Observer is a set of callbacks for state entry, state exit and side
// effects, configured once inside Machine.Observe
type Observer[S State, F SideEffect] struct {
	relay    Relay
	logger   Logger
	enter    map[StateID]func(S)
	exit     map[StateID]func(S)
	effects  map[EffectID]func(F)
	errs     []error
	detached atomic.Bool
}

func newObserver[S State, F SideEffect](relay Relay, logger Logger) *Observer[S, F] {
	return &Observer[S, F]{
		relay:   relay,
		logger:  logger,
		enter:   make(map[StateID]func(S)),
		exit:    make(map[StateID]func(S)),
		effects: make(map[EffectID]func(F)),
	}
}

// OnEnter registers fn to run whenever the machine enters state id.
// AnyState matches every state, after the state's own handler.
func (o *Observer[S, F]) OnEnter(id StateID, fn func(S)) *Observer[S, F] {
	if _, ok := o.enter[id]; ok {
		o.errs = append(o.errs, fmt.Errorf("%w: enter %q", ErrDuplicateHandler, id))
		return o
	}
	o.enter[id] = fn
	return o
}

// OnExit registers fn to run whenever the machine leaves state id
func (o *Observer[S, F]) OnExit(id StateID, fn func(S)) *Observer[S, F] {
	if _, ok := o.exit[id]; ok {
		o.errs = append(o.errs, fmt.Errorf("%w: exit %q", ErrDuplicateHandler, id))
		return o
	}
	o.exit[id] = fn
	return o
}

// OnSideEffect registers fn to run for every side effect of variant id.
// AnyEffect matches every side effect.
func (o *Observer[S, F]) OnSideEffect(id EffectID, fn func(F)) *Observer[S, F] {
	if _, ok := o.effects[id]; ok {
		o.errs = append(o.errs, fmt.Errorf("%w: side effect %q", ErrDuplicateHandler, id))
		return o
	}
	o.effects[id] = fn
	return o
}

func (o *Observer[S, F]) validate() error {
	for id, fn := range o.enter {
		if fn == nil {
			o.errs = append(o.errs, fmt.Errorf("nil enter handler for %q", id))
		}
	}
	for id, fn := range o.exit {
		if fn == nil {
			o.errs = append(o.errs, fmt.Errorf("nil exit handler for %q", id))
		}
	}
	for id, fn := range o.effects {
		if fn == nil {
			o.errs = append(o.errs, fmt.Errorf("nil side effect handler for %q", id))
		}
	}
	return errors.Join(o.errs...)
}

func (o *Observer[S, F]) notifyEnter(state S) {
	o.notifyState(o.enter, state)
}

func (o *Observer[S, F]) notifyExit(state S) {
	o.notifyState(o.exit, state)
}

// notifyState runs the handler registered for the state's variant, then the
// AnyState handler
func (o *Observer[S, F]) notifyState(handlers map[StateID]func(S), state S) {
	id := state.StateID()
	if fn, ok := handlers[id]; ok {
		o.dispatch(id, func() { fn(state) })
	}
	if fn, ok := handlers[AnyState]; ok {
		o.dispatch(id, func() { fn(state) })
	}
}

func (o *Observer[S, F]) notifySideEffect(state StateID, effect F) {
	if fn, ok := o.effects[effect.EffectID()]; ok {
		o.dispatch(state, func() { fn(effect) })
	}
	if fn, ok := o.effects[AnyEffect]; ok {
		o.dispatch(state, func() { fn(effect) })
	}
}

// dispatch hands fn to the relay. A panic in fn is reported to the logger
// and goes no further, so the other observers and the event queue proceed.
func (o *Observer[S, F]) dispatch(state StateID, fn func()) {
	if o.detached.Load() {
		return
	}
	o.relay.OnTransition(func() {
		if o.detached.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				o.logger.ObserverFailed(state, r)
			}
		}()
		fn()
	})
}

// Subscription detaches an observer from its machine
type Subscription struct {
	once   sync.Once
	cancel func()
	done   chan struct{}
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel, done: make(chan struct{})}
}

// Unsubscribe stops all further notifications and clears the observer's
// relay. Calling it more than once is safe.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// Done is closed once Unsubscribe has returned
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
