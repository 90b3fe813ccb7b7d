package relayfsm

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Machine is the runtime FSM instance
type Machine[S State, E Event, F SideEffect] struct {
	graph    graph[S, E, F]
	registry Registry[S]
	logger   Logger
	queue    eventQueue

	mu        sync.Mutex
	observers []*Observer[S, F] // replaced on write, never mutated in place
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*machineOptions)

type machineOptions struct {
	logger   Logger
	registry any
}

// WithLogger sets the logger for the machine
func WithLogger(logger Logger) MachineOption {
	return func(o *machineOptions) {
		o.logger = logger
	}
}

// WithRegistry replaces the default state registry. Build fails if the
// registry does not hold the machine's state type.
func WithRegistry[S any](registry Registry[S]) MachineOption {
	return func(o *machineOptions) {
		o.registry = registry
	}
}

// CurrentState returns the state committed by the latest completed transition
func (m *Machine[S, E, F]) CurrentState() S {
	return m.registry.Get()
}

// PostEvent queues an event for processing. If no other call is draining the
// queue the event is processed before PostEvent returns, on the calling
// goroutine; otherwise it is processed by the draining goroutine, in order.
// A reducer panic propagates out of the PostEvent call that was draining.
func (m *Machine[S, E, F]) PostEvent(event E) {
	m.queue.post(func() { m.onEvent(event) })
}

// Observe registers an observer configured by configure and immediately
// notifies it of entering the current state. A nil relay means SyncRelay.
func (m *Machine[S, E, F]) Observe(relay Relay, configure func(*Observer[S, F])) (*Subscription, error) {
	if relay == nil {
		relay = SyncRelay{}
	}
	o := newObserver[S, F](relay, m.logger)
	if configure != nil {
		configure(o)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("configure observer: %w", err)
	}

	m.mu.Lock()
	m.observers = append(slices.Clip(m.observers), o)
	current := m.registry.Get()
	m.mu.Unlock()

	o.notifyEnter(current)

	return newSubscription(func() { m.detach(o) }), nil
}

func (m *Machine[S, E, F]) detach(o *Observer[S, F]) {
	o.detached.Store(true)
	m.mu.Lock()
	if i := slices.Index(m.observers, o); i >= 0 {
		m.observers = slices.Delete(slices.Clone(m.observers), i, i+1)
	}
	m.mu.Unlock()
	o.relay.Clear()
}

// commit stores state and returns the observers that must hear about it
func (m *Machine[S, E, F]) commit(state S) []*Observer[S, F] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.Set(state)
	return m.observers
}

func (m *Machine[S, E, F]) snapshot() []*Observer[S, F] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observers
}

// onEvent handles a single event. It runs with the queue stopped so events
// posted by reducers and observers wait until this one has fully completed.
func (m *Machine[S, E, F]) onEvent(event E) {
	m.queue.stop()

	current := m.registry.Get()
	m.logger.EventReceived(current.StateID(), event.EventID())

	reducer, ok := m.graph.reducer(current.StateID(), event.EventID())
	if !ok {
		m.logger.EventUnhandled(current.StateID(), event.EventID())
		m.queue.start()
		return
	}

	transition := reducer(event, current)

	// The registry update and the snapshot happen under the observer lock,
	// so an observer added concurrently either sees this transition or
	// replays the new state, never both.
	var observers []*Observer[S, F]
	if statesEqual(current, transition.NewState) {
		m.logger.StateRetained(current.StateID())
		observers = m.snapshot()
	} else {
		observers = m.commit(transition.NewState)
		m.logger.StateChanged(current.StateID(), transition.NewState.StateID())
		for _, o := range observers {
			o.notifyExit(current)
		}
		for _, o := range observers {
			o.notifyEnter(transition.NewState)
		}
	}

	if effect, ok := transition.effect(); ok {
		state := m.registry.Get().StateID()
		m.logger.SideEffectEmitted(state, effect.EffectID())
		for _, o := range observers {
			o.notifySideEffect(state, effect)
		}
	}

	m.queue.start()
}

// statesEqual compares by value: through an Equal method when the state
// has one, structurally otherwise
func statesEqual[S State](a, b S) bool {
	if eq, ok := any(a).(interface{ Equal(S) bool }); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
