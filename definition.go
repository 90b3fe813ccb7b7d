package relayfsm

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrInvalidDefinition is wrapped by every error returned from Build for a
// definition that failed validation
var ErrInvalidDefinition = errors.New("invalid definition")

// Definition holds the transition graph before building a Machine
type Definition[S State, E Event, F SideEffect] struct {
	states    map[StateID]*StateDefinition[S, E, F]
	overrides []override
	errs      []error
}

// StateDefinition holds the reducers registered for one state variant
type StateDefinition[S State, E Event, F SideEffect] struct {
	id       StateID
	def      *Definition[S, E, F]
	reducers map[EventID]Reducer[S, E, F]
}

type override struct {
	state StateID
	event EventID
}

// NewDefinition creates a new transition graph builder
func NewDefinition[S State, E Event, F SideEffect]() *Definition[S, E, F] {
	return &Definition[S, E, F]{
		states: make(map[StateID]*StateDefinition[S, E, F]),
	}
}

// State registers reducers for a state variant. Calling State again for the
// same id adds to the existing definition.
func (d *Definition[S, E, F]) State(id StateID, configure func(*StateDefinition[S, E, F])) *Definition[S, E, F] {
	sd := d.state(id)
	if configure != nil {
		configure(sd)
	}
	return d
}

// Transition registers a single reducer for the (from, event) pair
func (d *Definition[S, E, F]) Transition(from StateID, event EventID, reducer Reducer[S, E, F]) *Definition[S, E, F] {
	d.state(from).On(event, reducer)
	return d
}

func (d *Definition[S, E, F]) state(id StateID) *StateDefinition[S, E, F] {
	if sd, ok := d.states[id]; ok {
		return sd
	}
	switch id {
	case "":
		d.errs = append(d.errs, fmt.Errorf("state with empty id"))
	case AnyState:
		d.errs = append(d.errs, fmt.Errorf("state id %q is reserved", id))
	}
	sd := &StateDefinition[S, E, F]{
		id:       id,
		def:      d,
		reducers: make(map[EventID]Reducer[S, E, F]),
	}
	d.states[id] = sd
	return sd
}

// On registers the reducer for an event received in this state.
// A second registration for the same event replaces the first.
func (sd *StateDefinition[S, E, F]) On(event EventID, reducer Reducer[S, E, F]) *StateDefinition[S, E, F] {
	if event == "" {
		sd.def.errs = append(sd.def.errs, fmt.Errorf("state %q: event with empty id", sd.id))
	}
	if reducer == nil {
		sd.def.errs = append(sd.def.errs, fmt.Errorf("state %q: nil reducer for event %q", sd.id, event))
	}
	if _, ok := sd.reducers[event]; ok {
		sd.def.overrides = append(sd.def.overrides, override{state: sd.id, event: event})
	}
	sd.reducers[event] = reducer
	return sd
}

// Events returns the event ids handled by this state, sorted
func (sd *StateDefinition[S, E, F]) Events() []EventID {
	ids := make([]EventID, 0, len(sd.reducers))
	for id := range sd.reducers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// States returns the ids of all defined states, sorted
func (d *Definition[S, E, F]) States() []StateID {
	ids := make([]StateID, 0, len(d.states))
	for id := range d.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the definition for errors
func (d *Definition[S, E, F]) Validate() error {
	return errors.Join(d.errs...)
}

// graph is the frozen lookup table used by a running Machine
type graph[S State, E Event, F SideEffect] map[StateID]map[EventID]Reducer[S, E, F]

func (g graph[S, E, F]) reducer(state StateID, event EventID) (Reducer[S, E, F], bool) {
	reducers, ok := g[state]
	if !ok {
		return nil, false
	}
	r, ok := reducers[event]
	return r, ok
}

func (d *Definition[S, E, F]) freeze() graph[S, E, F] {
	g := make(graph[S, E, F], len(d.states))
	for id, sd := range d.states {
		reducers := make(map[EventID]Reducer[S, E, F], len(sd.reducers))
		for ev, r := range sd.reducers {
			reducers[ev] = r
		}
		g[id] = reducers
	}
	return g
}

// Build creates a Machine in the given initial state. The machine works on a
// snapshot of the definition; later changes to d do not affect it.
func (d *Definition[S, E, F]) Build(initial S, opts ...MachineOption) (*Machine[S, E, F], error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if any(initial) == nil {
		return nil, fmt.Errorf("%w: no initial state", ErrInvalidDefinition)
	}

	var o machineOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine[S, E, F]{
		graph:  d.freeze(),
		logger: o.logger,
	}
	if m.logger == nil {
		m.logger = NewSlogLogger(slog.Default())
	}

	switch r := o.registry.(type) {
	case nil:
		m.registry = NewRegistry[S]()
	case Registry[S]:
		m.registry = r
	default:
		return nil, fmt.Errorf("registry %T does not hold %T states", o.registry, initial)
	}

	for _, ov := range d.overrides {
		m.logger.ReducerOverridden(ov.state, ov.event)
	}

	m.registry.Set(initial)
	return m, nil
}
