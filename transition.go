package relayfsm

import "reflect"

// Transition is the result of a reducer: the state to move to and an
// optional side effect. A SideEffect that is nil or has an empty EffectID
// means the transition carries none, so string-like effect types can leave
// the field unset.
type Transition[S State, F SideEffect] struct {
	NewState   S
	SideEffect F
}

// Reducer computes the transition for an event received in the current state.
// It runs on the goroutine draining the event queue and must return
// synchronously; it may post further events to the machine.
type Reducer[S State, E Event, F SideEffect] func(event E, current S) Transition[S, F]

// effect reports the side effect carried by the transition, if any
func (t Transition[S, F]) effect() (F, bool) {
	var zero F
	switch e := any(t.SideEffect).(type) {
	case nil, NoSideEffect, *NoSideEffect:
		return zero, false
	case SideEffect:
		if isNilValue(e) || e.EffectID() == "" {
			return zero, false
		}
	}
	return t.SideEffect, true
}

// isNilValue reports a typed nil, such as a nil *T stored in an interface
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
