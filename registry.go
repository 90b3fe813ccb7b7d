package relayfsm

import "sync/atomic"

// Registry owns the machine's current state. The Machine is its only writer;
// Set must run any change hooks synchronously before returning. The Machine
// calls Set while holding its observer lock, so Set and its hooks must not
// call Observe or Unsubscribe on that machine.
type Registry[S any] interface {
	Get() S
	Set(state S)
}

// ValueRegistry is the default Registry: an atomic value plus optional hooks
// called on every Set
type ValueRegistry[S any] struct {
	value atomic.Pointer[S]
	hooks []func(S)
}

// NewRegistry creates a ValueRegistry calling hooks, in order, on every Set
func NewRegistry[S any](hooks ...func(S)) *ValueRegistry[S] {
	return &ValueRegistry[S]{hooks: hooks}
}

// Get returns the latest state, or the zero value before the first Set
func (r *ValueRegistry[S]) Get() S {
	if p := r.value.Load(); p != nil {
		return *p
	}
	var zero S
	return zero
}

// Set stores the state and runs the hooks
func (r *ValueRegistry[S]) Set(state S) {
	r.value.Store(&state)
	for _, hook := range r.hooks {
		hook(state)
	}
}
