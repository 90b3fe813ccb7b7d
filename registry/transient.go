// Package registry provides relayfsm.Registry variants that derive extra
// information from the stream of committed states.
package registry

import "sync"

// TransientState is implemented by states that should not be remembered as
// the last stable state, such as a progress indicator or an error toast
type TransientState interface {
	IsTransient() bool
}

// Transient is a Registry that also remembers the last state that was not
// transient, so a dismiss or undo can return to it
type Transient[S any] struct {
	mu               sync.RWMutex
	state            S
	lastNonTransient S
	hasNonTransient  bool
}

// NewTransient creates an empty Transient registry
func NewTransient[S any]() *Transient[S] {
	return &Transient[S]{}
}

// Get implements relayfsm.Registry
func (r *Transient[S]) Get() S {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Set implements relayfsm.Registry
func (r *Transient[S]) Set(state S) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	if t, ok := any(state).(TransientState); ok && t.IsTransient() {
		return
	}
	r.lastNonTransient = state
	r.hasNonTransient = true
}

// LastNonTransient returns the latest state that was not transient. ok is
// false if every state set so far was transient.
func (r *Transient[S]) LastNonTransient() (state S, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastNonTransient, r.hasNonTransient
}
