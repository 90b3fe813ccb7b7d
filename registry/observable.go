package registry

import (
	"context"
	"sync"
)

// Observable is a Registry that republishes every committed state to its
// subscribers. Set never blocks on a slow subscriber: each subscriber has its
// own unbounded buffer drained by a goroutine.
type Observable[S any] struct {
	mu    sync.RWMutex
	state S
	set   bool
	subs  map[*subscriber[S]]struct{}
}

type subscriber[S any] struct {
	mu   sync.Mutex
	buf  []S
	wake chan struct{}
}

func (s *subscriber[S]) push(state S) {
	s.mu.Lock()
	s.buf = append(s.buf, state)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[S]) take() []S {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.buf
	s.buf = nil
	return buf
}

// NewObservable creates an empty Observable registry
func NewObservable[S any]() *Observable[S] {
	return &Observable[S]{subs: make(map[*subscriber[S]]struct{})}
}

// Get implements relayfsm.Registry
func (o *Observable[S]) Get() S {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Set implements relayfsm.Registry
func (o *Observable[S]) Set(state S) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
	o.set = true
	for sub := range o.subs {
		sub.push(state)
	}
}

// Subscribe returns a channel receiving the current state, if any, followed
// by every state set afterwards, in order. The channel is closed when ctx is
// done.
func (o *Observable[S]) Subscribe(ctx context.Context) <-chan S {
	sub := &subscriber[S]{wake: make(chan struct{}, 1)}
	out := make(chan S)

	o.mu.Lock()
	if o.set {
		sub.buf = append(sub.buf, o.state)
	}
	o.subs[sub] = struct{}{}
	o.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			o.mu.Lock()
			delete(o.subs, sub)
			o.mu.Unlock()
		}()
		for {
			for _, state := range sub.take() {
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-sub.wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Select projects every state published by o through fn, skipping states
// for which fn reports false and values equal to the previous one sent
func Select[S any, R comparable](ctx context.Context, o *Observable[S], fn func(S) (R, bool)) <-chan R {
	in := o.Subscribe(ctx)
	out := make(chan R)
	go func() {
		defer close(out)
		var last R
		var sent bool
		for state := range in {
			v, ok := fn(state)
			if !ok || (sent && v == last) {
				continue
			}
			select {
			case out <- v:
				last, sent = v, true
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
