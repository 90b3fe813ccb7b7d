// Package relay provides Relay implementations that move observer
// notifications off the dispatching goroutine, and helpers tying a
// subscription's lifetime to a context.
package relay

import (
	"context"
	"sync"
)

// Queue runs notifications one at a time, in submission order, on its own
// goroutine. It stops, dropping whatever is still pending, when Clear is
// called or its context is done.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
}

// NewQueue starts a Queue bound to ctx
func NewQueue(ctx context.Context) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// OnTransition implements relayfsm.Relay
func (q *Queue) OnTransition(fn func()) {
	if q.ctx.Err() != nil {
		return
	}
	q.mu.Lock()
	// the worker may have drained and exited since the check above
	if q.ctx.Err() != nil {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Clear implements relayfsm.Relay. It does not wait for a notification that
// is already running; use Done for that.
func (q *Queue) Clear() {
	q.cancel()
}

// Done is closed once the worker goroutine has exited
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Pending returns the number of notifications not yet started
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			q.mu.Lock()
			q.pending = nil
			q.mu.Unlock()
			return
		case <-q.wake:
		}

		for q.ctx.Err() == nil {
			q.mu.Lock()
			if len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			fn := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			fn()
		}
	}
}
