package relayfsm

import "sync"

// eventQueue is a stoppable FIFO of pending work.
//
// Draining is single-flight: the caller that finds the queue idle runs items
// until the queue is empty or stopped. Every other caller, including work
// posted from inside a running item, only enqueues. The mutex is held for
// queue bookkeeping only, never while an item runs.
type eventQueue struct {
	mu       sync.Mutex
	items    []func()
	stopped  bool
	draining bool
}

// post appends work and runs it unless the queue is stopped or already
// being drained
func (q *eventQueue) post(work func()) {
	q.mu.Lock()
	q.items = append(q.items, work)
	q.mu.Unlock()
	q.drain()
}

// stop makes the queue inert; posted work accumulates until start
func (q *eventQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
}

// start clears the inert flag and drains pending work. Called from inside a
// running item it only clears the flag; the active drain picks up the rest.
func (q *eventQueue) start() {
	q.mu.Lock()
	q.stopped = false
	q.mu.Unlock()
	q.drain()
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for !q.stopped && len(q.items) > 0 {
		work := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()
		q.run(work)
		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}

// run executes one item. If it panics the queue is left idle and runnable
// with the remaining items still queued, and the panic continues upward.
func (q *eventQueue) run(work func()) {
	completed := false
	defer func() {
		if completed {
			return
		}
		q.mu.Lock()
		q.draining = false
		q.stopped = false
		q.mu.Unlock()
	}()
	work()
	completed = true
}
