package relay

import (
	"context"

	"github.com/librescoot/relayfsm"
)

// Func adapts an executor, such as a UI loop's post function, to a Relay.
// The executor must run submitted functions in submission order.
type Func func(fn func())

// OnTransition implements relayfsm.Relay
func (f Func) OnTransition(fn func()) { f(fn) }

// Clear implements relayfsm.Relay; the executor owns its own lifetime
func (f Func) Clear() {}

// Until unsubscribes sub once ctx is done and reports when that happened.
// Unsubscribing earlier by hand also closes the returned channel and ends
// the watch.
func Until(ctx context.Context, sub *relayfsm.Subscription) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.Done():
		}
	}()
	return done
}

var (
	_ relayfsm.Relay = (*Queue)(nil)
	_ relayfsm.Relay = Func(nil)
)
