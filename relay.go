package relayfsm

// Relay decides where observer notifications run. Every notification for an
// observer goes through its relay's OnTransition. A relay may defer or move
// calls to another goroutine but must run them in the order received and
// must not drop them until Clear is called.
type Relay interface {
	OnTransition(fn func())
	// Clear releases the relay's resources; calls still pending may be
	// discarded and no new ones may be scheduled afterwards.
	Clear()
}

// SyncRelay runs notifications inline on the dispatching goroutine
type SyncRelay struct{}

// OnTransition implements Relay
func (SyncRelay) OnTransition(fn func()) { fn() }

// Clear implements Relay
func (SyncRelay) Clear() {}
