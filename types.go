package relayfsm

// StateID is the discriminant of a state variant
type StateID string

// EventID is the discriminant of an event variant
type EventID string

// EffectID is the discriminant of a side effect variant
type EffectID string

// Wildcards matching every variant in observer registrations
const (
	AnyState  StateID  = "*"
	AnyEffect EffectID = "*"
)

// State is implemented by every variant of a machine's state set.
// Variants of the same machine must return distinct ids.
type State interface {
	StateID() StateID
}

// Event is implemented by every variant of a machine's event set.
// Payload lives on the concrete variant type.
type Event interface {
	EventID() EventID
}

// SideEffect is implemented by every variant of a machine's side effect set
type SideEffect interface {
	EffectID() EffectID
}

// NoSideEffect is the side effect type for machines that never emit one
type NoSideEffect struct{}

// EffectID implements SideEffect
func (NoSideEffect) EffectID() EffectID { return "" }
