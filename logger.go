package relayfsm

import (
	"fmt"
	"log/slog"
)

// Logger receives the machine's dispatch milestones. Implementations must be
// safe for concurrent use and must not call back into the machine.
type Logger interface {
	EventReceived(state StateID, event EventID)
	EventUnhandled(state StateID, event EventID)
	StateRetained(state StateID)
	StateChanged(from, to StateID)
	SideEffectEmitted(state StateID, effect EffectID)
	ObserverFailed(state StateID, recovered any)
	ReducerOverridden(state StateID, event EventID)
}

// SlogLogger writes machine milestones to a slog.Logger
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger; dispatch steps are logged at Debug
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) EventReceived(state StateID, event EventID) {
	l.logger.Debug("processing event", "state", state, "event", event)
}

func (l *SlogLogger) EventUnhandled(state StateID, event EventID) {
	l.logger.Debug("no transition found", "state", state, "event", event)
}

func (l *SlogLogger) StateRetained(state StateID) {
	l.logger.Debug("staying in current state", "state", state)
}

func (l *SlogLogger) StateChanged(from, to StateID) {
	l.logger.Debug("state transition", "from", from, "to", to)
}

func (l *SlogLogger) SideEffectEmitted(state StateID, effect EffectID) {
	l.logger.Debug("side effect", "state", state, "effect", effect)
}

func (l *SlogLogger) ObserverFailed(state StateID, recovered any) {
	l.logger.Error("observer panicked", "state", state, "panic", fmt.Sprint(recovered))
}

func (l *SlogLogger) ReducerOverridden(state StateID, event EventID) {
	l.logger.Warn("reducer registered twice, keeping the last one", "state", state, "event", event)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) EventReceived(StateID, EventID)      {}
func (NopLogger) EventUnhandled(StateID, EventID)     {}
func (NopLogger) StateRetained(StateID)               {}
func (NopLogger) StateChanged(StateID, StateID)       {}
func (NopLogger) SideEffectEmitted(StateID, EffectID) {}
func (NopLogger) ObserverFailed(StateID, any)         {}
func (NopLogger) ReducerOverridden(StateID, EventID)  {}

// MultiLogger fans every call out to each logger in order
type MultiLogger []Logger

func (m MultiLogger) EventReceived(state StateID, event EventID) {
	for _, l := range m {
		l.EventReceived(state, event)
	}
}

func (m MultiLogger) EventUnhandled(state StateID, event EventID) {
	for _, l := range m {
		l.EventUnhandled(state, event)
	}
}

func (m MultiLogger) StateRetained(state StateID) {
	for _, l := range m {
		l.StateRetained(state)
	}
}

func (m MultiLogger) StateChanged(from, to StateID) {
	for _, l := range m {
		l.StateChanged(from, to)
	}
}

func (m MultiLogger) SideEffectEmitted(state StateID, effect EffectID) {
	for _, l := range m {
		l.SideEffectEmitted(state, effect)
	}
}

func (m MultiLogger) ObserverFailed(state StateID, recovered any) {
	for _, l := range m {
		l.ObserverFailed(state, recovered)
	}
}

func (m MultiLogger) ReducerOverridden(state StateID, event EventID) {
	for _, l := range m {
		l.ReducerOverridden(state, event)
	}
}
