// Package metrics counts machine activity in Prometheus.
//
// A Collector is both a relayfsm.Logger and a prometheus.Collector: pass it
// to Build with relayfsm.WithLogger (combined with a SlogLogger through
// relayfsm.MultiLogger if log lines are still wanted) and register it.
package metrics

import (
	"github.com/librescoot/relayfsm"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector turns dispatch milestones into counters
type Collector struct {
	events           *prometheus.CounterVec
	unhandled        *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	sideEffects      *prometheus.CounterVec
	observerFailures *prometheus.CounterVec
	overrides        *prometheus.CounterVec
}

var (
	_ relayfsm.Logger      = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// NewCollector creates the counters. constLabels, typically a machine name,
// are attached to every series so several machines can share a registry.
func NewCollector(constLabels prometheus.Labels) *Collector {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "relayfsm",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	return &Collector{
		events:           counter("events_total", "Events processed, by current state and event", "state", "event"),
		unhandled:        counter("events_unhandled_total", "Events dropped for lack of a reducer", "state", "event"),
		transitions:      counter("transitions_total", "State changes, by source and target state", "from", "to"),
		sideEffects:      counter("side_effects_total", "Side effects emitted", "effect"),
		observerFailures: counter("observer_failures_total", "Observer callbacks that panicked", "state"),
		overrides:        counter("reducer_overrides_total", "Reducers replaced by a later registration", "state", "event"),
	}
}

func (c *Collector) vecs() []*prometheus.CounterVec {
	return []*prometheus.CounterVec{c.events, c.unhandled, c.transitions, c.sideEffects, c.observerFailures, c.overrides}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, v := range c.vecs() {
		v.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, v := range c.vecs() {
		v.Collect(ch)
	}
}

func (c *Collector) EventReceived(state relayfsm.StateID, event relayfsm.EventID) {
	c.events.WithLabelValues(string(state), string(event)).Inc()
}

func (c *Collector) EventUnhandled(state relayfsm.StateID, event relayfsm.EventID) {
	c.unhandled.WithLabelValues(string(state), string(event)).Inc()
}

func (c *Collector) StateRetained(relayfsm.StateID) {}

func (c *Collector) StateChanged(from, to relayfsm.StateID) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (c *Collector) SideEffectEmitted(_ relayfsm.StateID, effect relayfsm.EffectID) {
	c.sideEffects.WithLabelValues(string(effect)).Inc()
}

func (c *Collector) ObserverFailed(state relayfsm.StateID, _ any) {
	c.observerFailures.WithLabelValues(string(state)).Inc()
}

func (c *Collector) ReducerOverridden(state relayfsm.StateID, event relayfsm.EventID) {
	c.overrides.WithLabelValues(string(state), string(event)).Inc()
}
