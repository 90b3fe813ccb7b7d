package metrics_test

import (
	"strings"
	"testing"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lamp string

func (l lamp) StateID() relayfsm.StateID { return relayfsm.StateID(l) }

type press string

func (p press) EventID() relayfsm.EventID { return relayfsm.EventID(p) }

type click string

func (c click) EffectID() relayfsm.EffectID { return relayfsm.EffectID(c) }

type lampTransition = relayfsm.Transition[lamp, click]

func newLamp(t *testing.T, c *metrics.Collector) *relayfsm.Machine[lamp, press, click] {
	t.Helper()
	m, err := relayfsm.NewDefinition[lamp, press, click]().
		Transition("off", "switch", func(press, lamp) lampTransition { return lampTransition{NewState: "off"} }).
		Transition("off", "switch", func(press, lamp) lampTransition { return lampTransition{NewState: "on", SideEffect: "click"} }).
		Transition("on", "switch", func(press, lamp) lampTransition { return lampTransition{NewState: "off", SideEffect: "click"} }).
		Build("off", relayfsm.WithLogger(c))
	require.NoError(t, err)
	return m
}

func TestCollectorCountsDispatch(t *testing.T) {
	c := metrics.NewCollector(prometheus.Labels{"machine": "lamp"})
	m := newLamp(t, c)

	m.PostEvent("switch")
	m.PostEvent("switch")
	m.PostEvent("switch")
	m.PostEvent("dim")

	expected := `
# HELP relayfsm_transitions_total State changes, by source and target state
# TYPE relayfsm_transitions_total counter
relayfsm_transitions_total{from="off",machine="lamp",to="on"} 2
relayfsm_transitions_total{from="on",machine="lamp",to="off"} 1
# HELP relayfsm_side_effects_total Side effects emitted
# TYPE relayfsm_side_effects_total counter
relayfsm_side_effects_total{effect="click",machine="lamp"} 3
# HELP relayfsm_events_unhandled_total Events dropped for lack of a reducer
# TYPE relayfsm_events_unhandled_total counter
relayfsm_events_unhandled_total{event="dim",machine="lamp",state="on"} 1
# HELP relayfsm_reducer_overrides_total Reducers replaced by a later registration
# TYPE relayfsm_reducer_overrides_total counter
relayfsm_reducer_overrides_total{event="switch",machine="lamp",state="off"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"relayfsm_transitions_total",
		"relayfsm_side_effects_total",
		"relayfsm_events_unhandled_total",
		"relayfsm_reducer_overrides_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 3, testutil.CollectAndCount(c, "relayfsm_events_total"))
}

func TestCollectorCountsObserverFailures(t *testing.T) {
	c := metrics.NewCollector(nil)
	m := newLamp(t, c)

	_, err := m.Observe(nil, func(o *relayfsm.Observer[lamp, click]) {
		o.OnEnter("on", func(lamp) { panic("bulb blew") })
	})
	require.NoError(t, err)
	m.PostEvent("switch")

	expected := `
# HELP relayfsm_observer_failures_total Observer callbacks that panicked
# TYPE relayfsm_observer_failures_total counter
relayfsm_observer_failures_total{state="on"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "relayfsm_observer_failures_total"))
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := metrics.NewCollector(prometheus.Labels{"machine": "lamp"})
	require.NoError(t, reg.Register(c))

	m := newLamp(t, c)
	m.PostEvent("switch")

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "relayfsm_events_total")
	assert.Contains(t, names, "relayfsm_transitions_total")
}
