// Package registrytest holds a reusable test suite for relayfsm.Registry
// implementations.
package registrytest

import (
	"sync"
	"testing"

	"github.com/librescoot/relayfsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample is the state type the contract drives registries with
type Sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StateID implements relayfsm.State
func (s Sample) StateID() relayfsm.StateID { return relayfsm.StateID(s.Name) }

// Bump is the only event of the contract machine
type Bump struct{}

// EventID implements relayfsm.Event
func (Bump) EventID() relayfsm.EventID { return "bump" }

// RegistryContractTest verifies that a registry built by newRegistry behaves
// as the state store of a machine
func RegistryContractTest(t *testing.T, newRegistry func(t *testing.T) relayfsm.Registry[Sample]) {
	t.Helper()

	t.Run("Get_ReturnsLatestSet", func(t *testing.T) {
		r := newRegistry(t)
		r.Set(Sample{Name: "a", Count: 1})
		r.Set(Sample{Name: "b", Count: 2})
		assert.Equal(t, Sample{Name: "b", Count: 2}, r.Get())
	})

	t.Run("Machine_CommitsThroughRegistry", func(t *testing.T) {
		r := newRegistry(t)
		type tr = relayfsm.Transition[Sample, relayfsm.NoSideEffect]
		m, err := relayfsm.NewDefinition[Sample, Bump, relayfsm.NoSideEffect]().
			Transition("idle", "bump", func(_ Bump, s Sample) tr {
				return tr{NewState: Sample{Name: "busy", Count: s.Count + 1}}
			}).
			Transition("busy", "bump", func(_ Bump, s Sample) tr {
				return tr{NewState: Sample{Name: "idle", Count: s.Count + 1}}
			}).
			Build(Sample{Name: "idle"}, relayfsm.WithRegistry(r), relayfsm.WithLogger(relayfsm.NopLogger{}))
		require.NoError(t, err)
		assert.Equal(t, Sample{Name: "idle"}, r.Get())

		m.PostEvent(Bump{})
		m.PostEvent(Bump{})
		m.PostEvent(Bump{})

		assert.Equal(t, Sample{Name: "busy", Count: 3}, r.Get())
		assert.Equal(t, r.Get(), m.CurrentState())
	})

	t.Run("Get_ConcurrentWithSet", func(t *testing.T) {
		r := newRegistry(t)
		r.Set(Sample{Name: "start"})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 1; i <= 50; i++ {
				r.Set(Sample{Name: "step", Count: i})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = r.Get()
			}
		}()
		wg.Wait()

		assert.Equal(t, Sample{Name: "step", Count: 50}, r.Get())
	})
}
