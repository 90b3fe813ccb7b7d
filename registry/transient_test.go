package registry_test

import (
	"testing"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/registry"
	"github.com/librescoot/relayfsm/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedState interface{ relayfsm.State }

type feedEmpty struct{}
type feedProgress struct{}
type feedContent struct{ Title string }
type feedError struct{}
type feedErrorToast struct{}

func (feedEmpty) StateID() relayfsm.StateID      { return "empty" }
func (feedProgress) StateID() relayfsm.StateID   { return "progress" }
func (feedContent) StateID() relayfsm.StateID    { return "content" }
func (feedError) StateID() relayfsm.StateID      { return "error" }
func (feedErrorToast) StateID() relayfsm.StateID { return "error_toast" }

func (feedProgress) IsTransient() bool   { return true }
func (feedErrorToast) IsTransient() bool { return true }

type feedEvent interface{ relayfsm.Event }

type onRefresh struct{}
type onError struct{}
type onTemporaryError struct{}
type onContent struct{ Title string }
type onDismissToast struct{ Restore feedContent }

func (onRefresh) EventID() relayfsm.EventID        { return "refresh" }
func (onError) EventID() relayfsm.EventID          { return "error" }
func (onTemporaryError) EventID() relayfsm.EventID { return "temporary_error" }
func (onContent) EventID() relayfsm.EventID        { return "content" }
func (onDismissToast) EventID() relayfsm.EventID   { return "dismiss_toast" }

type feedTransition = relayfsm.Transition[feedState, relayfsm.NoSideEffect]
type feedStateDef = relayfsm.StateDefinition[feedState, feedEvent, relayfsm.NoSideEffect]

func goTo(s feedState) relayfsm.Reducer[feedState, feedEvent, relayfsm.NoSideEffect] {
	return func(feedEvent, feedState) feedTransition { return feedTransition{NewState: s} }
}

func toContent(e feedEvent, _ feedState) feedTransition {
	return feedTransition{NewState: feedContent{Title: e.(onContent).Title}}
}

func feedMachine(t *testing.T, reg relayfsm.Registry[feedState]) *relayfsm.Machine[feedState, feedEvent, relayfsm.NoSideEffect] {
	t.Helper()
	m, err := relayfsm.NewDefinition[feedState, feedEvent, relayfsm.NoSideEffect]().
		State("empty", func(s *feedStateDef) {
			s.On("refresh", goTo(feedProgress{}))
			s.On("content", toContent)
		}).
		State("progress", func(s *feedStateDef) {
			s.On("content", toContent)
			s.On("error", goTo(feedError{}))
		}).
		State("content", func(s *feedStateDef) {
			s.On("refresh", goTo(feedProgress{}))
			s.On("temporary_error", goTo(feedErrorToast{}))
		}).
		State("error", func(s *feedStateDef) {
			s.On("refresh", goTo(feedProgress{}))
		}).
		State("error_toast", func(s *feedStateDef) {
			s.On("refresh", goTo(feedProgress{}))
			s.On("dismiss_toast", func(e feedEvent, _ feedState) feedTransition {
				return feedTransition{NewState: e.(onDismissToast).Restore}
			})
		}).
		Build(feedEmpty{}, relayfsm.WithRegistry[feedState](reg), relayfsm.WithLogger(relayfsm.NopLogger{}))
	require.NoError(t, err)
	return m
}

func TestTransientContract(t *testing.T) {
	registrytest.RegistryContractTest(t, func(*testing.T) relayfsm.Registry[registrytest.Sample] {
		return registry.NewTransient[registrytest.Sample]()
	})
}

func TestTransientIgnoresProgress(t *testing.T) {
	reg := registry.NewTransient[feedState]()
	m := feedMachine(t, reg)

	m.PostEvent(onRefresh{})

	assert.Equal(t, feedProgress{}, m.CurrentState())
	last, ok := reg.LastNonTransient()
	require.True(t, ok)
	assert.Equal(t, feedEmpty{}, last)
}

func TestTransientRestoresLatestContent(t *testing.T) {
	reg := registry.NewTransient[feedState]()
	m := feedMachine(t, reg)

	m.PostEvent(onRefresh{})
	m.PostEvent(onContent{Title: "test"})
	m.PostEvent(onTemporaryError{})
	assert.Equal(t, feedErrorToast{}, m.CurrentState())

	last, ok := reg.LastNonTransient()
	require.True(t, ok)
	content, isContent := last.(feedContent)
	require.True(t, isContent)
	assert.Equal(t, feedContent{Title: "test"}, content)

	m.PostEvent(onDismissToast{Restore: content})
	assert.Equal(t, feedContent{Title: "test"}, m.CurrentState())
}

func TestTransientOnlyTransientStates(t *testing.T) {
	reg := registry.NewTransient[feedState]()
	reg.Set(feedProgress{})

	_, ok := reg.LastNonTransient()
	assert.False(t, ok)
}
