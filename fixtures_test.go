package relayfsm

import "errors"

// Test states
type testState interface {
	State
	isTestState()
}

type stateEmpty struct{}
type stateProgress struct{}
type stateContent struct{ List []string }
type stateError struct{ Err error }

func (stateEmpty) StateID() StateID    { return "empty" }
func (stateProgress) StateID() StateID { return "progress" }
func (stateContent) StateID() StateID  { return "content" }
func (stateError) StateID() StateID    { return "error" }

func (stateEmpty) isTestState()    {}
func (stateProgress) isTestState() {}
func (stateContent) isTestState()  {}
func (stateError) isTestState()    {}

// Test events
type testEvent interface {
	Event
	isTestEvent()
}

type evLoadContent struct{}
type evContentLoaded struct{ Content []string }
type evLoadingFailed struct{ Err error }

func (evLoadContent) EventID() EventID   { return "load_content" }
func (evContentLoaded) EventID() EventID { return "content_loaded" }
func (evLoadingFailed) EventID() EventID { return "loading_failed" }

func (evLoadContent) isTestEvent()   {}
func (evContentLoaded) isTestEvent() {}
func (evLoadingFailed) isTestEvent() {}

// Test side effects
type testEffect interface {
	SideEffect
	isTestEffect()
}

type effStartLoading struct{}
type effDoNothing struct{}

func (effStartLoading) EffectID() EffectID { return "start_loading" }
func (effDoNothing) EffectID() EffectID    { return "do_nothing" }

func (effStartLoading) isTestEffect() {}
func (effDoNothing) isTestEffect()    {}

type testTransition = Transition[testState, testEffect]

var errLoading = errors.New("loading failed")

func contentDefinition() *Definition[testState, testEvent, testEffect] {
	return NewDefinition[testState, testEvent, testEffect]().
		State("empty", func(s *StateDefinition[testState, testEvent, testEffect]) {
			s.On("load_content", func(testEvent, testState) testTransition {
				return testTransition{NewState: stateProgress{}, SideEffect: effStartLoading{}}
			})
		}).
		State("progress", func(s *StateDefinition[testState, testEvent, testEffect]) {
			s.On("content_loaded", func(e testEvent, _ testState) testTransition {
				content := e.(evContentLoaded).Content
				if len(content) == 0 {
					return testTransition{NewState: stateEmpty{}}
				}
				return testTransition{NewState: stateContent{List: content}, SideEffect: effDoNothing{}}
			})
			s.On("loading_failed", func(e testEvent, _ testState) testTransition {
				return testTransition{NewState: stateError{Err: e.(evLoadingFailed).Err}}
			})
		}).
		State("content", func(s *StateDefinition[testState, testEvent, testEffect]) {
			s.On("content_loaded", func(e testEvent, _ testState) testTransition {
				return testTransition{NewState: stateContent{List: e.(evContentLoaded).Content}, SideEffect: effDoNothing{}}
			})
			s.On("load_content", func(testEvent, testState) testTransition {
				return testTransition{NewState: stateProgress{}, SideEffect: effStartLoading{}}
			})
		}).
		Transition("error", "load_content", func(testEvent, testState) testTransition {
			return testTransition{NewState: stateProgress{}, SideEffect: effStartLoading{}}
		})
}
