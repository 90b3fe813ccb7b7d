// Package machinefile builds machines from YAML or JSON documents.
//
// A document names the initial state and, for every state, the events it
// handles:
//
//	name: order
//	initial: idle
//	states:
//	  idle:
//	    on:
//	      submit: {to: pending, effect: notify}
//	  pending:
//	    on:
//	      approve: done
//	      ping: {effect: pong}
//	  done: {}
//
// A bare string is shorthand for {to: ...}. A transition without a target
// keeps the current state. States, events and side effects are all Name
// values, so the resulting machine is a Machine[Name, Name, Name].
package machinefile

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/librescoot/relayfsm"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is wrapped by every validation error
var ErrInvalidFile = errors.New("invalid machine file")

// Name is a state, event or side effect identified by its name alone
type Name string

func (n Name) StateID() relayfsm.StateID   { return relayfsm.StateID(n) }
func (n Name) EventID() relayfsm.EventID   { return relayfsm.EventID(n) }
func (n Name) EffectID() relayfsm.EffectID { return relayfsm.EffectID(n) }

// Machine is the machine type a File builds
type Machine = relayfsm.Machine[Name, Name, Name]

// Edge is the outcome of one event in one state
type Edge struct {
	To     string `mapstructure:"to"`
	Effect string `mapstructure:"effect"`
}

// StateSpec lists the events a state handles
type StateSpec struct {
	On map[string]Edge `mapstructure:"on"`
}

// File is a decoded machine document
type File struct {
	Name    string               `mapstructure:"name"`
	Initial string               `mapstructure:"initial"`
	States  map[string]StateSpec `mapstructure:"states"`
}

// Load reads and parses the document at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML or JSON document. Unknown keys are errors. The result
// is not validated.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse machine file: %w", err)
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  edgeShorthand,
		ErrorUnused: true,
		Result:      &f,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode machine file: %w", err)
	}
	return &f, nil
}

// edgeShorthand turns "target" into Edge{To: "target"}
func edgeShorthand(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(Edge{}) {
		return Edge{To: data.(string)}, nil
	}
	return data, nil
}

// Validate reports every problem found in the document
func (f *File) Validate() error {
	var errs []error
	if f.Initial == "" {
		errs = append(errs, errors.New("initial state is missing"))
	} else if _, ok := f.States[f.Initial]; !ok {
		errs = append(errs, fmt.Errorf("initial state %q is not declared", f.Initial))
	}
	if len(f.States) == 0 {
		errs = append(errs, errors.New("no states declared"))
	}

	for _, state := range sortedKeys(f.States) {
		if state == "" {
			errs = append(errs, errors.New("state with empty name"))
		}
		for _, event := range sortedKeys(f.States[state].On) {
			edge := f.States[state].On[event]
			if event == "" {
				errs = append(errs, fmt.Errorf("state %q: event with empty name", state))
			}
			if edge.To != "" {
				if _, ok := f.States[edge.To]; !ok {
					errs = append(errs, fmt.Errorf("state %q, event %q: target %q is not declared", state, event, edge.To))
				}
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return nil
}

// Definition converts the document into a machine definition
func (f *File) Definition() *relayfsm.Definition[Name, Name, Name] {
	def := relayfsm.NewDefinition[Name, Name, Name]()
	for _, state := range sortedKeys(f.States) {
		def.State(relayfsm.StateID(state), func(sd *relayfsm.StateDefinition[Name, Name, Name]) {
			for _, event := range sortedKeys(f.States[state].On) {
				sd.On(relayfsm.EventID(event), reducer(f.States[state].On[event]))
			}
		})
	}
	return def
}

func reducer(edge Edge) relayfsm.Reducer[Name, Name, Name] {
	return func(_ Name, current Name) relayfsm.Transition[Name, Name] {
		next := current
		if edge.To != "" {
			next = Name(edge.To)
		}
		return relayfsm.Transition[Name, Name]{NewState: next, SideEffect: Name(edge.Effect)}
	}
}

// Build validates the document and builds a machine in its initial state
func (f *File) Build(opts ...relayfsm.MachineOption) (*Machine, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Definition().Build(Name(f.Initial), opts...)
}

// BuildFrom is Build with a different starting state, such as one restored
// from storage. The state must be declared.
func (f *File) BuildFrom(initial Name, opts ...relayfsm.MachineOption) (*Machine, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if _, ok := f.States[string(initial)]; !ok {
		return nil, fmt.Errorf("%w: state %q is not declared", ErrInvalidFile, initial)
	}
	return f.Definition().Build(initial, opts...)
}

// Events returns every event handled by at least one state, sorted
func (f *File) Events() []string {
	seen := make(map[string]struct{})
	for _, spec := range f.States {
		for event := range spec.On {
			seen[event] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
