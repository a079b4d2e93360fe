// Package model defines the semantic model for finite state machines.
// A Definition is the validated, immutable aggregate produced by the DSL
// compiler: named states with entry/exit hooks, event-triggered transitions,
// logical timers, and choice pseudo-states with ordered guarded branches.
package model

import (
	"regexp"
	"strings"
)

// NodeKind discriminates between real states and choice pseudo-states.
type NodeKind string

const (
	// StateKind is a stable state the machine can rest in.
	StateKind NodeKind = "state"

	// ChoiceKind is a transient branch point resolved within a single step.
	ChoiceKind NodeKind = "choice"
)

// Definition represents a complete state machine.
// All slices preserve declaration order; that order is load-bearing:
// transition dispatch, branch evaluation, and code generation all follow it.
// A Definition is never mutated after construction.
type Definition struct {
	Name        string       `json:"name"`
	Initial     string       `json:"initial"`
	States      []State      `json:"states"`
	Choices     []Choice     `json:"choices,omitempty"`
	Transitions []Transition `json:"transitions"`
	Timers      []Timer      `json:"timers,omitempty"`
}

// State represents a named stable state.
type State struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Entry       []Action `json:"entry,omitempty"`
	Exit        []Action `json:"exit,omitempty"`
}

// Transition represents an event-triggered edge between a source state and a
// target state or choice. Guard holds the raw guard expression text; the
// runtime never interprets it beyond handing it to a guard evaluator.
type Transition struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Event   string   `json:"event,omitempty"`
	Guard   string   `json:"guard,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

// Timer represents a logical-time timer. Duration counts abstract time units;
// on expiry the named event is posted to the machine's own queue. Periodic
// timers re-arm on expiry until stopped or their owning state is exited.
type Timer struct {
	ID       string `json:"id"`
	Duration int    `json:"duration"`
	Event    string `json:"event"`
	Periodic bool   `json:"periodic,omitempty"`
}

// Choice represents a transient branch point. Branches are evaluated in
// declaration order; the single else branch catches when no condition holds.
type Choice struct {
	ID       string   `json:"id"`
	Branches []Branch `json:"branches"`
}

// Branch is one outcome of a choice. Else branches carry no condition.
type Branch struct {
	Cond    string   `json:"cond,omitempty"`
	Target  string   `json:"target"`
	Actions []Action `json:"actions,omitempty"`
	Else    bool     `json:"else,omitempty"`
}

// Action is an opaque call-shaped behavior reference, e.g. start_timer(t).
// The core records and forwards actions; it does not execute application
// behavior itself.
type Action struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// String reconstitutes the call form: name or name(arg1, arg2).
func (a Action) String() string {
	if len(a.Args) == 0 {
		return a.Name
	}
	return a.Name + "(" + strings.Join(a.Args, ", ") + ")"
}

// ActionStrings renders a list of actions to their call forms.
func ActionStrings(actions []Action) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is a legal identifier: a letter or underscore
// followed by letters, digits, or underscores.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// FindState returns the state with the given ID.
func (d *Definition) FindState(id string) (*State, bool) {
	for i := range d.States {
		if d.States[i].ID == id {
			return &d.States[i], true
		}
	}
	return nil, false
}

// FindChoice returns the choice with the given ID.
func (d *Definition) FindChoice(id string) (*Choice, bool) {
	for i := range d.Choices {
		if d.Choices[i].ID == id {
			return &d.Choices[i], true
		}
	}
	return nil, false
}

// FindTimer returns the timer with the given ID.
func (d *Definition) FindTimer(id string) (*Timer, bool) {
	for i := range d.Timers {
		if d.Timers[i].ID == id {
			return &d.Timers[i], true
		}
	}
	return nil, false
}

// IsState reports whether id names a declared state.
func (d *Definition) IsState(id string) bool {
	_, ok := d.FindState(id)
	return ok
}

// IsChoice reports whether id names a declared choice.
func (d *Definition) IsChoice(id string) bool {
	_, ok := d.FindChoice(id)
	return ok
}

// NodeKindOf resolves an ID to its node kind. The empty kind means the ID
// names neither a state nor a choice.
func (d *Definition) NodeKindOf(id string) NodeKind {
	if d.IsState(id) {
		return StateKind
	}
	if d.IsChoice(id) {
		return ChoiceKind
	}
	return ""
}

// TransitionsFrom returns the transitions whose source is the given state,
// in declaration order.
func (d *Definition) TransitionsFrom(src string) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.Source == src {
			out = append(out, t)
		}
	}
	return out
}

// StateIndex returns the declaration index of a state, or -1.
// Indexes are the stable numbering used by code generation and run proofs.
func (d *Definition) StateIndex(id string) int {
	for i := range d.States {
		if d.States[i].ID == id {
			return i
		}
	}
	return -1
}

// EventNames returns the distinct event names of the machine in
// first-appearance order: transition triggers first, then timer events not
// already seen.
func (d *Definition) EventNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range d.Transitions {
		if t.Event != "" && !seen[t.Event] {
			seen[t.Event] = true
			names = append(names, t.Event)
		}
	}
	for _, tm := range d.Timers {
		if tm.Event != "" && !seen[tm.Event] {
			seen[tm.Event] = true
			names = append(names, tm.Event)
		}
	}
	return names
}

// EventIndex returns the index of an event in EventNames order, or -1.
func (d *Definition) EventIndex(name string) int {
	for i, n := range d.EventNames() {
		if n == name {
			return i
		}
	}
	return -1
}
