package codegen

// standardTemplate renders the standard Go target. The emitted file is
// dependency-free; guards and actions stay textual and cross into host code
// through the Machine hooks.
const standardTemplate = `// Code generated by fsmkit. DO NOT EDIT.

// Dispatch kernel for the {{.MachineName}} machine.
//
// Guard expressions and branch conditions are carried as text and evaluated
// through Machine.Guard; actions are reported through Machine.OnAction.
// Timers are not part of the kernel: hosts schedule them and feed the
// resulting events into Dispatch.

package {{.Package}}

// State enumerates declared states in declaration order.
type State int

const (
{{- range $i, $s := .States}}
	{{$s.ConstName}}{{if eq $i 0}} State = iota{{end}}
{{- end}}
)

var stateNames = [...]string{
{{- range .States}}
	{{printf "%q" .Name}},
{{- end}}
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(invalid)"
	}
	return stateNames[s]
}

// StateByName resolves a state name; ok is false for unknown names.
func StateByName(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// Event enumerates trigger events in first-appearance order.
type Event int

const (
{{- range $i, $e := .Events}}
	{{$e.ConstName}}{{if eq $i 0}} Event = iota{{end}}
{{- end}}
)

var eventNames = [...]string{
{{- range .Events}}
	{{printf "%q" .Name}},
{{- end}}
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "Event(invalid)"
	}
	return eventNames[e]
}

// EventByName resolves an event name; ok is false for unknown names.
func EventByName(name string) (Event, bool) {
	for i, n := range eventNames {
		if n == name {
			return Event(i), true
		}
	}
	return 0, false
}

// Destination indexes cover states first, then choice nodes.
const numStates = {{.NumStates}}

// rule is one transition. The first rule in declaration order that matches
// the current state and event and passes its guard wins.
type rule struct {
	src     State
	event   Event
	guard   string
	dst     int
	actions []string
}

var rules = []rule{
{{- range .Rules}}
	// {{.Arrow}}
	{src: {{.SrcConst}}, event: {{.EventConst}}, guard: {{.GuardLit}}, dst: {{.Dst}}, actions: {{.ActionsLit}}},
{{- end}}
}

type branch struct {
	cond    string
	isElse  bool
	dst     int
	actions []string
}

// choices[i] holds the branches of choice node numStates+i.
var choices = [...][]branch{
{{- range .Choices}}
	// {{.Name}}
	{
{{- range .Branches}}
		{cond: {{.CondLit}}, isElse: {{if .IsElse}}true{{else}}false{{end}}, dst: {{.Dst}}, actions: {{.ActionsLit}}},
{{- end}}
	},
{{- end}}
}

var stateEntry = [...][]string{
{{- range .States}}
	{{.EntryLit}},
{{- end}}
}

var stateExit = [...][]string{
{{- range .States}}
	{{.ExitLit}},
{{- end}}
}

// Machine is a live instance of {{.MachineName}}. Guard evaluates guard and
// branch condition text; when nil, only unguarded transitions and else
// branches can fire. OnAction observes executed actions in order.
type Machine struct {
	Current  State
	Guard    func(expr string) bool
	OnAction func(action string)
}

// NewMachine starts at the initial state.
func NewMachine() *Machine {
	return &Machine{Current: {{.Initial}}}
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.Current = {{.Initial}}
}

func (m *Machine) pass(expr string) bool {
	if expr == "" {
		return true
	}
	if m.Guard == nil {
		return false
	}
	return m.Guard(expr)
}

func (m *Machine) act(actions []string) {
	if m.OnAction == nil {
		return
	}
	for _, a := range actions {
		m.OnAction(a)
	}
}

// Dispatch processes one event to completion. Candidates are tried in
// declaration order and the first passing guard wins; choice destinations
// chain through their branches with the else branch as fallback. Actions run
// in exit, transition, branch, entry order. Dispatch reports false and stays
// put when no transition accepts the event.
func (m *Machine) Dispatch(e Event) (State, bool) {
	var chosen *rule
	for i := range rules {
		r := &rules[i]
		if r.src != m.Current || r.event != e {
			continue
		}
		if m.pass(r.guard) {
			chosen = r
			break
		}
	}
	if chosen == nil {
		return m.Current, false
	}

	dst := chosen.dst
	var branchActions []string
	for hops := 0; dst >= numStates; hops++ {
		if hops > len(choices) {
			return m.Current, false
		}
		var taken *branch
		var fallback *branch
		bs := choices[dst-numStates]
		for i := range bs {
			b := &bs[i]
			if b.isElse {
				if fallback == nil {
					fallback = b
				}
				continue
			}
			if m.pass(b.cond) {
				taken = b
				break
			}
		}
		if taken == nil {
			taken = fallback
		}
		if taken == nil {
			return m.Current, false
		}
		branchActions = append(branchActions, taken.actions...)
		dst = taken.dst
	}

	m.act(stateExit[m.Current])
	m.act(chosen.actions)
	m.act(branchActions)
	m.Current = State(dst)
	m.act(stateEntry[m.Current])
	return m.Current, true
}
`
