package validation

import (
	"fmt"

	"github.com/fsmkit/go-fsmkit/model"
)

// checkIdentifiers validates that every declared name is a legal identifier.
// The parser cannot produce bad names, but hand-built models can.
func (v *Validator) checkIdentifiers() {
	if len(v.def.States) == 0 {
		v.AddError("structure", "Machine has no states", nil, "Declare at least one state")
	}

	for _, s := range v.def.States {
		if !model.ValidIdent(s.ID) {
			v.AddError("identifier", fmt.Sprintf("State %q is not a valid identifier", s.ID),
				[]string{s.ID}, "Identifiers match [A-Za-z_][A-Za-z0-9_]*")
		}
	}
	for _, c := range v.def.Choices {
		if !model.ValidIdent(c.ID) {
			v.AddError("identifier", fmt.Sprintf("Choice %q is not a valid identifier", c.ID),
				[]string{c.ID}, "Identifiers match [A-Za-z_][A-Za-z0-9_]*")
		}
	}
	for _, t := range v.def.Timers {
		if !model.ValidIdent(t.ID) {
			v.AddError("identifier", fmt.Sprintf("Timer %q is not a valid identifier", t.ID),
				[]string{t.ID}, "Identifiers match [A-Za-z_][A-Za-z0-9_]*")
		}
		if t.Event != "" && !model.ValidIdent(t.Event) {
			v.AddError("identifier", fmt.Sprintf("Timer %q event %q is not a valid identifier", t.ID, t.Event),
				[]string{t.ID}, "Identifiers match [A-Za-z_][A-Za-z0-9_]*")
		}
	}
	for i, t := range v.def.Transitions {
		if t.Event != "" && !model.ValidIdent(t.Event) {
			v.AddError("identifier",
				fmt.Sprintf("Transition %d (%s → %s) event %q is not a valid identifier", i, t.Source, t.Target, t.Event),
				[]string{t.Source, t.Target}, "Identifiers match [A-Za-z_][A-Za-z0-9_]*")
		}
	}
}

// checkDuplicates reports duplicate identifiers. States and choices share one
// namespace: a transition target must denote exactly one of them.
func (v *Validator) checkDuplicates() {
	states := make(map[string]bool)
	for _, s := range v.def.States {
		if states[s.ID] {
			v.AddError("duplicate", fmt.Sprintf("Duplicate state %q", s.ID),
				[]string{s.ID}, "Rename one of the states")
			continue
		}
		states[s.ID] = true
	}

	choices := make(map[string]bool)
	for _, c := range v.def.Choices {
		if choices[c.ID] {
			v.AddError("duplicate", fmt.Sprintf("Duplicate choice %q", c.ID),
				[]string{c.ID}, "Rename one of the choices")
			continue
		}
		choices[c.ID] = true
		if states[c.ID] {
			v.AddError("duplicate", fmt.Sprintf("Choice %q collides with a state of the same name", c.ID),
				[]string{c.ID}, "States and choices share one namespace; rename one of them")
		}
	}

	timers := make(map[string]bool)
	for _, t := range v.def.Timers {
		if timers[t.ID] {
			v.AddError("duplicate", fmt.Sprintf("Duplicate timer %q", t.ID),
				[]string{t.ID}, "Rename one of the timers")
			continue
		}
		timers[t.ID] = true
	}
}

// checkInitial validates the initial state marker.
func (v *Validator) checkInitial() {
	if v.def.Initial == "" {
		v.AddError("initial", "Machine has no initial state marker",
			nil, "Add an initial transition: [*] --> StateName")
		return
	}
	if v.def.IsState(v.def.Initial) {
		return
	}
	if v.def.IsChoice(v.def.Initial) {
		v.AddError("initial", fmt.Sprintf("Initial state %q is a choice, not a state", v.def.Initial),
			[]string{v.def.Initial}, "Point the initial marker at a declared state")
		return
	}
	v.AddError("initial", fmt.Sprintf("Initial state %q is not declared", v.def.Initial),
		[]string{v.def.Initial}, "Declare the state or fix the initial marker")
}

// checkTransitions validates transition endpoints and dispatchability.
func (v *Validator) checkTransitions() {
	for i, t := range v.def.Transitions {
		switch v.def.NodeKindOf(t.Source) {
		case model.StateKind:
			// ok
		case model.ChoiceKind:
			v.AddError("dangling", fmt.Sprintf("Transition %d (%s → %s) starts at a choice", i, t.Source, t.Target),
				[]string{t.Source}, "Choices route through their branches, not through transitions")
		default:
			v.AddError("dangling", fmt.Sprintf("Transition %d (%s → %s) source %q is not declared", i, t.Source, t.Target, t.Source),
				[]string{t.Source}, "Declare the source state")
		}

		if v.def.NodeKindOf(t.Target) == "" {
			v.AddError("dangling", fmt.Sprintf("Transition %d (%s → %s) target %q is not declared", i, t.Source, t.Target, t.Target),
				[]string{t.Target}, "Declare the target state or choice")
		}

		if t.Event == "" {
			v.AddWarning("dispatch", fmt.Sprintf("Transition %d (%s → %s) has no triggering event and can never fire", i, t.Source, t.Target),
				[]string{t.Source, t.Target}, "Add an event: Source --> Target : eventName")
		}
	}

	v.checkShadowed()
}

// checkShadowed warns when an unguarded transition makes a later transition
// on the same (source, event) pair unselectable. Dispatch itself stays
// deterministic: declaration order breaks ties.
func (v *Validator) checkShadowed() {
	type key struct{ source, event string }
	unguarded := make(map[key]int)

	for i, t := range v.def.Transitions {
		if t.Event == "" {
			continue
		}
		k := key{t.Source, t.Event}
		if j, ok := unguarded[k]; ok {
			v.AddWarning("dispatch",
				fmt.Sprintf("Transition %d (%s → %s on %q) is shadowed by unguarded transition %d", i, t.Source, t.Target, t.Event, j),
				[]string{t.Source, t.Event},
				"Add a guard to the earlier transition or remove this one")
			continue
		}
		if t.Guard == "" {
			unguarded[k] = i
		}
	}
}

// checkChoices validates branch structure and targets.
func (v *Validator) checkChoices() {
	for _, c := range v.def.Choices {
		elses := 0
		conds := 0
		for _, b := range c.Branches {
			if b.Else {
				elses++
			} else {
				conds++
			}
			if v.def.NodeKindOf(b.Target) == "" {
				v.AddError("dangling", fmt.Sprintf("Choice %q branch target %q is not declared", c.ID, b.Target),
					[]string{c.ID, b.Target}, "Declare the target state or choice")
			}
		}
		if elses == 0 {
			v.AddError("choice", fmt.Sprintf("Choice %q has no else branch", c.ID),
				[]string{c.ID}, "Add a default branch: [else] -> StateName")
		}
		if elses > 1 {
			v.AddError("choice", fmt.Sprintf("Choice %q has %d else branches", c.ID, elses),
				[]string{c.ID}, "Keep exactly one else branch")
		}
		if conds == 0 {
			v.AddError("choice", fmt.Sprintf("Choice %q has no conditioned branch", c.ID),
				[]string{c.ID}, "Add at least one branch with a condition")
		}
	}
}

// checkTimers validates durations and warns about timers nothing listens to.
func (v *Validator) checkTimers() {
	listened := make(map[string]bool)
	for _, t := range v.def.Transitions {
		if t.Event != "" {
			listened[t.Event] = true
		}
	}

	for _, tm := range v.def.Timers {
		if tm.Duration < 1 {
			v.AddError("timer", fmt.Sprintf("Timer %q duration %d is not positive", tm.ID, tm.Duration),
				[]string{tm.ID}, "Use a positive number of time units")
		}
		if tm.Event != "" && !listened[tm.Event] {
			v.AddWarning("timer", fmt.Sprintf("Timer %q raises %q but no transition listens for it", tm.ID, tm.Event),
				[]string{tm.ID, tm.Event}, "Add a transition triggered by the event or remove the timer")
		}
	}
}
