package validation

import (
	"fmt"
	"strings"
)

// checkReachability warns about states that nothing can ever reach: not the
// initial state, no incoming transition, no incoming choice branch.
func (v *Validator) checkReachability() {
	incoming := make(map[string]bool)
	incoming[v.def.Initial] = true
	for _, t := range v.def.Transitions {
		incoming[t.Target] = true
	}
	for _, c := range v.def.Choices {
		for _, b := range c.Branches {
			incoming[b.Target] = true
		}
	}

	for _, s := range v.def.States {
		if !incoming[s.ID] {
			v.AddWarning("reachability", fmt.Sprintf("State %q is unreachable", s.ID),
				[]string{s.ID}, "Add a transition or branch targeting it, or remove the state")
		}
	}
}

// checkChoiceCycles rejects cycles in the choice-to-choice reachability
// graph. A branch targeting another choice chains within a single execution
// step; a cycle would make that step non-terminating, so it must be caught
// here rather than at runtime.
func (v *Validator) checkChoiceCycles() {
	adjacent := make(map[string][]string)
	for _, c := range v.def.Choices {
		for _, b := range c.Branches {
			if v.def.IsChoice(b.Target) {
				adjacent[c.ID] = append(adjacent[c.ID], b.Target)
			}
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int)
	var path []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, next := range adjacent[id] {
			switch color[next] {
			case gray:
				// Found a back edge; report the cycle from next to id.
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), next)
				v.AddError("choice",
					fmt.Sprintf("Choice cycle: %s", strings.Join(cycle, " → ")),
					cycle[:len(cycle)-1],
					"Break the cycle so every chain of choices ends at a state")
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	// Iterate in declaration order so reports are deterministic.
	for _, c := range v.def.Choices {
		if color[c.ID] == white {
			path = path[:0]
			visit(c.ID)
		}
	}
}
