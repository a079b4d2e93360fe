package codegen

import (
	"fmt"

	"github.com/fsmkit/go-fsmkit/model"
)

// Table is the dispatch intermediate representation shared by every emitter.
// It lays out exactly what the engine consults at runtime, in the same
// declaration order, so a table replay and a live simulator must agree step
// for step. Emitters render the table; tests replay it.
type Table struct {
	Machine string     `json:"machine"`
	Initial string     `json:"initial"`
	States  []StateRow `json:"states"`
	Events  []string   `json:"events"`
	Rows    []Row      `json:"rows"`
	Choices []ChoiceRow `json:"choices,omitempty"`
}

// StateRow carries one state with its rendered action lists.
type StateRow struct {
	ID    string   `json:"id"`
	Entry []string `json:"entry,omitempty"`
	Exit  []string `json:"exit,omitempty"`
}

// Row is one transition in declaration order.
type Row struct {
	Source  string   `json:"source"`
	Event   string   `json:"event"`
	Guard   string   `json:"guard,omitempty"`
	Target  string   `json:"target"`
	Actions []string `json:"actions,omitempty"`
}

// ChoiceRow is one choice pseudo-state with its branches in declaration
// order.
type ChoiceRow struct {
	ID       string      `json:"id"`
	Branches []BranchRow `json:"branches"`
}

// BranchRow is one branch of a choice.
type BranchRow struct {
	Cond    string   `json:"cond,omitempty"`
	Else    bool     `json:"else,omitempty"`
	Target  string   `json:"target"`
	Actions []string `json:"actions,omitempty"`
}

// BuildTable lowers a definition into the dispatch IR.
func BuildTable(def *model.Definition) *Table {
	t := &Table{
		Machine: def.Name,
		Initial: def.Initial,
		Events:  def.EventNames(),
	}

	for _, s := range def.States {
		t.States = append(t.States, StateRow{
			ID:    s.ID,
			Entry: model.ActionStrings(s.Entry),
			Exit:  model.ActionStrings(s.Exit),
		})
	}
	for _, tr := range def.Transitions {
		t.Rows = append(t.Rows, Row{
			Source:  tr.Source,
			Event:   tr.Event,
			Guard:   tr.Guard,
			Target:  tr.Target,
			Actions: model.ActionStrings(tr.Actions),
		})
	}
	for _, c := range def.Choices {
		row := ChoiceRow{ID: c.ID}
		for _, b := range c.Branches {
			row.Branches = append(row.Branches, BranchRow{
				Cond:    b.Cond,
				Else:    b.Else,
				Target:  b.Target,
				Actions: model.ActionStrings(b.Actions),
			})
		}
		t.Choices = append(t.Choices, row)
	}
	return t
}

// CondFunc evaluates guard and branch condition text. A returned error
// counts as false, matching the engine's degradation rule.
type CondFunc func(expr string) (bool, error)

// Outcome is the result of replaying one event against the table.
type Outcome struct {
	From      string
	To        string
	Event     string
	Via       []string
	Actions   []string
	Unmatched bool
}

func (t *Table) findState(id string) *StateRow {
	for i := range t.States {
		if t.States[i].ID == id {
			return &t.States[i]
		}
	}
	return nil
}

func (t *Table) findChoice(id string) *ChoiceRow {
	for i := range t.Choices {
		if t.Choices[i].ID == id {
			return &t.Choices[i]
		}
	}
	return nil
}

// Dispatch replays one event from the given state: declaration-order
// candidates, first passing guard wins, choices chain with else fallback,
// actions collected in exit, transition, branch, entry order. It is the
// reference semantics every emitted dispatch kernel must reproduce.
func (t *Table) Dispatch(state, event string, cond CondFunc) (*Outcome, error) {
	out := &Outcome{From: state, Event: event}

	var row *Row
	for i := range t.Rows {
		r := &t.Rows[i]
		if r.Source != state || r.Event != event {
			continue
		}
		if t.pass(r.Guard, cond) {
			row = r
			break
		}
	}
	if row == nil {
		out.To = state
		out.Unmatched = true
		return out, nil
	}

	target := row.Target
	var branchActions []string
	visited := make(map[string]bool)
	for t.findChoice(target) != nil {
		if visited[target] {
			return nil, fmt.Errorf("choice cycle through %q", target)
		}
		visited[target] = true
		out.Via = append(out.Via, target)

		choice := t.findChoice(target)
		var taken *BranchRow
		var fallback *BranchRow
		for i := range choice.Branches {
			b := &choice.Branches[i]
			if b.Else {
				if fallback == nil {
					fallback = b
				}
				continue
			}
			if t.pass(b.Cond, cond) {
				taken = b
				break
			}
		}
		if taken == nil {
			taken = fallback
		}
		if taken == nil {
			return nil, fmt.Errorf("choice %q has no viable branch", target)
		}
		branchActions = append(branchActions, taken.Actions...)
		target = taken.Target
	}

	if old := t.findState(state); old != nil {
		out.Actions = append(out.Actions, old.Exit...)
	}
	out.Actions = append(out.Actions, row.Actions...)
	out.Actions = append(out.Actions, branchActions...)
	if dst := t.findState(target); dst != nil {
		out.Actions = append(out.Actions, dst.Entry...)
	}
	out.To = target
	return out, nil
}

func (t *Table) pass(expr string, cond CondFunc) bool {
	if expr == "" {
		return true
	}
	if cond == nil {
		return false
	}
	ok, err := cond(expr)
	if err != nil {
		return false
	}
	return ok
}
