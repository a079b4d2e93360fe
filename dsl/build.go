package dsl

import (
	"github.com/fsmkit/go-fsmkit/model"
	"github.com/fsmkit/go-fsmkit/validation"
)

// Build lowers a parsed MachineNode into a model.Definition in a single
// deterministic pass. Sibling declarations keep their source order, so
// diagnostics and generated code stay stable across runs.
//
// Build performs no semantic checks: dangling references, duplicates, and
// malformed choices all pass through untouched. Run the validator on the
// result before handing it to the engine or a code generator.
func Build(node *MachineNode) *model.Definition {
	def := &model.Definition{Name: node.Name}
	if node.Initial != nil {
		def.Initial = node.Initial.Target
	}

	for _, s := range node.States {
		def.States = append(def.States, model.State{
			ID:          s.ID,
			Description: s.Description,
			Entry:       buildActions(s.Entry),
			Exit:        buildActions(s.Exit),
		})
	}

	for _, c := range node.Choices {
		choice := model.Choice{ID: c.ID}
		for _, b := range c.Branches {
			choice.Branches = append(choice.Branches, model.Branch{
				Cond:    b.Cond,
				Target:  b.Target,
				Actions: buildActions(b.Actions),
				Else:    b.Else,
			})
		}
		def.Choices = append(def.Choices, choice)
	}

	for _, t := range node.Trans {
		def.Transitions = append(def.Transitions, model.Transition{
			Source:  t.Source,
			Target:  t.Target,
			Event:   t.Event,
			Guard:   t.Guard,
			Actions: buildActions(t.Actions),
		})
	}

	for _, tm := range node.Timers {
		def.Timers = append(def.Timers, model.Timer{
			ID:       tm.ID,
			Duration: tm.Duration,
			Event:    tm.Event,
			Periodic: tm.Periodic,
		})
	}

	return def
}

func buildActions(nodes []*ActionNode) []model.Action {
	if len(nodes) == 0 {
		return nil
	}
	actions := make([]model.Action, len(nodes))
	for i, n := range nodes {
		actions[i] = model.Action{Name: n.Name, Args: n.Args}
	}
	return actions
}

// Compile parses, builds, and validates DSL source text.
//
// On a syntax error it returns (nil, nil, err). When the machine parses but
// fails validation, it returns (nil, report, nil) so callers can print every
// collected error. On success the definition is non-nil and the report may
// still carry warnings. Downstream consumers never see a definition that
// failed validation.
func Compile(src string) (*model.Definition, *validation.Report, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	def := Build(node)
	report := validation.Validate(def)
	if !report.Valid {
		return nil, report, nil
	}
	return def, report, nil
}
