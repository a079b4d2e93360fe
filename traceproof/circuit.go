package traceproof

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"github.com/fsmkit/go-fsmkit/codegen"
	"github.com/fsmkit/go-fsmkit/model"
)

// provenRow is one tuple of the provable transition relation, in declaration
// indexes: a step in state source may consume event and land in target.
type provenRow struct {
	source int
	event  int
	target int
}

// runTable bakes a definition into index space for the circuit. Transition
// rows whose target is a choice are flattened to one tuple per reachable
// state, since branch conditions are host-side and outside the proven
// relation. One identity tuple per state, carrying the reserved no-event ID,
// pads runs shorter than the circuit capacity.
type runTable struct {
	machine string
	states  []string
	events  []string
	rows    []provenRow
	index   map[provenRow]int
	noEvent int // reserved event index used by identity rows
	padBase int // index of the first identity row
}

func newRunTable(def *model.Definition) (*runTable, error) {
	if def == nil {
		return nil, fmt.Errorf("nil definition")
	}
	if len(def.States) == 0 {
		return nil, fmt.Errorf("machine %q has no states", def.Name)
	}

	table := codegen.BuildTable(def)
	rt := &runTable{
		machine: def.Name,
		events:  table.Events,
		noEvent: len(table.Events),
		index:   make(map[provenRow]int),
	}
	for _, s := range table.States {
		rt.states = append(rt.states, s.ID)
	}

	choices := make(map[string]*codegen.ChoiceRow, len(table.Choices))
	for i := range table.Choices {
		choices[table.Choices[i].ID] = &table.Choices[i]
	}

	for _, row := range table.Rows {
		if row.Event == "" {
			// Events are posted by name, so a trigger-less row can never fire.
			continue
		}
		src := def.StateIndex(row.Source)
		evt := def.EventIndex(row.Event)
		if src < 0 || evt < 0 {
			return nil, fmt.Errorf("transition %s --> %s references undeclared ids (validate first)",
				row.Source, row.Target)
		}
		for _, target := range reachableStates(choices, row.Target) {
			tgt := def.StateIndex(target)
			if tgt < 0 {
				return nil, fmt.Errorf("transition %s --> %s resolves to undeclared state %q",
					row.Source, row.Target, target)
			}
			r := provenRow{source: src, event: evt, target: tgt}
			if _, dup := rt.index[r]; dup {
				continue
			}
			rt.index[r] = len(rt.rows)
			rt.rows = append(rt.rows, r)
		}
	}

	rt.padBase = len(rt.rows)
	for i := range rt.states {
		r := provenRow{source: i, event: rt.noEvent, target: i}
		rt.index[r] = len(rt.rows)
		rt.rows = append(rt.rows, r)
	}
	return rt, nil
}

// reachableStates resolves a transition target to the states it can reach:
// the target itself, or every state any chain of choice branches can land
// in, in branch declaration order.
func reachableStates(choices map[string]*codegen.ChoiceRow, target string) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		c, ok := choices[id]
		if !ok {
			out = append(out, id)
			return
		}
		for i := range c.Branches {
			walk(c.Branches[i].Target)
		}
	}
	walk(target)
	return out
}

// RunCircuit proves that a step sequence is a valid structural run of one
// machine. Initial state, final state, and step count are public; the
// per-step events and table rows stay private. The transition table is baked
// into the constraint system at compile time, so a circuit attests runs of
// exactly one definition at one capacity.
type RunCircuit struct {
	// Public inputs.
	InitialState frontend.Variable `gnark:",public"`
	FinalState   frontend.Variable `gnark:",public"`
	StepCount    frontend.Variable `gnark:",public"`

	// Private per-step witnesses, length MaxSteps. Positions past StepCount
	// are padding: the no-event ID with the current state's identity row.
	EventIDs []frontend.Variable
	RowIDs   []frontend.Variable

	table *runTable
}

// NewRunCircuit bakes the definition's transition relation into a circuit
// with capacity for maxSteps steps. Compilation and witness building must
// use the same definition and capacity.
func NewRunCircuit(def *model.Definition, maxSteps int) (*RunCircuit, error) {
	if maxSteps < 1 {
		return nil, fmt.Errorf("max steps must be positive, got %d", maxSteps)
	}
	table, err := newRunTable(def)
	if err != nil {
		return nil, err
	}
	return &RunCircuit{
		EventIDs: make([]frontend.Variable, maxSteps),
		RowIDs:   make([]frontend.Variable, maxSteps),
		table:    table,
	}, nil
}

// MaxSteps returns the circuit's step capacity.
func (c *RunCircuit) MaxSteps() int {
	return len(c.RowIDs)
}

// Define encodes the run relation. Each step selects its table row with an
// indicator sum (exactly one hit keeps the row ID in range), asserts the row
// matches the chained state and the claimed event, and advances the chain.
// Padding must be a contiguous suffix, and the number of non-padding steps
// must equal the public StepCount.
func (c *RunCircuit) Define(api frontend.API) error {
	if c.table == nil || len(c.table.rows) == 0 {
		return fmt.Errorf("circuit has no baked transition table")
	}
	if len(c.EventIDs) != len(c.RowIDs) {
		return fmt.Errorf("witness lengths disagree: %d events, %d rows", len(c.EventIDs), len(c.RowIDs))
	}

	state := c.InitialState
	realSteps := frontend.Variable(0)
	pads := make([]frontend.Variable, len(c.RowIDs))

	for i := range c.RowIDs {
		hit := frontend.Variable(0)
		src := frontend.Variable(0)
		evt := frontend.Variable(0)
		tgt := frontend.Variable(0)
		for j, row := range c.table.rows {
			e := api.IsZero(api.Sub(c.RowIDs[i], j))
			hit = api.Add(hit, e)
			src = api.Add(src, api.Mul(e, row.source))
			evt = api.Add(evt, api.Mul(e, row.event))
			tgt = api.Add(tgt, api.Mul(e, row.target))
		}
		api.AssertIsEqual(hit, 1)
		api.AssertIsEqual(src, state)
		api.AssertIsEqual(evt, c.EventIDs[i])

		pads[i] = api.IsZero(api.Sub(c.EventIDs[i], c.table.noEvent))
		realSteps = api.Add(realSteps, api.Sub(1, pads[i]))
		state = tgt
	}

	// Once padded, stay padded.
	for i := 0; i+1 < len(pads); i++ {
		api.AssertIsEqual(api.Mul(pads[i], api.Sub(1, pads[i+1])), 0)
	}

	api.AssertIsEqual(state, c.FinalState)
	api.AssertIsEqual(realSteps, c.StepCount)
	return nil
}
