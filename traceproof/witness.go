package traceproof

import (
	"fmt"

	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/model"
	"github.com/fsmkit/go-fsmkit/tracelog"
)

// WitnessFromRun builds a circuit assignment from a recorded run. Unmatched
// entries are skipped: they are non-transitions and do not belong to the
// proven relation. The remaining steps must chain From to To contiguously
// and each must exist in the machine's flattened transition relation; a run
// that does not fit names the offending step.
//
// The public initial state is the first step's From (a trimmed trace starts
// mid-run), falling back to the machine's initial state for empty runs.
func WitnessFromRun(def *model.Definition, run *tracelog.Run, maxSteps int) (*RunCircuit, error) {
	if run == nil {
		return nil, fmt.Errorf("witness: nil run")
	}
	c, err := NewRunCircuit(def, maxSteps)
	if err != nil {
		return nil, err
	}
	rt := c.table

	var steps []engine.TraceEntry
	for _, e := range run.Steps {
		if e.Unmatched {
			continue
		}
		steps = append(steps, e)
	}
	if len(steps) > maxSteps {
		return nil, fmt.Errorf("run has %d steps, circuit capacity is %d", len(steps), maxSteps)
	}

	initial := def.Initial
	if len(steps) > 0 {
		initial = steps[0].From
	}
	curIdx := def.StateIndex(initial)
	if curIdx < 0 {
		return nil, fmt.Errorf("initial state %q is not declared", initial)
	}

	cur := initial
	for i, e := range steps {
		if e.From != cur {
			return nil, fmt.Errorf("step %d: starts at %q, previous step ended at %q", i, e.From, cur)
		}
		evt := def.EventIndex(e.Event)
		if evt < 0 {
			return nil, fmt.Errorf("step %d: event %q is not part of machine %q", i, e.Event, def.Name)
		}
		tgtIdx := def.StateIndex(e.To)
		if tgtIdx < 0 {
			return nil, fmt.Errorf("step %d: state %q is not declared", i, e.To)
		}
		rowID, ok := rt.index[provenRow{source: curIdx, event: evt, target: tgtIdx}]
		if !ok {
			return nil, fmt.Errorf("step %d: machine %q has no transition %s --%s--> %s",
				i, def.Name, e.From, e.Event, e.To)
		}
		c.EventIDs[i] = evt
		c.RowIDs[i] = rowID
		cur = e.To
		curIdx = tgtIdx
	}

	for i := len(steps); i < maxSteps; i++ {
		c.EventIDs[i] = rt.noEvent
		c.RowIDs[i] = rt.padBase + curIdx
	}

	c.InitialState = def.StateIndex(initial)
	c.FinalState = curIdx
	c.StepCount = len(steps)
	return c, nil
}
