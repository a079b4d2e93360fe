package tracelog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/model"
)

// Divergence pinpoints the first step where a replay disagreed with the
// recorded run.
type Divergence struct {
	Step     int    // index into Run.Steps
	Field    string // which trace field disagreed
	Recorded string
	Replayed string
}

func (d *Divergence) String() string {
	return fmt.Sprintf("step %d: %s: recorded %q, replayed %q",
		d.Step, d.Field, d.Recorded, d.Replayed)
}

// Replay feeds the run's events through a fresh simulator on def, comparing
// each produced entry with the recorded one. It returns the first
// divergence, or nil when the run reproduces exactly.
//
// Guard bindings that shaped the original run must be re-established through
// binds. Recorded entries carry event names, not payloads, so machines whose
// guards read the payload can legitimately diverge. Seq and Clock are not
// compared: a trimmed trace starts at a later seq, and replay posts
// timer-fired events directly instead of ticking.
func Replay(def *model.Definition, run *Run, opts *engine.Options, binds map[string]any) (*Divergence, error) {
	if run == nil {
		return nil, fmt.Errorf("replay: nil run")
	}

	sim := engine.NewSimulator(opts)
	if err := sim.Load(def); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	for name, value := range binds {
		sim.Bind(name, value)
	}

	for i, want := range run.Steps {
		if err := sim.PostEvent(want.Event, nil); err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}
		got, err := sim.Step()
		if err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}
		if d := compareStep(i, want, *got); d != nil {
			return d, nil
		}
	}
	return nil, nil
}

func compareStep(i int, want, got engine.TraceEntry) *Divergence {
	switch {
	case want.From != got.From:
		return &Divergence{Step: i, Field: "from", Recorded: want.From, Replayed: got.From}
	case want.To != got.To:
		return &Divergence{Step: i, Field: "to", Recorded: want.To, Replayed: got.To}
	case want.Unmatched != got.Unmatched:
		return &Divergence{Step: i, Field: "unmatched",
			Recorded: strconv.FormatBool(want.Unmatched),
			Replayed: strconv.FormatBool(got.Unmatched)}
	case !slices.Equal(want.Via, got.Via):
		return &Divergence{Step: i, Field: "via",
			Recorded: strings.Join(want.Via, ", "),
			Replayed: strings.Join(got.Via, ", ")}
	case !slices.Equal(want.Actions, got.Actions):
		return &Divergence{Step: i, Field: "actions",
			Recorded: strings.Join(want.Actions, ", "),
			Replayed: strings.Join(got.Actions, ", ")}
	}
	return nil
}
