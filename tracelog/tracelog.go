// Package tracelog records and persists simulation runs. A Run captures one
// session: identity, the machine name, and the ordered trace entries the
// engine produced. Runs travel as CSV or JSON Lines and rest in SQLite, and
// a stored run can be replayed against a definition to check that the
// machine still behaves the way it did when the run was recorded.
package tracelog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/engine"
)

// Run is one recorded simulation session.
type Run struct {
	ID        uuid.UUID           `json:"id"`
	Machine   string              `json:"machine"`
	StartedAt time.Time           `json:"started_at"`
	Steps     []engine.TraceEntry `json:"steps"`
}

// NewRun starts an empty run for the named machine, stamped now.
func NewRun(machine string) *Run {
	return &Run{
		ID:        uuid.New(),
		Machine:   machine,
		StartedAt: time.Now().UTC(),
	}
}

// Append adds trace entries to the run in order.
func (r *Run) Append(entries ...engine.TraceEntry) {
	r.Steps = append(r.Steps, entries...)
}

// Capture snapshots the simulator's retained trace as a new run named after
// the loaded machine. If the trace ring has dropped early entries, the run
// holds only what the ring retained.
func Capture(sim *engine.Simulator) *Run {
	run := NewRun("")
	if def := sim.Definition(); def != nil {
		run.Machine = def.Name
	}
	run.Steps = sim.Trace()
	return run
}

// encodeList packs a string list into one JSON cell. Empty lists encode as
// the empty string so CSV columns and SQL NULLs stay clean.
func encodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

// decodeList unpacks a cell written by encodeList.
func decodeList(cell string) ([]string, error) {
	if cell == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(cell), &items); err != nil {
		return nil, fmt.Errorf("decoding list %q: %w", cell, err)
	}
	return items, nil
}
