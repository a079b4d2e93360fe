// Package scenario drives scripted simulations. A scenario is a YAML
// document of steps (post an event, advance the clock, drain the queue,
// expect a state); running one collects every expectation failure instead of
// stopping at the first, the same philosophy the validator applies to
// machine definitions.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/model"
)

// Step is one scripted instruction. Exactly one of Post, Tick, Expect, or
// Drain must be set; Payload rides along with Post.
type Step struct {
	Post    string `yaml:"post,omitempty"`
	Payload any    `yaml:"payload,omitempty"`
	Tick    int    `yaml:"tick,omitempty"`
	Expect  string `yaml:"expect,omitempty"`
	Drain   bool   `yaml:"drain,omitempty"`
}

// Scenario is a named script plus optional guard bindings applied before the
// first step.
type Scenario struct {
	Name  string         `yaml:"name"`
	Bind  map[string]any `yaml:"bind,omitempty"`
	Steps []Step         `yaml:"steps"`
}

// DrainLimit caps one drain instruction. A periodic timer feeding a
// self-loop can outrun any script; the cap turns that into an error instead
// of a hang.
const DrainLimit = 10000

// Load parses and structurally checks a scenario document.
func Load(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("invalid scenario YAML: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, s := range sc.Steps {
		ops := 0
		if s.Post != "" {
			ops++
		}
		if s.Tick != 0 {
			ops++
		}
		if s.Expect != "" {
			ops++
		}
		if s.Drain {
			ops++
		}
		if ops != 1 {
			return nil, fmt.Errorf("scenario %q step %d: want exactly one of post/tick/expect/drain, got %d", sc.Name, i, ops)
		}
		if s.Tick < 0 {
			return nil, fmt.Errorf("scenario %q step %d: negative tick %d", sc.Name, i, s.Tick)
		}
		if s.Payload != nil && s.Post == "" {
			return nil, fmt.Errorf("scenario %q step %d: payload without post", sc.Name, i)
		}
	}
	return &sc, nil
}

// LoadFile reads and parses a scenario document from disk.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Load(data)
}

// Failure records one missed expectation.
type Failure struct {
	Step     int
	Expected string
	Actual   string
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d: expected state %q, in %q", f.Step, f.Expected, f.Actual)
}

// Outcome summarizes one run.
type Outcome struct {
	Scenario string
	Posted   int
	Ticked   int
	Entries  []engine.TraceEntry
	Failures []Failure
	Final    string
}

// OK reports whether every expectation held.
func (o *Outcome) OK() bool {
	return len(o.Failures) == 0
}

// Run loads the definition into the simulator, applies the scenario's
// bindings, and executes each step in order. Expectation mismatches are
// collected in the outcome; engine faults (broken definitions, drain
// runaway) abort with an error.
func Run(sim *engine.Simulator, def *model.Definition, sc *Scenario) (*Outcome, error) {
	if err := sim.Load(def); err != nil {
		return nil, err
	}
	for k, v := range sc.Bind {
		sim.Bind(k, v)
	}

	out := &Outcome{Scenario: sc.Name}
	for i, step := range sc.Steps {
		switch {
		case step.Post != "":
			if err := sim.PostEvent(step.Post, step.Payload); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			out.Posted++

		case step.Tick != 0:
			if _, err := sim.Tick(step.Tick); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			out.Ticked += step.Tick

		case step.Drain:
			entries, err := sim.Drain(DrainLimit)
			out.Entries = append(out.Entries, entries...)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}

		case step.Expect != "":
			if got := sim.CurrentState(); got != step.Expect {
				out.Failures = append(out.Failures, Failure{
					Step:     i,
					Expected: step.Expect,
					Actual:   got,
				})
			}
		}
	}
	out.Final = sim.CurrentState()
	return out, nil
}
