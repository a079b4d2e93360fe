package scenario

import (
	"strings"
	"testing"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/model"
)

func trafficDef(t *testing.T) *model.Definition {
	t.Helper()
	def, report, err := dsl.Compile(`
		fsm traffic {
			[*] --> Red
			state Red
			state Green
			state Yellow
			Red --> Green : go
			Green --> Yellow : caution
			Yellow --> Red : stop
		}
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if def == nil {
		t.Fatalf("fixture invalid: %+v", report.Errors)
	}
	return def
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load([]byte(`
name: cycle
bind:
  calm: true
steps:
  - post: go
  - drain: true
  - expect: Green
  - post: caution
    payload: 7
  - drain: true
  - expect: Yellow
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "cycle" {
		t.Errorf("name = %q", sc.Name)
	}
	if len(sc.Steps) != 6 {
		t.Fatalf("steps = %d, want 6", len(sc.Steps))
	}
	if sc.Steps[3].Post != "caution" || sc.Steps[3].Payload != 7 {
		t.Errorf("step 3 = %+v", sc.Steps[3])
	}
	if v, ok := sc.Bind["calm"]; !ok || v != true {
		t.Errorf("bind = %+v", sc.Bind)
	}
}

func TestLoadRejectsAmbiguousStep(t *testing.T) {
	_, err := Load([]byte(`
name: bad
steps:
  - post: go
    tick: 3
`))
	if err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Errorf("err = %v, want exactly-one complaint", err)
	}
}

func TestLoadRejectsEmptyStep(t *testing.T) {
	_, err := Load([]byte(`
name: bad
steps:
  - payload: 5
`))
	if err == nil {
		t.Error("step with only a payload accepted")
	}
}

func TestLoadRejectsNoSteps(t *testing.T) {
	if _, err := Load([]byte("name: empty\n")); err == nil {
		t.Error("scenario without steps accepted")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	if _, err := Load([]byte("steps: [unclosed")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestRunCollectsFailures(t *testing.T) {
	sc, err := Load([]byte(`
name: wrong
steps:
  - post: go
  - drain: true
  - expect: Yellow
  - post: caution
  - drain: true
  - expect: Red
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := Run(engine.NewSimulator(nil), trafficDef(t), sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.OK() {
		t.Fatal("outcome OK despite wrong expectations")
	}
	if len(out.Failures) != 2 {
		t.Fatalf("failures = %d, want both collected", len(out.Failures))
	}
	if f := out.Failures[0]; f.Step != 2 || f.Expected != "Yellow" || f.Actual != "Green" {
		t.Errorf("failure 0 = %+v", f)
	}
	if f := out.Failures[1]; f.Step != 5 || f.Expected != "Red" || f.Actual != "Yellow" {
		t.Errorf("failure 1 = %+v", f)
	}
	if out.Final != "Yellow" {
		t.Errorf("final = %q", out.Final)
	}
}

func TestRunHappyPath(t *testing.T) {
	sc, err := Load([]byte(`
name: cycle
steps:
  - post: go
  - post: caution
  - post: stop
  - drain: true
  - expect: Red
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := Run(engine.NewSimulator(nil), trafficDef(t), sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.OK() {
		t.Fatalf("failures: %+v", out.Failures)
	}
	if out.Posted != 3 {
		t.Errorf("posted = %d, want 3", out.Posted)
	}
	if len(out.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(out.Entries))
	}
}

func TestRunTimerScenario(t *testing.T) {
	def, report, err := dsl.Compile(`
		fsm heartbeat {
			[*] --> Alive
			state Alive {
				entry / start_timer(beat)
			}
			state Dead
			timer beat = 5 -> pulse periodic
			Alive --> Alive : pulse
			Alive --> Dead : flatline
		}
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if def == nil {
		t.Fatalf("fixture invalid: %+v", report.Errors)
	}

	sc, err := Load([]byte(`
name: pulse check
steps:
  - tick: 12
  - drain: true
  - expect: Alive
  - post: flatline
  - drain: true
  - expect: Dead
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := Run(engine.NewSimulator(nil), def, sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.OK() {
		t.Fatalf("failures: %+v", out.Failures)
	}
	if out.Ticked != 12 {
		t.Errorf("ticked = %d, want 12", out.Ticked)
	}
	// Two pulses at clock 5 and 10, then the flatline.
	if len(out.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(out.Entries))
	}
}

func TestRunBindsGuardVariables(t *testing.T) {
	def, report, err := dsl.Compile(`
		fsm gate {
			[*] --> Shut
			state Shut
			state Open
			Shut --> Open : push [strength > 3]
		}
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if def == nil {
		t.Fatalf("fixture invalid: %+v", report.Errors)
	}

	sc, err := Load([]byte(`
name: strong push
bind:
  strength: 10
steps:
  - post: push
  - drain: true
  - expect: Open
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := Run(engine.NewSimulator(nil), def, sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.OK() {
		t.Fatalf("failures: %+v", out.Failures)
	}
}
