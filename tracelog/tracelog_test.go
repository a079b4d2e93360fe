package tracelog

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/model"
)

const gateSrc = `
fsm gate {
	[*] --> Closed
	state Closed {
		entry / ready()
	}
	state Open {
		entry / unlock()
	}
	state Jammed
	Closed --> Check : badge / buzz()
	Open --> Closed : shut
	Jammed --> Closed : reset
	choice Check {
		[vip] -> Open
		[else] -> Jammed
	}
}
`

func mustCompile(t *testing.T, src string) *model.Definition {
	t.Helper()
	def, report, err := dsl.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if def == nil {
		t.Fatalf("compile rejected fixture: %+v", report.Errors)
	}
	return def
}

// recordRun simulates the gate machine over the given events and captures
// the result.
func recordRun(t *testing.T, binds map[string]any, events []string) (*model.Definition, *Run) {
	t.Helper()

	def := mustCompile(t, gateSrc)
	sim := engine.NewSimulator(nil)
	if err := sim.Load(def); err != nil {
		t.Fatalf("load: %v", err)
	}
	for k, v := range binds {
		sim.Bind(k, v)
	}
	for i, name := range events {
		if err := sim.PostEvent(name, nil); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		if _, err := sim.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return def, Capture(sim)
}

func TestCaptureNamesRun(t *testing.T) {
	_, run := recordRun(t, map[string]any{"vip": true}, []string{"badge", "shut"})

	if run.ID == uuid.Nil {
		t.Error("captured run has no ID")
	}
	if run.Machine != "gate" {
		t.Errorf("Machine = %q, want gate", run.Machine)
	}
	if len(run.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(run.Steps))
	}
	first := run.Steps[0]
	if first.From != "Closed" || first.To != "Open" {
		t.Errorf("step 0 = %+v, want Closed->Open", first)
	}
	wantActions := []string{"buzz()", "unlock()"}
	if !reflect.DeepEqual(first.Actions, wantActions) {
		t.Errorf("step 0 actions = %v, want %v", first.Actions, wantActions)
	}
	if !reflect.DeepEqual(first.Via, []string{"Check"}) {
		t.Errorf("step 0 via = %v, want [Check]", first.Via)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	_, run := recordRun(t, map[string]any{"vip": true},
		[]string{"badge", "shut", "badge", "bogus"})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, run); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.ID != run.ID {
		t.Errorf("ID = %s, want %s", got.ID, run.ID)
	}
	if got.Machine != run.Machine {
		t.Errorf("Machine = %q, want %q", got.Machine, run.Machine)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if !reflect.DeepEqual(got.Steps, run.Steps) {
		t.Errorf("steps differ:\n got  %+v\n want %+v", got.Steps, run.Steps)
	}
}

func TestReadCSVRejectsMixedRuns(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	input := strings.Join(csvHeader, ",") + "\n" +
		uuid.New().String() + ",gate," + ts + ",0,0,A,B,go,,,false\n" +
		uuid.New().String() + ",gate," + ts + ",1,0,B,A,back,,,false\n"

	if _, err := ReadCSV(strings.NewReader(input)); err == nil {
		t.Fatal("mixed run IDs accepted")
	} else if !strings.Contains(err.Error(), "mixed") {
		t.Errorf("err = %v, want mixed-run error", err)
	}
}

func TestReadCSVRequiresRows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewRun("gate")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadCSV(&buf); err == nil {
		t.Fatal("header-only file accepted")
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	input := "run_id,machine\n" + uuid.New().String() + ",gate\n"
	_, err := ReadCSV(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want missing-column error", err)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	_, run := recordRun(t, map[string]any{"vip": false},
		[]string{"badge", "reset", "bogus"})

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, run); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.ID != run.ID || got.Machine != run.Machine {
		t.Errorf("identity = %s/%q, want %s/%q", got.ID, got.Machine, run.ID, run.Machine)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if !reflect.DeepEqual(got.Steps, run.Steps) {
		t.Errorf("steps differ:\n got  %+v\n want %+v", got.Steps, run.Steps)
	}
}

func TestJSONLEmptyRunRoundTrips(t *testing.T) {
	run := NewRun("gate")

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, run); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != run.ID || len(got.Steps) != 0 {
		t.Errorf("got %s with %d steps, want %s with none", got.ID, len(got.Steps), run.ID)
	}
}

func TestReadJSONLRejectsHeaderlessInput(t *testing.T) {
	input := `{"seq":0,"clock":0,"from":"A","to":"B","event":"go"}` + "\n"
	_, err := ReadJSONL(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "run_id") {
		t.Errorf("err = %v, want missing run_id error", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	_, run := recordRun(t, map[string]any{"vip": true},
		[]string{"badge", "shut", "bogus"})

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != run.ID || got.Machine != run.Machine {
		t.Errorf("identity = %s/%q, want %s/%q", got.ID, got.Machine, run.ID, run.Machine)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if !reflect.DeepEqual(got.Steps, run.Steps) {
		t.Errorf("steps differ:\n got  %+v\n want %+v", got.Steps, run.Steps)
	}

	list, err := store.ListRuns()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %d runs, want 1", len(list))
	}
	if list[0].ID != run.ID || list[0].Steps != len(run.Steps) {
		t.Errorf("summary = %+v, want %s with %d steps", list[0], run.ID, len(run.Steps))
	}

	if err := store.DeleteRun(run.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("load after delete = %v, want ErrRunNotFound", err)
	}
	if err := store.DeleteRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete = %v, want ErrRunNotFound", err)
	}
}

func TestStoreListsNewestFirst(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	older := NewRun("gate")
	older.StartedAt = older.StartedAt.Add(-time.Hour)
	newer := NewRun("gate")

	if err := store.SaveRun(older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.SaveRun(newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	list, err := store.ListRuns()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d runs, want 2", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("order = [%s %s], want newest first", list[0].ID, list[1].ID)
	}
}

func TestStoreRejectsDuplicateRun(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	run := NewRun("gate")
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveRun(run); err == nil {
		t.Error("duplicate run ID accepted")
	}
}

func TestReplayMatches(t *testing.T) {
	def, run := recordRun(t, map[string]any{"vip": true},
		[]string{"badge", "shut", "badge", "bogus"})

	d, err := Replay(def, run, nil, map[string]any{"vip": true})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if d != nil {
		t.Errorf("unexpected divergence: %v", d)
	}
}

func TestReplayFlagsDivergence(t *testing.T) {
	def, run := recordRun(t, map[string]any{"vip": true}, []string{"badge"})

	d, err := Replay(def, run, nil, map[string]any{"vip": false})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if d == nil {
		t.Fatal("divergence not detected")
	}
	if d.Step != 0 || d.Field != "to" {
		t.Errorf("divergence = %+v, want step 0 field to", d)
	}
	if d.Recorded != "Open" || d.Replayed != "Jammed" {
		t.Errorf("divergence = %v", d)
	}
}
