package templates

import (
	"sort"
	"strings"
	"testing"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/engine"
)

// Every template must compile clean: no errors, no warnings, and a machine
// name matching its registry key.
func TestRegistryCompiles(t *testing.T) {
	for _, name := range List() {
		tmpl, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		def, report, err := dsl.Compile(tmpl.Source)
		if err != nil {
			t.Errorf("%s: syntax error: %v", name, err)
			continue
		}
		if def == nil {
			t.Errorf("%s: validation errors: %+v", name, report.Errors)
			continue
		}
		if len(report.Warnings) != 0 {
			t.Errorf("%s: warnings: %+v", name, report.Warnings)
		}
		if def.Name != tmpl.Name {
			t.Errorf("%s: machine named %q, want %q", name, def.Name, tmpl.Name)
		}
		if tmpl.Description == "" {
			t.Errorf("%s: empty description", name)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("escalator")
	if err == nil {
		t.Fatal("Get(escalator) succeeded")
	}
	if !strings.Contains(err.Error(), "unknown template") {
		t.Errorf("error = %q, want unknown template", err)
	}
}

func TestListSorted(t *testing.T) {
	names := List()
	if len(names) != len(Registry) {
		t.Fatalf("List returned %d names, registry has %d", len(names), len(Registry))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("List not sorted: %v", names)
	}
}

func TestHeartbeatProbeIsPeriodic(t *testing.T) {
	def, _, err := dsl.Compile(heartbeat.Source)
	if err != nil || def == nil {
		t.Fatalf("compile: %v", err)
	}
	for _, tm := range def.Timers {
		if tm.ID == "probe" {
			if !tm.Periodic {
				t.Error("probe timer is one-shot")
			}
			return
		}
	}
	t.Error("heartbeat has no probe timer")
}

// The door template should route an authorized open_request through the
// bolt check and land in Open when the bolt is clear.
func TestDoorRoutesThroughChoice(t *testing.T) {
	def, _, err := dsl.Compile(door.Source)
	if err != nil || def == nil {
		t.Fatalf("compile: %v", err)
	}

	sim := engine.NewSimulator(nil)
	if err := sim.Load(def); err != nil {
		t.Fatalf("load: %v", err)
	}
	sim.Bind("authorized", true)
	sim.Bind("bolt_engaged", false)
	sim.PostEvent("open_request", nil)
	entry, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if entry.To != "Open" {
		t.Errorf("To = %q, want Open", entry.To)
	}
	if len(entry.Via) != 1 || entry.Via[0] != "Check" {
		t.Errorf("Via = %v, want [Check]", entry.Via)
	}
}
