package validation

import (
	"strings"
	"testing"

	"github.com/fsmkit/go-fsmkit/model"
)

// twoState builds a minimal valid machine: Idle --got--> Busy --done--> Idle.
func twoState() *model.Definition {
	return &model.Definition{
		Name:    "Worker",
		Initial: "Idle",
		States:  []model.State{{ID: "Idle"}, {ID: "Busy"}},
		Transitions: []model.Transition{
			{Source: "Idle", Target: "Busy", Event: "got"},
			{Source: "Busy", Target: "Idle", Event: "done"},
		},
	}
}

func errorCategories(r *Report) []string {
	var cats []string
	for _, issue := range r.Errors {
		cats = append(cats, issue.Category)
	}
	return cats
}

func hasIssue(issues []Issue, category, substr string) bool {
	for _, issue := range issues {
		if issue.Category == category && strings.Contains(issue.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidMachine(t *testing.T) {
	report := Validate(twoState())
	if !report.Valid {
		t.Fatalf("expected valid, got errors: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
	if report.Summary.States != 2 || report.Summary.Transitions != 2 {
		t.Errorf("summary miscounts: %+v", report.Summary)
	}
}

func TestCollectAllErrors(t *testing.T) {
	// Three independent defects: two dangling targets and a missing initial.
	def := &model.Definition{
		Name:   "Broken",
		States: []model.State{{ID: "A"}},
		Transitions: []model.Transition{
			{Source: "A", Target: "Ghost", Event: "x"},
			{Source: "A", Target: "Phantom", Event: "y"},
		},
	}
	report := Validate(def)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if len(report.Errors) < 3 {
		t.Errorf("expected at least 3 errors in one pass, got %d: %v",
			len(report.Errors), errorCategories(report))
	}
	if !hasIssue(report.Errors, "dangling", "Ghost") {
		t.Error("missing dangling error for Ghost")
	}
	if !hasIssue(report.Errors, "dangling", "Phantom") {
		t.Error("missing dangling error for Phantom")
	}
	if !hasIssue(report.Errors, "initial", "no initial state") {
		t.Error("missing initial-state error")
	}
}

func TestDanglingSource(t *testing.T) {
	def := twoState()
	def.Transitions = append(def.Transitions, model.Transition{Source: "Nowhere", Target: "Idle", Event: "z"})
	report := Validate(def)
	if !hasIssue(report.Errors, "dangling", `source "Nowhere"`) {
		t.Errorf("expected dangling source error, got %v", report.Errors)
	}
}

func TestTransitionFromChoiceRejected(t *testing.T) {
	def := twoState()
	def.Choices = []model.Choice{{ID: "Pick", Branches: []model.Branch{
		{Cond: "x", Target: "Idle"},
		{Target: "Busy", Else: true},
	}}}
	def.Transitions = append(def.Transitions, model.Transition{Source: "Pick", Target: "Idle", Event: "e"})
	report := Validate(def)
	if !hasIssue(report.Errors, "dangling", "starts at a choice") {
		t.Errorf("expected choice-source error, got %v", report.Errors)
	}
}

func TestInitialChecks(t *testing.T) {
	// Initial pointing at an undeclared name.
	def := twoState()
	def.Initial = "Missing"
	report := Validate(def)
	if !hasIssue(report.Errors, "initial", "not declared") {
		t.Errorf("expected undeclared-initial error, got %v", report.Errors)
	}

	// Initial pointing at a choice.
	def = twoState()
	def.Choices = []model.Choice{{ID: "Pick", Branches: []model.Branch{
		{Cond: "x", Target: "Idle"},
		{Target: "Busy", Else: true},
	}}}
	def.Initial = "Pick"
	report = Validate(def)
	if !hasIssue(report.Errors, "initial", "is a choice") {
		t.Errorf("expected initial-is-choice error, got %v", report.Errors)
	}
}

func TestDuplicateIdentifiers(t *testing.T) {
	def := twoState()
	def.States = append(def.States, model.State{ID: "Idle"})
	def.Timers = []model.Timer{
		{ID: "t", Duration: 5, Event: "got"},
		{ID: "t", Duration: 9, Event: "done"},
	}
	def.Choices = []model.Choice{
		{ID: "Busy", Branches: []model.Branch{{Cond: "x", Target: "Idle"}, {Target: "Idle", Else: true}}},
	}

	report := Validate(def)
	if !hasIssue(report.Errors, "duplicate", `Duplicate state "Idle"`) {
		t.Error("missing duplicate state error")
	}
	if !hasIssue(report.Errors, "duplicate", `Duplicate timer "t"`) {
		t.Error("missing duplicate timer error")
	}
	if !hasIssue(report.Errors, "duplicate", "collides with a state") {
		t.Error("missing state/choice namespace clash error")
	}
}

func TestChoiceStructure(t *testing.T) {
	def := twoState()
	def.Choices = []model.Choice{
		{ID: "NoElse", Branches: []model.Branch{{Cond: "x", Target: "Idle"}}},
		{ID: "TwoElse", Branches: []model.Branch{
			{Cond: "x", Target: "Idle"},
			{Target: "Idle", Else: true},
			{Target: "Busy", Else: true},
		}},
		{ID: "OnlyElse", Branches: []model.Branch{{Target: "Idle", Else: true}}},
		{ID: "BadTarget", Branches: []model.Branch{
			{Cond: "x", Target: "Ghost"},
			{Target: "Idle", Else: true},
		}},
	}

	report := Validate(def)
	if !hasIssue(report.Errors, "choice", "no else branch") {
		t.Error("missing no-else error")
	}
	if !hasIssue(report.Errors, "choice", "2 else branches") {
		t.Error("missing duplicate-else error")
	}
	if !hasIssue(report.Errors, "choice", "no conditioned branch") {
		t.Error("missing no-condition error")
	}
	if !hasIssue(report.Errors, "dangling", `branch target "Ghost"`) {
		t.Error("missing dangling branch target error")
	}
}

func TestChoiceCycleRejected(t *testing.T) {
	def := twoState()
	def.Choices = []model.Choice{
		{ID: "C1", Branches: []model.Branch{
			{Cond: "a", Target: "C2"},
			{Target: "Idle", Else: true},
		}},
		{ID: "C2", Branches: []model.Branch{
			{Cond: "b", Target: "C1"},
			{Target: "Busy", Else: true},
		}},
	}
	def.Transitions = append(def.Transitions, model.Transition{Source: "Idle", Target: "C1", Event: "pick"})

	report := Validate(def)
	if report.Valid {
		t.Fatal("cyclic choice graph must be rejected")
	}
	if !hasIssue(report.Errors, "choice", "Choice cycle") {
		t.Errorf("expected choice cycle error, got %v", report.Errors)
	}
}

func TestChoiceChainAccepted(t *testing.T) {
	// C1 -> C2 -> states is acyclic and fine.
	def := twoState()
	def.Choices = []model.Choice{
		{ID: "C1", Branches: []model.Branch{
			{Cond: "a", Target: "C2"},
			{Target: "Idle", Else: true},
		}},
		{ID: "C2", Branches: []model.Branch{
			{Cond: "b", Target: "Busy"},
			{Target: "Idle", Else: true},
		}},
	}
	def.Transitions = append(def.Transitions, model.Transition{Source: "Idle", Target: "C1", Event: "pick"})

	report := Validate(def)
	if !report.Valid {
		t.Errorf("acyclic choice chain should validate, got %v", report.Errors)
	}
}

func TestTimerChecks(t *testing.T) {
	def := twoState()
	def.Timers = []model.Timer{
		{ID: "bad", Duration: 0, Event: "got"},
		{ID: "lonely", Duration: 10, Event: "Nobody"},
		{ID: "fine", Duration: 10, Event: "done"},
	}

	report := Validate(def)
	if !hasIssue(report.Errors, "timer", "not positive") {
		t.Error("missing non-positive duration error")
	}
	if !hasIssue(report.Warnings, "timer", "no transition listens") {
		t.Error("missing unused timer event warning")
	}
	if hasIssue(report.Warnings, "timer", `"fine"`) {
		t.Error("timer with a listener should not warn")
	}
}

func TestUnreachableStateWarning(t *testing.T) {
	def := twoState()
	def.States = append(def.States, model.State{ID: "Island"})

	report := Validate(def)
	if !report.Valid {
		t.Fatalf("unreachable state is a warning, not an error: %v", report.Errors)
	}
	if !hasIssue(report.Warnings, "reachability", `"Island" is unreachable`) {
		t.Errorf("expected unreachable warning, got %v", report.Warnings)
	}
}

func TestShadowedTransitionWarning(t *testing.T) {
	def := twoState()
	def.Transitions = append(def.Transitions,
		model.Transition{Source: "Idle", Target: "Idle", Event: "got", Guard: "x > 0"})

	report := Validate(def)
	if !hasIssue(report.Warnings, "dispatch", "shadowed by unguarded transition") {
		t.Errorf("expected shadowing warning, got %v", report.Warnings)
	}
}

func TestNoTriggerWarning(t *testing.T) {
	def := twoState()
	def.Transitions = append(def.Transitions, model.Transition{Source: "Idle", Target: "Busy"})

	report := Validate(def)
	if !report.Valid {
		t.Fatalf("trigger-less transition is a warning, not an error: %v", report.Errors)
	}
	if !hasIssue(report.Warnings, "dispatch", "no triggering event") {
		t.Errorf("expected no-trigger warning, got %v", report.Warnings)
	}
}

func TestBadIdentifiers(t *testing.T) {
	def := &model.Definition{
		Name:    "M",
		Initial: "ok",
		States:  []model.State{{ID: "ok"}, {ID: "not ok"}},
	}
	report := Validate(def)
	if !hasIssue(report.Errors, "identifier", `"not ok"`) {
		t.Errorf("expected identifier error, got %v", report.Errors)
	}
}
