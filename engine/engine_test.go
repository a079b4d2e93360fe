package engine

import (
	"errors"
	"testing"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/model"
)

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

func loaded(t *testing.T, src string, opts *Options) *Simulator {
	t.Helper()
	sim := NewSimulator(opts)
	if err := sim.Load(mustCompile(t, src)); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sim
}

func TestStepBasicTransition(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Red
			state Red
			state Green
			Red --> Green : go
		}
	`, nil)

	if got := sim.CurrentState(); got != "Red" {
		t.Fatalf("initial state = %q, want Red", got)
	}
	if err := sim.PostEvent("go", nil); err != nil {
		t.Fatalf("post: %v", err)
	}

	entry, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if entry.From != "Red" || entry.To != "Green" || entry.Event != "go" {
		t.Errorf("entry = %+v, want Red->Green on go", entry)
	}
	if entry.Unmatched {
		t.Error("matched step flagged Unmatched")
	}
	if len(entry.Actions) != 0 {
		t.Errorf("Actions = %v, want none", entry.Actions)
	}
	if got := sim.CurrentState(); got != "Green" {
		t.Errorf("state after step = %q, want Green", got)
	}

	if _, err := sim.Step(); err != ErrNoPendingEvent {
		t.Errorf("step on empty queue = %v, want ErrNoPendingEvent", err)
	}
	if got := sim.CurrentState(); got != "Green" {
		t.Errorf("empty step moved state to %q", got)
	}
}

func TestUnmatchedEventRecorded(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> A
			state A
			state B
			A --> B : go
		}
	`, nil)

	sim.PostEvent("bogus", nil)
	entry, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !entry.Unmatched {
		t.Error("entry not flagged Unmatched")
	}
	if entry.From != "A" || entry.To != "A" {
		t.Errorf("unmatched entry moved: %+v", entry)
	}
	if got := sim.CurrentState(); got != "A" {
		t.Errorf("state = %q, want A", got)
	}
}

func TestDeclarationOrderTieBreak(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state First
			state Second
			S --> First : pick
			S --> Second : pick
		}
	`, nil)

	sim.PostEvent("pick", nil)
	if _, err := sim.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := sim.CurrentState(); got != "First" {
		t.Errorf("tie resolved to %q, want the first declared target", got)
	}
}

func TestGuardSelectsTransition(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state Low
			state High
			S --> High : set [n > 10]
			S --> Low : set
		}
	`, nil)

	sim.Bind("n", 3)
	sim.PostEvent("set", nil)
	sim.Step()
	if got := sim.CurrentState(); got != "Low" {
		t.Fatalf("n=3 reached %q, want Low", got)
	}

	sim.Bind("n", 30)
	if err := sim.Load(sim.Definition()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	sim.PostEvent("set", nil)
	sim.Step()
	if got := sim.CurrentState(); got != "High" {
		t.Errorf("n=30 reached %q, want High", got)
	}
}

func TestGuardErrorTreatedAsFalse(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state A
			state B
			S --> A : go [missing_fn(1)]
			S --> B : go
		}
	`, nil)

	sim.PostEvent("go", nil)
	if _, err := sim.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := sim.CurrentState(); got != "B" {
		t.Errorf("failing guard reached %q, want fallthrough to B", got)
	}
}

func TestChoiceChaining(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S {
				exit / leave()
			}
			state Hot {
				entry / arrive()
			}
			state Cold
			S --> Gate : read [sensor] / record()
			choice Gate {
				[temp > 30] -> Hot / mark(hot)
				[else] -> Cold
			}
		}
	`, nil)

	sim.Bind("sensor", true)
	sim.Bind("temp", 42)
	sim.PostEvent("read", nil)
	entry, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if entry.To != "Hot" {
		t.Errorf("To = %q, want Hot", entry.To)
	}
	if len(entry.Via) != 1 || entry.Via[0] != "Gate" {
		t.Errorf("Via = %v, want [Gate]", entry.Via)
	}
	want := []string{"leave()", "record()", "mark(hot)", "arrive()"}
	if len(entry.Actions) != len(want) {
		t.Fatalf("Actions = %v, want %v", entry.Actions, want)
	}
	for i, a := range want {
		if entry.Actions[i] != a {
			t.Errorf("Actions[%d] = %q, want %q", i, entry.Actions[i], a)
		}
	}
}

func TestChoiceElseFallback(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state Hot
			state Cold
			S --> Gate : read
			choice Gate {
				[temp > 30] -> Hot
				[else] -> Cold
			}
		}
	`, nil)

	sim.Bind("temp", 5)
	sim.PostEvent("read", nil)
	sim.Step()
	if got := sim.CurrentState(); got != "Cold" {
		t.Errorf("else branch reached %q, want Cold", got)
	}
}

func TestChoiceToChoiceChain(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state Deep
			state Shallow
			S --> A : go
			choice A {
				[depth > 1] -> B
				[else] -> Shallow
			}
			choice B {
				[depth > 2] -> Deep
				[else] -> Shallow
			}
		}
	`, nil)

	sim.Bind("depth", 9)
	sim.PostEvent("go", nil)
	entry, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(entry.Via) != 2 || entry.Via[0] != "A" || entry.Via[1] != "B" {
		t.Errorf("Via = %v, want [A B]", entry.Via)
	}
	if entry.To != "Deep" {
		t.Errorf("To = %q, want Deep", entry.To)
	}
}

func TestPostBeforeLoad(t *testing.T) {
	sim := NewSimulator(nil)
	if err := sim.PostEvent("go", nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("post before load = %v, want ErrNotLoaded", err)
	}
	if _, err := sim.Step(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("step before load = %v, want ErrNotLoaded", err)
	}
	if _, err := sim.Tick(1); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("tick before load = %v, want ErrNotLoaded", err)
	}
	if got := sim.Phase(); got != PhaseIdle {
		t.Errorf("phase = %v, want idle", got)
	}
}

func TestLoadResets(t *testing.T) {
	src := `
		fsm T {
			[*] --> A
			state A
			state B
			A --> B : go
		}
	`
	sim := loaded(t, src, nil)
	sim.PostEvent("go", nil)
	sim.Step()
	sim.Tick(5)

	if err := sim.Load(mustCompile(t, src)); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := sim.CurrentState(); got != "A" {
		t.Errorf("state after reload = %q, want A", got)
	}
	if got := sim.Clock(); got != 0 {
		t.Errorf("clock after reload = %d, want 0", got)
	}
	if got := len(sim.Trace()); got != 0 {
		t.Errorf("trace after reload has %d entries, want 0", got)
	}
	if got := sim.QueueLen(); got != 0 {
		t.Errorf("queue after reload has %d events, want 0", got)
	}
}

func TestPeriodicTimer(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Watch
			state Watch {
				entry / start_timer(beat)
			}
			state Done
			timer beat = 3 -> pulse periodic
			Watch --> Watch : pulse
			Watch --> Done : quit
		}
	`, nil)

	if got := sim.ArmedTimers(); len(got) != 1 || got[0] != "beat" {
		t.Fatalf("armed after load = %v, want [beat]", got)
	}

	posted, err := sim.Tick(10)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if posted != 3 {
		t.Errorf("10 units with period 3 posted %d events, want 3", posted)
	}
	if got := sim.QueueLen(); got != 3 {
		t.Errorf("queue = %d, want 3", got)
	}

	entries, err := sim.Drain(100)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("drain produced %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Event != "pulse" || e.To != "Watch" {
			t.Errorf("entry %d = %+v, want pulse self-loop", i, e)
		}
	}
}

func TestTimerStopsWhenOwnerExits(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Watch
			state Watch {
				entry / start_timer(beat)
			}
			state Done
			timer beat = 2 -> pulse periodic
			Watch --> Done : quit
		}
	`, nil)

	sim.PostEvent("quit", nil)
	sim.Step()
	if got := sim.CurrentState(); got != "Done" {
		t.Fatalf("state = %q, want Done", got)
	}
	if got := sim.ArmedTimers(); len(got) != 0 {
		t.Errorf("timers still armed after owner exit: %v", got)
	}
	posted, err := sim.Tick(10)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if posted != 0 {
		t.Errorf("disowned timer posted %d events", posted)
	}
}

func TestStopTimerAction(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Watch
			state Watch
			state Hushed
			timer beat = 2 -> pulse
			Watch --> Watch : arm / start_timer(beat)
			Watch --> Hushed : hush / stop_timer(beat)
		}
	`, nil)

	sim.PostEvent("arm", nil)
	sim.Step()
	if got := sim.ArmedTimers(); len(got) != 1 {
		t.Fatalf("armed after arm = %v, want [beat]", got)
	}

	sim.PostEvent("hush", nil)
	sim.Step()
	if got := sim.ArmedTimers(); len(got) != 0 {
		t.Errorf("timer survived stop_timer: %v", got)
	}
	posted, _ := sim.Tick(10)
	if posted != 0 {
		t.Errorf("stopped timer posted %d events", posted)
	}
}

func TestSelfLoopRestartsEntryTimer(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Watch
			state Watch {
				entry / start_timer(beat)
			}
			timer beat = 5 -> pulse
			Watch --> Watch : poke
		}
	`, nil)

	sim.Tick(4)
	sim.PostEvent("poke", nil)
	sim.Step()

	// The self-loop exits and re-enters Watch, so the countdown restarts
	// from 5 instead of firing one unit later.
	posted, _ := sim.Tick(4)
	if posted != 0 {
		t.Fatalf("timer fired %d times before the restarted countdown elapsed", posted)
	}
	posted, _ = sim.Tick(1)
	if posted != 1 {
		t.Errorf("timer posted %d events at the restarted expiry, want 1", posted)
	}
}

func TestOneShotTimerFiresOnce(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> Wait
			state Wait {
				entry / start_timer(late)
			}
			state Fired
			timer late = 4 -> expire
			Wait --> Fired : expire
		}
	`, nil)

	posted, err := sim.Tick(20)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if posted != 1 {
		t.Errorf("one-shot posted %d events, want 1", posted)
	}
	sim.Step()
	if got := sim.CurrentState(); got != "Fired" {
		t.Errorf("state = %q, want Fired", got)
	}
	if got := sim.Clock(); got != 20 {
		t.Errorf("clock = %d, want 20", got)
	}
}

func TestTraceRingDropsOldest(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> A
			state A
			A --> A : loop
		}
	`, &Options{TraceLimit: 3})

	for i := 0; i < 5; i++ {
		sim.PostEvent("loop", nil)
		if _, err := sim.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	trace := sim.Trace()
	if len(trace) != 3 {
		t.Fatalf("trace holds %d entries, want 3", len(trace))
	}
	for i, e := range trace {
		if want := i + 2; e.Seq != want {
			t.Errorf("trace[%d].Seq = %d, want %d", i, e.Seq, want)
		}
	}
}

func TestDrainStepLimit(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> A
			state A
			A --> A : loop
		}
	`, nil)

	for i := 0; i < 5; i++ {
		sim.PostEvent("loop", nil)
	}
	entries, err := sim.Drain(2)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("drain err = %v, want ErrStepLimit", err)
	}
	if len(entries) != 2 {
		t.Errorf("drain produced %d entries before the cap, want 2", len(entries))
	}
}

func TestActionHookSeesEventContext(t *testing.T) {
	type call struct {
		action string
		event  string
	}
	var calls []call
	sim := NewSimulator(&Options{
		OnAction: func(a model.Action, ev Event) {
			calls = append(calls, call{a.String(), ev.Name})
		},
	})
	if err := sim.Load(mustCompile(t, `
		fsm T {
			[*] --> A
			state A {
				entry / boot()
			}
			state B
			A --> B : go / work(fast)
		}
	`)); err != nil {
		t.Fatalf("load: %v", err)
	}

	sim.PostEvent("go", "cargo")
	sim.Step()

	want := []call{{"boot()", ""}, {"work(fast)", "go"}}
	if len(calls) != len(want) {
		t.Fatalf("hook calls = %+v, want %+v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestEventPayloadVisibleToGuards(t *testing.T) {
	sim := loaded(t, `
		fsm T {
			[*] --> S
			state S
			state Big
			state Small
			S --> Big : size [payload > 100]
			S --> Small : size
		}
	`, nil)

	sim.PostEvent("size", 500)
	sim.Step()
	if got := sim.CurrentState(); got != "Big" {
		t.Errorf("payload 500 reached %q, want Big", got)
	}
}

func TestPhaseLifecycle(t *testing.T) {
	sim := NewSimulator(nil)
	if got := sim.Phase(); got != PhaseIdle {
		t.Fatalf("new simulator phase = %v", got)
	}
	if err := sim.Load(mustCompile(t, `
		fsm T {
			[*] --> A
			state A
		}
	`)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := sim.Phase(); got != PhaseReady {
		t.Errorf("phase after load = %v, want ready", got)
	}
	if PhaseRunning.String() != "running" || PhaseIdle.String() != "idle" {
		t.Error("phase names changed")
	}
}

func TestLoadRejectsUnvalidatedInitial(t *testing.T) {
	def := &model.Definition{
		Name:    "broken",
		Initial: "Ghost",
		States:  []model.State{{ID: "Real"}},
	}
	sim := NewSimulator(nil)
	if err := sim.Load(def); err == nil {
		t.Fatal("load accepted a definition whose initial state is undeclared")
	}
	if got := sim.Phase(); got != PhaseIdle {
		t.Errorf("failed load left phase %v, want idle", got)
	}
}
