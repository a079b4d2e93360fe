// Package engine executes state machine definitions. The Simulator is a
// run-to-completion interpreter: it holds the current state, a pending-event
// queue, armed logical timers, and an append-only bounded trace. One event is
// processed per Step, including any chained choice resolution, before the
// next event is considered.
//
// The Simulator holds a non-owning reference to one model.Definition and
// never mutates it. Mutating calls (Load, PostEvent, Step, Tick, Bind) must
// come from a single owner serially; read accessors return point-in-time
// copies safe to hand to other goroutines.
package engine

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fsmkit/go-fsmkit/guard"
	"github.com/fsmkit/go-fsmkit/model"
)

// Phase describes the simulator lifecycle.
type Phase int

const (
	// PhaseIdle means no machine is loaded.
	PhaseIdle Phase = iota

	// PhaseReady means a machine is loaded and the engine is between steps.
	PhaseReady

	// PhaseRunning means one event is being processed to completion.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Event is one queued occurrence. Payloads are opaque to the engine; guards
// see them through the "payload" binding.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

// ActionFunc observes every executed action. The engine itself only
// interprets the start_timer and stop_timer built-ins; everything else is
// application behavior surfaced through this hook. The hook runs inside the
// step, so it must not call back into the Simulator; entry actions executed
// by Load see a zero Event.
type ActionFunc func(action model.Action, event Event)

// Options configures a Simulator. The zero value (or nil) selects defaults:
// the expression guard evaluator, a trace limit of 1024 entries, and no
// logging.
type Options struct {
	// TraceLimit bounds the trace; oldest entries drop beyond it.
	TraceLimit int

	// Guards resolves guard and branch condition text. Defaults to
	// guard.NewEvaluator().
	Guards guard.Evaluator

	// OnAction, when set, is invoked for each executed action in order.
	OnAction ActionFunc

	// Logger receives step-level diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger
}

// DefaultTraceLimit bounds the trace when Options.TraceLimit is unset.
const DefaultTraceLimit = 1024

// Simulator interprets one loaded definition.
type Simulator struct {
	mu sync.Mutex

	def     *model.Definition
	phase   Phase
	current string
	queue   []Event
	clock   int
	seq     int
	timers  []*armedTimer
	trace   *traceRing
	vars    guard.Env

	guards   guard.Evaluator
	onAction ActionFunc
	log      *zap.Logger
}

// NewSimulator creates a simulator in the Idle phase.
func NewSimulator(opts *Options) *Simulator {
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.TraceLimit
	if limit < 1 {
		limit = DefaultTraceLimit
	}
	guards := opts.Guards
	if guards == nil {
		guards = guard.NewEvaluator()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{
		phase:    PhaseIdle,
		trace:    newTraceRing(limit),
		vars:     guard.Env{},
		guards:   guards,
		onAction: opts.OnAction,
		log:      log,
	}
}

// Load resets the simulator to the initial state of the given definition:
// queue, timers, clock, and trace are cleared. Load is idempotent; loading
// the same definition again restores the same freshly-reset runtime. The
// initial state's entry actions run as part of loading, so timers armed on
// entry are live before the first event.
func (s *Simulator) Load(def *model.Definition) error {
	if def == nil {
		return fmt.Errorf("load: %w", ErrNilDefinition)
	}
	if !def.IsState(def.Initial) {
		return fmt.Errorf("load %q: initial state %q is not declared (validate before loading)",
			def.Name, def.Initial)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.def = def
	s.current = def.Initial
	s.queue = nil
	s.timers = nil
	s.clock = 0
	s.seq = 0
	s.trace.reset()
	s.phase = PhaseReady

	s.log.Debug("machine loaded",
		zap.String("machine", def.Name),
		zap.String("initial", def.Initial))

	if st, ok := def.FindState(def.Initial); ok {
		for _, a := range st.Entry {
			s.runAction(a, def.Initial, Event{}, nil)
		}
	}
	return nil
}

// PostEvent appends an event to the tail of the pending queue and returns
// immediately. Posting before Load is an error and leaves the engine
// untouched.
func (s *Simulator) PostEvent(name string, payload any) error {
	if name == "" {
		return fmt.Errorf("post event: empty event name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle {
		return fmt.Errorf("post event %q: %w", name, ErrNotLoaded)
	}
	s.queue = append(s.queue, Event{Name: name, Payload: payload})
	s.log.Debug("event posted", zap.String("event", name), zap.Int("queued", len(s.queue)))
	return nil
}

// Step pops one event and processes it to completion, returning the trace
// entry it produced. With an empty queue it returns ErrNoPendingEvent and
// changes nothing. An unmatched event leaves the state unchanged and yields
// an entry marked Unmatched.
func (s *Simulator) Step() (*TraceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle {
		return nil, fmt.Errorf("step: %w", ErrNotLoaded)
	}
	if len(s.queue) == 0 {
		return nil, ErrNoPendingEvent
	}

	s.phase = PhaseRunning
	defer func() { s.phase = PhaseReady }()

	ev := s.queue[0]
	s.queue = s.queue[1:]

	entry := TraceEntry{
		Seq:   s.seq,
		Clock: s.clock,
		From:  s.current,
		Event: ev.Name,
	}
	s.seq++

	env := s.guardEnv(ev)

	// Dispatch: candidates in declaration order, first passing guard wins.
	var chosen *model.Transition
	for i := range s.def.Transitions {
		t := &s.def.Transitions[i]
		if t.Source != s.current || t.Event != ev.Name {
			continue
		}
		if s.evalGuard(t.Guard, env) {
			chosen = t
			break
		}
	}

	if chosen == nil {
		entry.To = s.current
		entry.Unmatched = true
		s.trace.append(entry)
		s.log.Debug("event unmatched",
			zap.String("state", s.current), zap.String("event", ev.Name))
		return &entry, nil
	}

	// Resolve the choice chain up front. Guards decide the full path before
	// any action runs, so a residual cycle aborts with no side effects.
	path, branches, dest, err := s.resolvePath(chosen.Target, env)
	if err != nil {
		s.log.Error("step fault",
			zap.String("state", s.current), zap.String("event", ev.Name), zap.Error(err))
		return nil, err
	}
	entry.Via = path

	old := s.current

	// Exit actions of the old state, then its timers disarm.
	if st, ok := s.def.FindState(old); ok {
		for _, a := range st.Exit {
			s.runAction(a, old, ev, &entry)
		}
	}
	s.disarmOwned(old)

	// Transition actions, then branch actions in traversal order.
	for _, a := range chosen.Actions {
		s.runAction(a, dest, ev, &entry)
	}
	for _, b := range branches {
		for _, a := range b.Actions {
			s.runAction(a, dest, ev, &entry)
		}
	}

	// Enter the destination.
	s.current = dest
	if st, ok := s.def.FindState(dest); ok {
		for _, a := range st.Entry {
			s.runAction(a, dest, ev, &entry)
		}
	}

	entry.To = dest
	s.trace.append(entry)
	s.log.Debug("step",
		zap.String("from", old),
		zap.String("to", dest),
		zap.String("event", ev.Name),
		zap.Strings("via", path))
	return &entry, nil
}

// resolvePath follows choice targets to a final state, evaluating branch
// conditions in declaration order with the else branch as fallback. It
// returns the visited choice IDs, the branches taken, and the destination.
func (s *Simulator) resolvePath(target string, env guard.Env) ([]string, []*model.Branch, string, error) {
	var path []string
	var taken []*model.Branch
	visited := make(map[string]bool)

	for s.def.IsChoice(target) {
		if visited[target] {
			return nil, nil, "", fmt.Errorf("choice %q revisited while resolving one event: %w",
				target, ErrChoiceCycle)
		}
		visited[target] = true
		path = append(path, target)

		choice, _ := s.def.FindChoice(target)
		var branch *model.Branch
		var fallback *model.Branch
		for i := range choice.Branches {
			b := &choice.Branches[i]
			if b.Else {
				if fallback == nil {
					fallback = b
				}
				continue
			}
			if s.evalGuard(b.Cond, env) {
				branch = b
				break
			}
		}
		if branch == nil {
			branch = fallback
		}
		if branch == nil {
			return nil, nil, "", fmt.Errorf("choice %q has no viable branch: %w",
				target, ErrNoViableBranch)
		}
		taken = append(taken, branch)
		target = branch.Target
	}

	if !s.def.IsState(target) {
		return nil, nil, "", fmt.Errorf("target %q is not a declared state: %w",
			target, ErrNoViableBranch)
	}
	return path, taken, target, nil
}

// runAction records, logs, and forwards one action, interpreting the timer
// built-ins. owner is the state that adopts any timer armed here.
func (s *Simulator) runAction(a model.Action, owner string, ev Event, entry *TraceEntry) {
	if entry != nil {
		entry.Actions = append(entry.Actions, a.String())
	}

	switch a.Name {
	case "start_timer":
		if len(a.Args) == 1 {
			s.armTimer(a.Args[0], owner)
		} else {
			s.log.Warn("start_timer takes exactly one timer name", zap.Strings("args", a.Args))
		}
	case "stop_timer":
		if len(a.Args) == 1 {
			s.disarmTimer(a.Args[0])
		} else {
			s.log.Warn("stop_timer takes exactly one timer name", zap.Strings("args", a.Args))
		}
	}

	if s.onAction != nil {
		s.onAction(a, ev)
	}
}

// guardEnv merges host bindings with the event context for one evaluation.
func (s *Simulator) guardEnv(ev Event) guard.Env {
	env := make(guard.Env, len(s.vars)+2)
	for k, v := range s.vars {
		env[k] = v
	}
	env["event"] = ev.Name
	env["payload"] = ev.Payload
	return env
}

// evalGuard treats empty guards as true and evaluation errors as false, so
// simulation always makes progress.
func (s *Simulator) evalGuard(expr string, env guard.Env) bool {
	if expr == "" {
		return true
	}
	ok, err := s.guards.Eval(expr, env)
	if err != nil {
		s.log.Warn("guard evaluation failed, treating as false",
			zap.String("guard", expr), zap.Error(err))
		return false
	}
	return ok
}

// Bind sets a host variable visible to guard expressions. Bindings survive
// Load; they belong to the embedding application, not the machine.
func (s *Simulator) Bind(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Drain steps until the queue is empty, returning the produced entries.
// maxSteps caps runaway feedback loops (periodic timers posting into a
// machine that reposts); exceeding it returns ErrStepLimit.
func (s *Simulator) Drain(maxSteps int) ([]TraceEntry, error) {
	var entries []TraceEntry
	for i := 0; maxSteps < 1 || i < maxSteps; i++ {
		entry, err := s.Step()
		if err == ErrNoPendingEvent {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *entry)
	}
	if s.QueueLen() == 0 {
		return entries, nil
	}
	return entries, fmt.Errorf("drain stopped after %d steps: %w", maxSteps, ErrStepLimit)
}

// CurrentState returns the state the machine rests in, or "" before Load.
func (s *Simulator) CurrentState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Phase returns the lifecycle phase.
func (s *Simulator) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// QueueLen returns the number of pending events.
func (s *Simulator) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Clock returns the logical time advanced by Tick.
func (s *Simulator) Clock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Trace returns an ordered point-in-time copy of the retained trace.
func (s *Simulator) Trace() []TraceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace.snapshot()
}

// Definition returns the loaded definition, or nil while Idle.
func (s *Simulator) Definition() *model.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}
