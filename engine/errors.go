package engine

import "errors"

var (
	// ErrNilDefinition is returned by Load when given no definition.
	ErrNilDefinition = errors.New("nil definition")

	// ErrNotLoaded is returned when PostEvent, Step, or Tick is called
	// before a definition is loaded.
	ErrNotLoaded = errors.New("no machine loaded")

	// ErrNoPendingEvent is returned by Step when the queue is empty. It is
	// not a fault; callers polling the engine treat it as "nothing to do".
	ErrNoPendingEvent = errors.New("no pending event")

	// ErrChoiceCycle is returned when resolving one event revisits a choice
	// pseudo-state. Validation rejects static cycles, so hitting this at
	// runtime means the definition bypassed validation.
	ErrChoiceCycle = errors.New("choice cycle")

	// ErrNoViableBranch is returned when a choice has no passing condition
	// and no else branch.
	ErrNoViableBranch = errors.New("no viable branch")

	// ErrStepLimit is returned by Drain when the step cap is hit with
	// events still pending.
	ErrStepLimit = errors.New("step limit exceeded")
)
