package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// armedTimer is one live countdown. Timers are logical: they only advance
// through Tick, never through wall time. The arming order is preserved so
// simultaneous expiries post in a deterministic order.
type armedTimer struct {
	id        string
	owner     string
	remaining int
}

// armTimer arms (or re-arms) a declared timer under the given owning state.
// Re-arming resets the countdown and moves the timer to the back of the
// arming order.
func (s *Simulator) armTimer(id, owner string) {
	t, ok := s.def.FindTimer(id)
	if !ok {
		s.log.Warn("start_timer names an undeclared timer", zap.String("timer", id))
		return
	}
	s.removeTimer(id)
	s.timers = append(s.timers, &armedTimer{id: id, owner: owner, remaining: t.Duration})
	s.log.Debug("timer armed",
		zap.String("timer", id),
		zap.String("owner", owner),
		zap.Int("duration", t.Duration))
}

// disarmTimer cancels one timer by name. Stopping a timer that is not armed
// is a no-op.
func (s *Simulator) disarmTimer(id string) {
	if s.removeTimer(id) {
		s.log.Debug("timer disarmed", zap.String("timer", id))
	}
}

// disarmOwned cancels every timer the given state armed. Called when that
// state is exited.
func (s *Simulator) disarmOwned(owner string) {
	kept := s.timers[:0]
	for _, t := range s.timers {
		if t.owner == owner {
			s.log.Debug("timer disarmed with owner",
				zap.String("timer", t.id), zap.String("owner", owner))
			continue
		}
		kept = append(kept, t)
	}
	s.timers = kept
}

func (s *Simulator) removeTimer(id string) bool {
	for i, t := range s.timers {
		if t.id == id {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Tick advances the logical clock by units. Each unit decrements every armed
// timer in arming order; a timer reaching zero posts its event to the queue
// tail, then either re-arms (periodic) or disarms (one-shot). Tick returns
// the number of events posted; it never dispatches them, so the caller
// decides when expiries are processed.
func (s *Simulator) Tick(units int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle {
		return 0, fmt.Errorf("tick: %w", ErrNotLoaded)
	}
	if units < 0 {
		return 0, fmt.Errorf("tick: negative units %d", units)
	}

	posted := 0
	for u := 0; u < units; u++ {
		s.clock++
		// A periodic re-arm keeps its slot, so one timer fires at most once
		// per unit even when its duration is 1.
		for _, t := range s.timers {
			t.remaining--
			if t.remaining > 0 {
				continue
			}
			decl, ok := s.def.FindTimer(t.id)
			if !ok {
				t.remaining = 0
				continue
			}
			s.queue = append(s.queue, Event{Name: decl.Event})
			posted++
			s.log.Debug("timer fired",
				zap.String("timer", t.id),
				zap.String("event", decl.Event),
				zap.Int("clock", s.clock),
				zap.Bool("periodic", decl.Periodic))
			if decl.Periodic {
				t.remaining = decl.Duration
			} else {
				t.remaining = expired
			}
		}
		s.sweepExpired()
	}
	return posted, nil
}

// expired marks a fired one-shot for the post-unit sweep. Removal is
// deferred so the slice is not edited mid-iteration.
const expired = -1

func (s *Simulator) sweepExpired() {
	kept := s.timers[:0]
	for _, t := range s.timers {
		if t.remaining == expired {
			continue
		}
		kept = append(kept, t)
	}
	s.timers = kept
}

// ArmedTimers returns the armed timer names in arming order.
func (s *Simulator) ArmedTimers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.timers))
	for i, t := range s.timers {
		ids[i] = t.id
	}
	return ids
}
