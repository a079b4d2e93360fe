package engine

// TraceEntry records one processed event. Via lists choice pseudo-states
// crossed on the way to To; Actions lists executed actions in execution
// order (exit, transition, branch, entry). An Unmatched entry marks an event
// that no transition accepted; From equals To in that case.
type TraceEntry struct {
	Seq       int      `json:"seq"`
	Clock     int      `json:"clock"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Event     string   `json:"event"`
	Via       []string `json:"via,omitempty"`
	Actions   []string `json:"actions,omitempty"`
	Unmatched bool     `json:"unmatched,omitempty"`
}

// traceRing retains the most recent entries up to a fixed limit, dropping
// the oldest beyond it. Sequence numbers keep counting, so a reader can tell
// when the front has been trimmed.
type traceRing struct {
	entries []TraceEntry
	start   int
	count   int
}

func newTraceRing(limit int) *traceRing {
	return &traceRing{entries: make([]TraceEntry, limit)}
}

func (r *traceRing) append(e TraceEntry) {
	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = e
		r.count++
		return
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % len(r.entries)
}

func (r *traceRing) snapshot() []TraceEntry {
	out := make([]TraceEntry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

func (r *traceRing) reset() {
	r.start = 0
	r.count = 0
}
