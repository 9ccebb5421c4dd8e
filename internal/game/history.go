package game

import "time"

// scoreEvent is one observed scoring delta, stamped with game time elapsed.
type scoreEvent struct {
	elapsed time.Duration
	home    int
	away    int
}

// History is the per-game rolling state the deriver reads: the last accepted
// snapshot (delta baseline), a clock-stamped scoring log for momentum
// windows, and once-per-game latches. Not safe for concurrent use; each game
// worker owns its History.
type History struct {
	profile   Profile
	retention time.Duration

	prev    *Snapshot
	events  []scoreEvent
	elapsed time.Duration // last parseable elapsed value, monotonic

	startAlerted bool
}

// NewHistory creates a History retaining at least retention of scoring
// events. Retention must exceed the longest momentum window in use.
func NewHistory(p Profile, retention time.Duration) *History {
	return &History{profile: p, retention: retention}
}

// Prev returns the delta baseline snapshot, if one has been accepted.
func (h *History) Prev() (Snapshot, bool) {
	if h.prev == nil {
		return Snapshot{}, false
	}
	return *h.prev, true
}

// Advance accepts a snapshot as the new baseline and logs its scoring delta.
// Called after derivation so the deriver always sees the pre-advance state.
func (h *History) Advance(s Snapshot) {
	if h.prev != nil {
		dh := s.HomeScore - h.prev.HomeScore
		da := s.AwayScore - h.prev.AwayScore
		if dh != 0 || da != 0 {
			h.events = append(h.events, scoreEvent{elapsed: h.stamp(s), home: dh, away: da})
		}
	} else {
		h.stamp(s)
	}
	cp := s
	h.prev = &cp
	h.trim()
}

// stamp computes elapsed game time, falling back to the last good value when
// the clock is missing or unparsable so scoring is never dropped.
func (h *History) stamp(s Snapshot) time.Duration {
	el, err := Elapsed(s, h.profile)
	if err != nil || el < h.elapsed {
		return h.elapsed
	}
	h.elapsed = el
	return el
}

func (h *History) trim() {
	cutoff := h.elapsed - h.retention
	i := 0
	for i < len(h.events) && h.events[i].elapsed < cutoff {
		i++
	}
	if i > 0 {
		h.events = append(h.events[:0], h.events[i:]...)
	}
}

// TeamPoints sums logged scoring over the trailing window of game time
// ending at asOf. The caller adds the not-yet-advanced current delta itself.
func (h *History) TeamPoints(asOf, window time.Duration) (home, away int) {
	cutoff := asOf - window
	for _, ev := range h.events {
		if ev.elapsed >= cutoff && ev.elapsed <= asOf {
			home += ev.home
			away += ev.away
		}
	}
	return home, away
}

// ResetBaseline replaces the baseline without logging a delta. Used when a
// stale feed recovers: the resume snapshot must not produce delta signals.
func (h *History) ResetBaseline(s Snapshot) {
	cp := s
	h.prev = &cp
	h.events = h.events[:0]
	h.stamp(s)
}

// StartAlerted reports whether the pre-game alert already fired.
func (h *History) StartAlerted() bool { return h.startAlerted }

// MarkStartAlerted latches the pre-game alert so it fires once per game.
func (h *History) MarkStartAlerted() { h.startAlerted = true }
