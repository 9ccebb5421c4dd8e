package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a "M:SS" game clock into the time remaining in the
// current period. An empty clock (between periods) parses as zero.
func ParseClock(clock string) (time.Duration, error) {
	if clock == "" {
		return 0, nil
	}
	mins, secs, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: missing colon", clock)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mins))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	s, err := strconv.Atoi(strings.TrimSpace(secs))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	if m < 0 || s < 0 || s > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", clock)
	}
	return time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

// Elapsed returns game time elapsed since tip-off for a snapshot, using the
// league profile. Overtime periods count at regulation-period length; all
// history entries for a game go through the same arithmetic, so windows
// stay consistent across the overtime boundary.
func Elapsed(s Snapshot, p Profile) (time.Duration, error) {
	if s.Period <= 0 {
		return 0, nil
	}
	remaining, err := ParseClock(s.Clock)
	if err != nil {
		return 0, err
	}
	completed := time.Duration(s.Period-1) * p.PeriodLength
	return completed + (p.PeriodLength - remaining), nil
}

// RegulationRemaining returns game time left in regulation. Zero during
// overtime or after the final whistle.
func RegulationRemaining(s Snapshot, p Profile) (time.Duration, error) {
	if s.Period > p.Periods || s.Final() {
		return 0, nil
	}
	elapsed, err := Elapsed(s, p)
	if err != nil {
		return 0, err
	}
	if rem := p.Regulation() - elapsed; rem > 0 {
		return rem, nil
	}
	return 0, nil
}

// InOvertime reports whether the snapshot is past regulation.
func InOvertime(s Snapshot, p Profile) bool {
	return s.Period > p.Periods
}
