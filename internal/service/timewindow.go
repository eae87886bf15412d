package service

import (
	"fmt"
	"time"
)

// TimeWindowEvaluator decides whether an observation falls inside an
// assignment's daily [start, end] time-of-day window. The observation is
// projected into the deployment time zone before the date component is
// discarded; workers do not carry individual time zones yet, so the zone is a
// single configuration value.
type TimeWindowEvaluator struct {
	loc *time.Location
}

// NewTimeWindowEvaluator creates an evaluator for the given zone. A nil
// location falls back to UTC.
func NewTimeWindowEvaluator(loc *time.Location) *TimeWindowEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeWindowEvaluator{loc: loc}
}

// InWindow reports whether observedAt, projected into the evaluator's zone,
// has a time of day within [startTime, endTime] inclusive. The bounds are
// HH:mm:ss strings; malformed bounds are a configuration error.
//
// A window whose start is after its end (crossing midnight) never matches.
// That mirrors the stored-assignment semantics this engine inherited; whether
// such windows should wrap is an open product question.
func (e *TimeWindowEvaluator) InWindow(observedAt time.Time, startTime, endTime string) (bool, error) {
	start, err := parseTimeOfDay(startTime)
	if err != nil {
		return false, fmt.Errorf("invalid window start %q: %w", startTime, err)
	}
	end, err := parseTimeOfDay(endTime)
	if err != nil {
		return false, fmt.Errorf("invalid window end %q: %w", endTime, err)
	}

	if start > end {
		return false, nil
	}

	local := observedAt.In(e.loc)
	secs := local.Hour()*3600 + local.Minute()*60 + local.Second()

	return secs >= start && secs <= end, nil
}

// parseTimeOfDay converts HH:mm:ss to seconds since midnight
func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}
