package availability

import (
	"fmt"
	"time"
)

// Interval is a closed span of time. Start never follows End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t lies within the interval, bounds included.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Overlaps reports whether the two intervals share more than a boundary.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// WorkingHours is the daily window, in whole hours, during which slots may
// be offered. It applies to every calendar day in the query's location.
type WorkingHours struct {
	Start int
	End   int
}

// DefaultWorkingHours is 09:00-18:00.
var DefaultWorkingHours = WorkingHours{Start: 9, End: 18}

// Query describes a free-slot search.
type Query struct {
	RangeStart  time.Time
	RangeEnd    time.Time
	MinDuration time.Duration
	Hours       WorkingHours
}

// DefaultMinDuration is the minimum slot length used when callers do not
// supply one.
const DefaultMinDuration = 30 * time.Minute

// PreconditionError reports query parameters that FreeSlots refuses to
// evaluate.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the query preconditions.
func (q Query) Validate() error {
	if q.RangeStart.After(q.RangeEnd) {
		return &PreconditionError{Field: "range", Reason: "start is after end"}
	}
	if q.MinDuration <= 0 {
		return &PreconditionError{Field: "min_duration", Reason: "must be positive"}
	}
	if q.Hours.Start < 0 || q.Hours.Start > 23 || q.Hours.End < 0 || q.Hours.End > 23 {
		return &PreconditionError{Field: "working_hours", Reason: "hours must be between 0 and 23"}
	}
	if q.Hours.Start >= q.Hours.End {
		return &PreconditionError{Field: "working_hours", Reason: "start must be before end"}
	}
	return nil
}
