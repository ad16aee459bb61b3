package availability

import (
	"iter"
	"slices"
	"time"
)

// FreeSlots returns the bookable intervals of q given the busy intervals
// reported by the calendar. Busy intervals may be unsorted, overlapping or
// extend past the range. Slots come back in chronological order, each
// inside the working hours of its day and at least q.MinDuration long.
//
// All day arithmetic happens in q.RangeStart's location.
func FreeSlots(q Query, busy []Interval) ([]Interval, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return slices.Collect(q.slots(busy)), nil
}

// slots sweeps the range, yielding every working-hours slot of each gap
// between busy intervals.
func (q Query) slots(busy []Interval) iter.Seq[Interval] {
	loc := q.RangeStart.Location()
	rangeEnd := q.RangeEnd.In(loc)

	sorted := make([]Interval, len(busy))
	for i, b := range busy {
		sorted[i] = Interval{Start: b.Start.In(loc), End: b.End.In(loc)}
	}
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})

	return func(yield func(Interval) bool) {
		current := q.RangeStart
		for _, b := range sorted {
			if !b.End.After(current) {
				continue
			}
			if b.Start.After(current) {
				for slot := range q.clip(current, minTime(b.Start, rangeEnd)) {
					if !yield(slot) {
						return
					}
				}
			}
			current = maxTime(current, b.End)
			if !current.Before(rangeEnd) {
				return
			}
		}
		if current.Before(rangeEnd) {
			for slot := range q.clip(current, rangeEnd) {
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// clip walks a gap day by day and yields its intersection with each day's
// working hours, dropping pieces shorter than q.MinDuration.
func (q Query) clip(gapStart, gapEnd time.Time) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		loc := gapStart.Location()
		current := gapStart
		for current.Before(gapEnd) {
			y, m, d := current.Date()
			workStart := time.Date(y, m, d, q.Hours.Start, 0, 0, 0, loc)
			workEnd := time.Date(y, m, d, q.Hours.End, 0, 0, 0, loc)

			slot := Interval{Start: maxTime(current, workStart), End: minTime(gapEnd, workEnd)}
			if slot.Start.Before(slot.End) && slot.Duration() >= q.MinDuration {
				if !yield(slot) {
					return
				}
			}
			current = time.Date(y, m, d+1, q.Hours.Start, 0, 0, 0, loc)
		}
	}
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Merge returns the union of busy as sorted, disjoint intervals. Touching
// intervals are joined. busy is not modified.
func Merge(busy []Interval) []Interval {
	sorted := slices.Clone(busy)
	slices.SortFunc(sorted, func(a, b Interval) int { return a.Start.Compare(b.Start) })

	var out []Interval
	for _, b := range sorted {
		if n := len(out); n > 0 && !b.Start.After(out[n-1].End) {
			out[n-1].End = maxTime(out[n-1].End, b.End)
			continue
		}
		out = append(out, b)
	}
	return out
}
