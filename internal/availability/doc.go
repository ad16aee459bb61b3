// Package availability computes free time from busy intervals.
//
// A Query names a range, a minimum slot length and a daily working-hours
// window. FreeSlots sweeps the busy intervals reported for that range and
// clips every remaining gap to the working hours of each day it touches:
//
//	q := availability.Query{
//	    RangeStart:  start,
//	    RangeEnd:    end,
//	    MinDuration: 30 * time.Minute,
//	    Hours:       availability.DefaultWorkingHours,
//	}
//	slots, err := availability.FreeSlots(q, busy)
//
// Day boundaries are computed with time.Date in the location of the range
// start. With a fixed offset every day is 24 hours long; with a named zone
// the working window follows the local wall clock across DST transitions.
//
// The package is pure and safe for concurrent use.
package availability
