package instrumentation

import "strings"

// Calendar classes used as a low-cardinality stand-in for calendar IDs.
const (
	CalendarClassPrimary  = "primary"
	CalendarClassUser     = "user"
	CalendarClassGroup    = "group"
	CalendarClassResource = "resource"
	CalendarClassHoliday  = "holiday"
	CalendarClassUnknown  = "unknown"
)

// CalendarClass reduces a calendar ID to one of the CalendarClass values so
// that it can be used as a metric label without exposing addresses.
//
//	CalendarClass("primary")                               // "primary"
//	CalendarClass("jane@example.com")                      // "user"
//	CalendarClass("abc123@group.calendar.google.com")      // "group"
//	CalendarClass("en.usa#holiday@group.v.calendar.google.com") // "holiday"
func CalendarClass(calendarID string) string {
	if calendarID == "" || calendarID == "primary" {
		return CalendarClassPrimary
	}

	at := strings.LastIndex(calendarID, "@")
	if at <= 0 || at == len(calendarID)-1 {
		return CalendarClassUnknown
	}

	switch domain := strings.ToLower(calendarID[at+1:]); {
	case strings.Contains(calendarID, "#holiday"):
		return CalendarClassHoliday
	case domain == "group.calendar.google.com":
		return CalendarClassGroup
	case domain == "resource.calendar.google.com":
		return CalendarClassResource
	case strings.HasSuffix(domain, "calendar.google.com"):
		return CalendarClassUnknown
	default:
		return CalendarClassUser
	}
}
