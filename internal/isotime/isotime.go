// Package isotime parses ISO-8601 timestamps supplied by tool callers and
// by the calendar provider into time.Time values that always carry a
// concrete location.
package isotime

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO-8601 form used when rendering instants back to callers.
// Unlike time.RFC3339 it never abbreviates a zero offset to "Z".
const Layout = "2006-01-02T15:04:05-07:00"

// DateLayout is the date-only form used by all-day events.
const DateLayout = "2006-01-02"

// Layouts carrying an explicit offset. Fractional seconds are accepted
// after the seconds field without being named in the layout.
var offsetLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04-07",
}

// Layouts without an offset, interpreted in the reference location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	DateLayout,
}

// ParseError reports timestamp text that is not a valid ISO-8601 date or
// date-time.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid ISO-8601 datetime %q", e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse converts text into an instant. Naive input (no offset) is placed in
// ref; a nil ref means UTC. A trailing "Z" is read as "+00:00".
func Parse(text string, ref *time.Location) (time.Time, error) {
	t, naive, err := parse(text, ref)
	if err != nil {
		return time.Time{}, err
	}
	if naive {
		return t, nil
	}
	return fixed(t), nil
}

// IsNaive reports whether text parses as a timestamp without an offset.
func IsNaive(text string) bool {
	_, naive, err := parse(text, time.UTC)
	return err == nil && naive
}

func parse(text string, ref *time.Location) (time.Time, bool, error) {
	if ref == nil {
		ref = time.UTC
	}

	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false, &ParseError{Input: text, Err: fmt.Errorf("empty input")}
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	// Date and time may be separated by a single space.
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}

	var lastErr error
	for _, layout := range offsetLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, false, nil
		}
		lastErr = err
	}
	for _, layout := range naiveLayouts {
		t, err := time.ParseInLocation(layout, s, ref)
		if err == nil {
			return t, true, nil
		}
		lastErr = err
	}
	return time.Time{}, false, &ParseError{Input: text, Err: lastErr}
}

// fixed pins t to a fixed-offset zone. time.Parse otherwise attaches
// time.Local whenever the offset happens to match it, which would let day
// arithmetic follow Local's DST rules.
func fixed(t time.Time) time.Time {
	_, offset := t.Zone()
	if offset == 0 {
		return t.In(time.UTC)
	}
	return t.In(time.FixedZone("", offset))
}

// Format renders t in Layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// LoadLocation resolves an IANA zone name such as the account timezone
// setting. Empty or unknown names resolve to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
