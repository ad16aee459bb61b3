package calendar

import (
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/calendar-assistant/internal/availability"
	"github.com/teemow/calendar-assistant/internal/isotime"
)

// Event is the subset of a Google Calendar event the tools work with.
// Start and End hold the provider's text: an RFC 3339 date-time, or a
// bare date for all-day events.
type Event struct {
	ID       string
	Summary  string
	Location string
	Start    string
	End      string
}

// Interval parses the event bounds. Bounds without an offset, such as
// all-day dates, are placed in ref.
func (e Event) Interval(ref *time.Location) (availability.Interval, error) {
	start, err := isotime.Parse(e.Start, ref)
	if err != nil {
		return availability.Interval{}, fmt.Errorf("event %s start: %w", e.ID, err)
	}
	end, err := isotime.Parse(e.End, ref)
	if err != nil {
		return availability.Interval{}, fmt.Errorf("event %s end: %w", e.ID, err)
	}
	return availability.Interval{Start: start, End: end}, nil
}

// EventInput describes a new timed event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is an optional IANA name sent alongside the start and end.
	TimeZone string
}

// EventPatch holds the fields to change on an existing event. Nil fields
// are left untouched by the provider.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	TimeZone    string
}

// NewEventPatch returns an empty patch.
func NewEventPatch() *EventPatch {
	return &EventPatch{}
}

// SetSummary sets the event title.
func (p *EventPatch) SetSummary(s string) *EventPatch {
	p.Summary = &s
	return p
}

// SetDescription sets the description.
func (p *EventPatch) SetDescription(s string) *EventPatch {
	p.Description = &s
	return p
}

// SetLocation sets the location.
func (p *EventPatch) SetLocation(s string) *EventPatch {
	p.Location = &s
	return p
}

// SetStart moves the start.
func (p *EventPatch) SetStart(t time.Time) *EventPatch {
	p.Start = &t
	return p
}

// SetEnd moves the end.
func (p *EventPatch) SetEnd(t time.Time) *EventPatch {
	p.End = &t
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p *EventPatch) IsEmpty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil && p.Start == nil && p.End == nil
}

// Fields lists the names of the fields the patch sets, in a fixed order.
func (p *EventPatch) Fields() []string {
	var fields []string
	if p.Summary != nil {
		fields = append(fields, "summary")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Location != nil {
		fields = append(fields, "location")
	}
	if p.Start != nil {
		fields = append(fields, "start")
	}
	if p.End != nil {
		fields = append(fields, "end")
	}
	return fields
}

// toAPI builds the patch body. Empty strings are forced onto the wire so
// that a field can be cleared.
func (p *EventPatch) toAPI() *calendar.Event {
	ev := &calendar.Event{}
	if p.Summary != nil {
		ev.Summary = *p.Summary
		if *p.Summary == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Summary")
		}
	}
	if p.Description != nil {
		ev.Description = *p.Description
		if *p.Description == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Description")
		}
	}
	if p.Location != nil {
		ev.Location = *p.Location
		if *p.Location == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Location")
		}
	}
	if p.Start != nil {
		ev.Start = dateTime(*p.Start, p.TimeZone)
	}
	if p.End != nil {
		ev.End = dateTime(*p.End, p.TimeZone)
	}
	return ev
}

func (in EventInput) toAPI() *calendar.Event {
	return &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       dateTime(in.Start, in.TimeZone),
		End:         dateTime(in.End, in.TimeZone),
	}
}

func dateTime(t time.Time, tz string) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: tz,
	}
}

func fromAPI(ev *calendar.Event) Event {
	if ev == nil {
		return Event{}
	}
	out := Event{
		ID:       ev.Id,
		Summary:  ev.Summary,
		Location: ev.Location,
	}
	if ev.Start != nil {
		out.Start = ev.Start.DateTime
		if out.Start == "" {
			out.Start = ev.Start.Date
		}
	}
	if ev.End != nil {
		out.End = ev.End.DateTime
		if out.End == "" {
			out.End = ev.End.Date
		}
	}
	return out
}
