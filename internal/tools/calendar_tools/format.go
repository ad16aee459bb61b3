package calendar_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calendar-assistant/internal/availability"
	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/google"
	"github.com/teemow/calendar-assistant/internal/isotime"
	"github.com/teemow/calendar-assistant/internal/logging"
	"github.com/teemow/calendar-assistant/internal/server"
)

// User-facing error messages.
const (
	msgAuthExpired    = "Error: Authentication expired. Please re-run OAuth flow."
	msgEventNotFound  = "Error: Event ID '%s' not found."
	msgCalNotFound    = "Error: Calendar '%s' not found."
	msgQuotaExceeded  = "Error: Google Calendar API quota exceeded. Try again later."
	msgEventInPast    = "Error: Cannot create event in the past. Start time %s is before now."
	msgNetworkFailure = "Error: Could not reach Google Calendar API. Check network connection."
	msgUnexpected     = "Error: Unexpected failure - %s"
	msgInvalidArg     = "Error: Invalid %s: %v"
)

// formatEvent renders "ID: <id> | <summary> | <start> - <end>[ @ <location>]".
func formatEvent(ev calendar.Event) string {
	id := orDefault(ev.ID, "?")
	summary := orDefault(ev.Summary, "(No title)")
	loc := ""
	if ev.Location != "" {
		loc = " @ " + ev.Location
	}
	return fmt.Sprintf("ID: %s | %s | %s - %s%s", id, summary, orDefault(ev.Start, "?"), orDefault(ev.End, "?"), loc)
}

func formatEventList(header string, events []calendar.Event) string {
	var b strings.Builder
	b.WriteString(header)
	for _, ev := range events {
		b.WriteString("\n  ")
		b.WriteString(formatEvent(ev))
	}
	return b.String()
}

func formatSlots(q availability.Query, slots []availability.Interval) string {
	if len(slots) == 0 {
		return "No free slots found in the given range."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Free slots (%dmin min, %d:00-%d:00):", int(q.MinDuration/time.Minute), q.Hours.Start, q.Hours.End)
	for _, s := range slots {
		fmt.Fprintf(&b, "\n  %s - %s", isotime.Format(s.Start), isotime.Format(s.End))
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func invalidArgument(name string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(msgInvalidArg, name, err))
}

// errorResult renders a provider or core error. eventID is empty when the
// call did not address a single event.
func errorResult(ctx context.Context, sc *server.ServerContext, req request, eventID string, err error) *mcp.CallToolResult {
	var authErr *google.AuthError
	var precondition *availability.PreconditionError

	switch {
	case errors.As(err, &authErr):
		return mcp.NewToolResultError(msgAuthExpired)
	case calendar.IsNotFound(err) && eventID != "":
		return mcp.NewToolResultError(fmt.Sprintf(msgEventNotFound, eventID))
	case calendar.IsNotFound(err):
		return mcp.NewToolResultError(fmt.Sprintf(msgCalNotFound, req.calendarID))
	case calendar.IsQuotaExceeded(err):
		return mcp.NewToolResultError(msgQuotaExceeded)
	case calendar.IsNetworkFailure(err):
		return mcp.NewToolResultError(msgNetworkFailure)
	case errors.As(err, &precondition):
		return mcp.NewToolResultError("Error: " + precondition.Error())
	}

	sc.Logger().ErrorContext(ctx, "calendar tool failed",
		logging.Account(req.account),
		logging.Calendar(req.calendarID),
		logging.Err(err))
	return mcp.NewToolResultError(fmt.Sprintf(msgUnexpected, err))
}
