package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/isotime"
	"github.com/teemow/calendar-assistant/internal/logging"
	"github.com/teemow/calendar-assistant/internal/server"
	"github.com/teemow/calendar-assistant/internal/tools/common"
)

const defaultDurationMinutes = 60

func registerEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTool := mcp.NewTool(ToolCreateEvent, withCommonParams(
		mcp.WithDescription("Create a calendar event. Returns the created event ID and confirmation details. "+
			"start_time is ISO 8601, e.g. 2026-02-25T14:00:00+08:00; without an offset the account timezone is used."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start_time",
			mcp.Required(),
			mcp.Description("Start time (ISO 8601)"),
		),
		mcp.WithNumber("duration_minutes",
			mcp.Description("Duration in minutes (default: 60)"),
			mcp.DefaultNumber(defaultDurationMinutes),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
	)...)
	addTool(s, sc, createTool, instrumentation.OpInsertEvent, handleCreateEvent)

	updateTool := mcp.NewTool(ToolUpdateEvent, withCommonParams(
		mcp.WithDescription("Update an existing event. Only provided fields are changed. "+
			"A new start_time without duration_minutes keeps the event's duration."),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("ID of the event to update"),
		),
		mcp.WithString("title",
			mcp.Description("New event title"),
		),
		mcp.WithString("start_time",
			mcp.Description("New start time (ISO 8601)"),
		),
		mcp.WithNumber("duration_minutes",
			mcp.Description("New duration in minutes"),
		),
		mcp.WithString("description",
			mcp.Description("New event description"),
		),
		mcp.WithString("location",
			mcp.Description("New event location"),
		),
	)...)
	addTool(s, sc, updateTool, instrumentation.OpPatchEvent, handleUpdateEvent)
}

func handleCreateEvent(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult {
	title, ok := common.StringArg(req.args, "title")
	if !ok || title == "" {
		return invalidArgument("title", fmt.Errorf("title is required"))
	}
	startText, ok := common.StringArg(req.args, "start_time")
	if !ok || startText == "" {
		return invalidArgument("start_time", fmt.Errorf("start_time is required"))
	}
	duration, errResult := durationArg(req.args, defaultDurationMinutes)
	if errResult != nil {
		return errResult
	}

	client, err := sc.CalendarClientForAccount(req.account)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	start, tz, err := resolveTime(ctx, client, startText)
	if err != nil {
		return invalidArgument("start_time", err)
	}
	if start.Before(now()) {
		return mcp.NewToolResultError(fmt.Sprintf(msgEventInPast, startText))
	}

	in := calendar.EventInput{
		Summary:  title,
		Start:    start,
		End:      start.Add(duration),
		TimeZone: tz,
	}
	in.Description, _ = common.StringArg(req.args, "description")
	in.Location, _ = common.StringArg(req.args, "location")

	ev, err := client.CreateEvent(ctx, req.calendarID, in)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	sc.Logger().InfoContext(ctx, "created event",
		logging.Account(req.account),
		logging.Calendar(req.calendarID),
		logging.EventID(ev.ID))
	return mcp.NewToolResultText("Created event: " + formatEvent(*ev))
}

func handleUpdateEvent(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult {
	eventID, ok := common.StringArg(req.args, "event_id")
	if !ok || eventID == "" {
		return invalidArgument("event_id", fmt.Errorf("event_id is required"))
	}

	var duration *time.Duration
	if _, provided, _ := common.IntArg(req.args, "duration_minutes"); provided {
		d, errResult := durationArg(req.args, 0)
		if errResult != nil {
			return errResult
		}
		duration = &d
	}

	client, err := sc.CalendarClientForAccount(req.account)
	if err != nil {
		return errorResult(ctx, sc, req, eventID, err)
	}

	existing, err := client.GetEvent(ctx, req.calendarID, eventID)
	if err != nil {
		return errorResult(ctx, sc, req, eventID, err)
	}

	patch := calendar.NewEventPatch()
	if title, ok := common.StringArg(req.args, "title"); ok {
		patch.SetSummary(title)
	}
	if description, ok := common.StringArg(req.args, "description"); ok {
		patch.SetDescription(description)
	}
	if location, ok := common.StringArg(req.args, "location"); ok {
		patch.SetLocation(location)
	}

	if startText, ok := common.StringArg(req.args, "start_time"); ok && startText != "" {
		start, tz, err := resolveTime(ctx, client, startText)
		if err != nil {
			return invalidArgument("start_time", err)
		}
		patch.SetStart(start)
		patch.TimeZone = tz

		if duration != nil {
			patch.SetEnd(start.Add(*duration))
		} else if old, err := existing.Interval(start.Location()); err == nil {
			patch.SetEnd(start.Add(old.Duration()))
		}
	} else if duration != nil {
		if oldStart, err := isotime.Parse(existing.Start, time.UTC); err == nil {
			patch.SetEnd(oldStart.Add(*duration))
		}
	}

	if patch.IsEmpty() {
		return mcp.NewToolResultText("No changes provided. Event: " + formatEvent(*existing))
	}

	updated, err := client.PatchEvent(ctx, req.calendarID, eventID, patch)
	if err != nil {
		return errorResult(ctx, sc, req, eventID, err)
	}

	sc.Logger().InfoContext(ctx, "updated event",
		logging.Account(req.account),
		logging.Calendar(req.calendarID),
		logging.EventID(eventID),
		"fields", patch.Fields())
	return mcp.NewToolResultText("Updated event: " + formatEvent(*updated))
}

// resolveTime parses text. Naive input is placed in the account timezone,
// whose name is returned for the event's timeZone field.
func resolveTime(ctx context.Context, client *calendar.Client, text string) (time.Time, string, error) {
	if !isotime.IsNaive(text) {
		t, err := isotime.Parse(text, nil)
		return t, "", err
	}
	loc := client.AccountTimezone(ctx)
	t, err := isotime.Parse(text, loc)
	return t, loc.String(), err
}

func durationArg(args map[string]any, def int) (time.Duration, *mcp.CallToolResult) {
	d, err := common.MinutesArgOr(args, "duration_minutes", def)
	if err != nil {
		return 0, invalidArgument("duration_minutes", err)
	}
	if d <= 0 {
		return 0, invalidArgument("duration_minutes", fmt.Errorf("must be positive, got %d", int64(d/time.Minute)))
	}
	return d, nil
}
