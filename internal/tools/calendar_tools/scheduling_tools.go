package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-assistant/internal/availability"
	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/isotime"
	"github.com/teemow/calendar-assistant/internal/logging"
	"github.com/teemow/calendar-assistant/internal/server"
	"github.com/teemow/calendar-assistant/internal/tools/common"
)

const (
	defaultMaxResults = 10
	// maxMaxResults is the largest page the Calendar API returns.
	maxMaxResults = 2500

	eventsAtTimeWindow = 24 * time.Hour
)

func registerSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	freeSlotsTool := mcp.NewTool(ToolGetFreeSlots, withCommonParams(
		mcp.WithDescription("Return available time slots within the date range, filtered by working hours and minimum duration. "+
			"start_date and end_date are ISO 8601 dates or datetimes."),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("Range start (ISO 8601); without an offset the account timezone is used"),
		),
		mcp.WithString("end_date",
			mcp.Required(),
			mcp.Description("Range end (ISO 8601); without an offset the start's timezone is used"),
		),
		mcp.WithNumber("min_duration_minutes",
			mcp.Description("Minimum slot length in minutes (default: 30)"),
			mcp.DefaultNumber(30),
		),
		mcp.WithNumber("working_hours_start",
			mcp.Description("First working hour of the day, 0-23 (default: 9)"),
			mcp.DefaultNumber(9),
		),
		mcp.WithNumber("working_hours_end",
			mcp.Description("Hour the working day ends, 0-23 (default: 18)"),
			mcp.DefaultNumber(18),
		),
	)...)
	addTool(s, sc, freeSlotsTool, instrumentation.OpFreeBusy, handleGetFreeSlots)

	atTimeTool := mcp.NewTool(ToolEventsAtTime, withCommonParams(
		mcp.WithDescription("Return events occurring at the given datetime. Each event includes its ID for use in update. "+
			"Use this to answer 'what should I do at 2pm?'"),
		mcp.WithString("datetime_str",
			mcp.Required(),
			mcp.Description("Instant to look up (ISO 8601)"),
		),
	)...)
	addTool(s, sc, atTimeTool, instrumentation.OpListEvents, handleGetEventsAtTime)

	upcomingTool := mcp.NewTool(ToolUpcomingEvents, withCommonParams(
		mcp.WithDescription("List the next N upcoming events. Each event includes its ID for use in update."),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of events (default: 10)"),
			mcp.DefaultNumber(defaultMaxResults),
		),
	)...)
	addTool(s, sc, upcomingTool, instrumentation.OpListEvents, handleListUpcomingEvents)
}

func handleGetFreeSlots(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult {
	startText, ok := common.StringArg(req.args, "start_date")
	if !ok || startText == "" {
		return invalidArgument("start_date", fmt.Errorf("start_date is required"))
	}
	endText, ok := common.StringArg(req.args, "end_date")
	if !ok || endText == "" {
		return invalidArgument("end_date", fmt.Errorf("end_date is required"))
	}

	var q availability.Query
	var err error
	q.MinDuration, err = common.MinutesArgOr(req.args, "min_duration_minutes", int(availability.DefaultMinDuration/time.Minute))
	if err != nil {
		return invalidArgument("min_duration_minutes", err)
	}
	q.Hours.Start, err = common.IntArgOr(req.args, "working_hours_start", availability.DefaultWorkingHours.Start)
	if err != nil {
		return invalidArgument("working_hours_start", err)
	}
	q.Hours.End, err = common.IntArgOr(req.args, "working_hours_end", availability.DefaultWorkingHours.End)
	if err != nil {
		return invalidArgument("working_hours_end", err)
	}

	client, err := sc.CalendarClientForAccount(req.account)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	q.RangeStart, _, err = resolveTime(ctx, client, startText)
	if err != nil {
		return invalidArgument("start_date", err)
	}
	q.RangeEnd, err = isotime.Parse(endText, q.RangeStart.Location())
	if err != nil {
		return invalidArgument("end_date", err)
	}
	if err := q.Validate(); err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	busy, err := client.BusyIntervals(ctx, req.calendarID, q.RangeStart, q.RangeEnd)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	slots, err := availability.FreeSlots(q, busy)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}
	sc.Metrics().RecordFreeSlots(ctx, len(slots))

	sc.Logger().DebugContext(ctx, "computed free slots",
		logging.Account(req.account),
		logging.Calendar(req.calendarID),
		"busy", len(availability.Merge(busy)),
		"slots", len(slots))
	return mcp.NewToolResultText(formatSlots(q, slots))
}

func handleGetEventsAtTime(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult {
	text, ok := common.StringArg(req.args, "datetime_str")
	if !ok || text == "" {
		return invalidArgument("datetime_str", fmt.Errorf("datetime_str is required"))
	}

	client, err := sc.CalendarClientForAccount(req.account)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	at, _, err := resolveTime(ctx, client, text)
	if err != nil {
		return invalidArgument("datetime_str", err)
	}

	events, err := client.EventsBetween(ctx, req.calendarID, at.Add(-eventsAtTimeWindow), at.Add(eventsAtTimeWindow))
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	var matching []calendar.Event
	for _, ev := range events {
		iv, err := ev.Interval(at.Location())
		if err != nil {
			sc.Logger().DebugContext(ctx, "skipping event with unreadable bounds", logging.EventID(ev.ID), logging.Err(err))
			continue
		}
		if iv.Contains(at) {
			matching = append(matching, ev)
		}
	}

	if len(matching) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No events at %s.", text))
	}
	return mcp.NewToolResultText(formatEventList(fmt.Sprintf("Events at %s:", text), matching))
}

func handleListUpcomingEvents(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult {
	maxResults, err := common.IntArgOr(req.args, "max_results", defaultMaxResults)
	if err != nil {
		return invalidArgument("max_results", err)
	}
	if maxResults < 1 || maxResults > maxMaxResults {
		return invalidArgument("max_results", fmt.Errorf("must be between 1 and %d, got %d", maxMaxResults, maxResults))
	}

	client, err := sc.CalendarClientForAccount(req.account)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	events, err := client.UpcomingEvents(ctx, req.calendarID, now(), maxResults)
	if err != nil {
		return errorResult(ctx, sc, req, "", err)
	}

	if len(events) == 0 {
		return mcp.NewToolResultText("No upcoming events.")
	}
	return mcp.NewToolResultText(formatEventList(fmt.Sprintf("Next %d upcoming events:", maxResults), events))
}
