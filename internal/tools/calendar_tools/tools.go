package calendar_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/server"
	"github.com/teemow/calendar-assistant/internal/tools/common"
)

// Tool names.
const (
	ToolCreateEvent    = "create_calendar_event"
	ToolUpdateEvent    = "update_calendar_event"
	ToolGetFreeSlots   = "get_free_slots"
	ToolEventsAtTime   = "get_events_at_time"
	ToolUpcomingEvents = "list_upcoming_events"
)

// now is replaced in tests.
var now = time.Now

// RegisterCalendarTools registers the calendar tools with the MCP server.
// The write tools are skipped when the server context is read-only.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerSchedulingTools(s, sc)
	if !sc.ReadOnly() {
		registerEventTools(s, sc)
	}
	return nil
}

// request bundles the arguments every tool accepts.
type request struct {
	args       map[string]any
	account    string
	calendarID string
}

func parseRequest(req mcp.CallToolRequest) (request, *mcp.CallToolResult) {
	args := req.GetArguments()
	account, err := common.GetAccountFromArgs(args)
	if err != nil {
		return request{}, invalidArgument("account", err)
	}
	return request{
		args:       args,
		account:    account,
		calendarID: common.StringArgOr(args, "calendar_id", calendar.DefaultCalendarID),
	}, nil
}

func withCommonParams(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
	)
}

func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, operation string, handler func(ctx context.Context, sc *server.ServerContext, req request) *mcp.CallToolResult) {
	readOnly := operation != instrumentation.OpInsertEvent && operation != instrumentation.OpPatchEvent
	s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, operation, readOnly, sc,
		func(ctx context.Context, callReq mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			req, errResult := parseRequest(callReq)
			if errResult != nil {
				return errResult, nil
			}
			return handler(ctx, sc, req), nil
		}))
}
