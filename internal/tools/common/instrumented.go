package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/server"
)

// InstrumentedToolHandler wraps handler with a tool span, invocation
// metrics and an audit record. operation names the calendar operation the
// tool performs; readOnly marks tools that never write.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("get_free_slots", instrumentation.OpFreeBusy, true, sc, handler))
func InstrumentedToolHandler(toolName, operation string, readOnly bool, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account, err := GetAccountFromArgs(args)
		if err != nil {
			account = ""
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrAccount, account),
			attribute.String(instrumentation.SpanAttrOperation, operation),
		)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithAccount(account).
			WithOperation(operation, readOnly).
			WithArguments(args)

		result, err := handler(ctx, request)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			resultErr := errors.New(ResultText(result))
			invocation.CompleteWithError(resultErr)
			instrumentation.SetSpanError(span, resultErr)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, time.Since(start))
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// ResultText returns the concatenated text content of result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var text string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
