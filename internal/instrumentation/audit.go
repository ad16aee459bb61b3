package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation is the audit record of one MCP tool call.
type ToolInvocation struct {
	// ID uniquely identifies the invocation across log streams.
	ID string

	Tool      string
	Account   string
	Operation string
	ReadOnly  bool

	// Arguments are only logged when the audit logger is configured to.
	Arguments map[string]any

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a tool invocation.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithAccount sets the account name.
func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

// WithOperation sets the calendar operation the tool performs and whether it
// only reads.
func (ti *ToolInvocation) WithOperation(operation string, readOnly bool) *ToolInvocation {
	ti.Operation = operation
	ti.ReadOnly = readOnly
	return ti
}

// WithArguments records the raw tool arguments.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	ti.Arguments = args
	return ti
}

// WithSpanContext copies the trace context from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete stops the clock and stores the outcome.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes of the record. Arguments are included
// only when withArguments is set.
func (ti *ToolInvocation) LogAttrs(withArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Account != "" {
		attrs = append(attrs, slog.String("account", ti.Account))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation), slog.Bool("read_only", ti.ReadOnly))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if withArguments && len(ti.Arguments) > 0 {
		keys := make([]string, 0, len(ti.Arguments))
		for k := range ti.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]any, 0, len(keys))
		for _, k := range keys {
			args = append(args, slog.Any(k, ti.Arguments[k]))
		}
		attrs = append(attrs, slog.Group("arguments", args...))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	enabled          bool
	includeArguments bool
}

// NewAuditLogger creates an enabled AuditLogger that omits arguments.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger.With(slog.String("component", "audit")),
		enabled:          config.Enabled,
		includeArguments: config.IncludeArguments,
	}
}

// LogToolInvocation logs ti at info level on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeArguments)
	if ti.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "tool_executed", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "tool_failed", attrs...)
	}
}
