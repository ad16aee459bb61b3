package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrErrorKind = "error_kind"
	attrCalendar  = "calendar_class"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
)

// Metrics records calendar-assistant metrics. The zero value is a valid
// recorder that drops everything.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	calendarCallsTotal   metric.Int64Counter
	calendarCallDuration metric.Float64Histogram
	calendarRetriesTotal metric.Int64Counter

	tokenRefreshTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	freeSlotsReturned metric.Int64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.calendarCallsTotal, err = meter.Int64Counter(
		"calendar_api_calls_total",
		metric.WithDescription("Total number of Google Calendar API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_calls_total counter: %w", err)
	}

	m.calendarCallDuration, err = meter.Float64Histogram(
		"calendar_api_call_duration_seconds",
		metric.WithDescription("Google Calendar API call duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_call_duration_seconds histogram: %w", err)
	}

	m.calendarRetriesTotal, err = meter.Int64Counter(
		"calendar_api_retries_total",
		metric.WithDescription("Total number of retried Google Calendar API attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_retries_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token lookups that required a refresh"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.freeSlotsReturned, err = meter.Int64Histogram(
		"free_slots_returned",
		metric.WithDescription("Number of free slots returned per get_free_slots call"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create free_slots_returned histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request served by the streamable HTTP transport.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarCall records one logical Calendar API call. calendarClass is
// a CalendarClass value; errorKind is empty on success.
func (m *Metrics) RecordCalendarCall(ctx context.Context, operation, calendarClass, errorKind string, duration time.Duration) {
	if m == nil || m.calendarCallsTotal == nil {
		return
	}

	status := StatusSuccess
	if errorKind != "" {
		status = StatusError
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrCalendar, calendarClass),
		attribute.String(attrStatus, status),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String(attrErrorKind, errorKind))
	}

	m.calendarCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.calendarCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCalendarRetry records a retried Calendar API attempt.
func (m *Metrics) RecordCalendarRetry(ctx context.Context, operation string) {
	if m == nil || m.calendarRetriesTotal == nil {
		return
	}
	m.calendarRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordTokenRefresh records a token refresh with result RefreshResultSuccess
// or RefreshResultFailure.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation. The account label is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFreeSlots records how many slots a free-slot query produced.
func (m *Metrics) RecordFreeSlots(ctx context.Context, count int) {
	if m == nil || m.freeSlotsReturned == nil {
		return
	}
	m.freeSlotsReturned.Record(ctx, int64(count))
}
