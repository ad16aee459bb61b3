package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestToolInvocation_Lifecycle(t *testing.T) {
	ti := NewToolInvocation("create_calendar_event").
		WithAccount("work").
		WithOperation(OpInsertEvent, false).
		WithSpanContext(context.Background())

	_, err := uuid.Parse(ti.ID)
	assert.NoError(t, err, "invocation IDs are UUIDs")
	assert.Empty(t, ti.TraceID)

	ti.CompleteWithError(errors.New("quota"))
	assert.False(t, ti.Success)
	assert.Equal(t, "quota", ti.Error)
	assert.Equal(t, StatusError, ti.Status())

	ti2 := NewToolInvocation("x").CompleteSuccess()
	assert.True(t, ti2.Success)
	assert.Equal(t, StatusSuccess, ti2.Status())
	assert.NotEqual(t, ti.ID, ti2.ID)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ti := NewToolInvocation("get_free_slots").
		WithAccount("work").
		WithOperation(OpFreeBusy, true).
		WithArguments(map[string]any{"start_date": "2024-01-15"}).
		CompleteSuccess()
	al.LogToolInvocation(ti)

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "tool_executed", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "audit", rec["component"])
	assert.Equal(t, ti.ID, rec["invocation_id"])
	assert.Equal(t, "work", rec["account"])
	assert.Equal(t, true, rec["read_only"])
	assert.NotContains(t, rec, "arguments")
}

func TestAuditLogger_FailureAndArguments(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{
		Enabled:          true,
		IncludeArguments: true,
	})

	al.LogToolInvocation(NewToolInvocation("create_calendar_event").
		WithArguments(map[string]any{"title": "Standup", "duration_minutes": 15.0}).
		CompleteWithError(errors.New("in the past")))

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "tool_failed", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "in the past", rec["error"])
	args, ok := rec["arguments"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Standup", args["title"])
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation("x").CompleteSuccess())
	assert.Zero(t, buf.Len())

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation("x").CompleteSuccess())
}
