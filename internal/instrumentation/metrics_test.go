package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordCalendarCall(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCalendarCall(ctx, OpFreeBusy, CalendarClassPrimary, "", 100*time.Millisecond)
	m.RecordCalendarCall(ctx, OpGetEvent, CalendarClassPrimary, "not_found", 50*time.Millisecond)
	m.RecordCalendarRetry(ctx, OpFreeBusy)

	got := collect(t, reader)

	calls, ok := got["calendar_api_calls_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, calls.DataPoints, 2)
	for _, dp := range calls.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key(attrOperation))
		status, _ := dp.Attributes.Value(attribute.Key(attrStatus))
		if op.AsString() == OpGetEvent {
			assert.Equal(t, StatusError, status.AsString())
			kind, ok := dp.Attributes.Value(attribute.Key(attrErrorKind))
			require.True(t, ok)
			assert.Equal(t, "not_found", kind.AsString())
		} else {
			assert.Equal(t, StatusSuccess, status.AsString())
			_, ok := dp.Attributes.Value(attribute.Key(attrErrorKind))
			assert.False(t, ok)
		}
	}

	retries, ok := got["calendar_api_retries_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, retries.DataPoints, 1)
	assert.Equal(t, int64(1), retries.DataPoints[0].Value)
}

func TestMetrics_RecordToolInvocation_AccountLabel(t *testing.T) {
	tests := []struct {
		name        string
		detailed    bool
		wantAccount bool
	}{
		{"default labels", false, false},
		{"detailed labels", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordToolInvocation(context.Background(), "get_free_slots", StatusSuccess, "work", time.Second)

			sum, ok := collect(t, reader)["mcp_tool_invocations_total"].Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			_, hasAccount := sum.DataPoints[0].Attributes.Value(attribute.Key(attrAccount))
			assert.Equal(t, tt.wantAccount, hasAccount)
		})
	}
}

func TestMetrics_RecordFreeSlotsAndHTTP(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordFreeSlots(ctx, 4)
	m.RecordFreeSlots(ctx, 0)
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 10*time.Millisecond)
	m.RecordTokenRefresh(ctx, RefreshResultSuccess)

	got := collect(t, reader)

	hist, ok := got["free_slots_returned"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, int64(4), hist.DataPoints[0].Sum)

	assert.Contains(t, got, "http_requests_total")
	assert.Contains(t, got, "oauth_token_refresh_total")
}

func TestMetrics_ZeroValueAndNil(t *testing.T) {
	ctx := context.Background()

	var zero Metrics
	zero.RecordCalendarCall(ctx, OpListEvents, CalendarClassPrimary, "", time.Second)
	zero.RecordToolInvocation(ctx, "x", StatusError, "", time.Second)

	var nilMetrics *Metrics
	nilMetrics.RecordFreeSlots(ctx, 1)
	nilMetrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
}
