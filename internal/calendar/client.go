package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calendar-assistant/internal/availability"
	"github.com/teemow/calendar-assistant/internal/google"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/isotime"
	"github.com/teemow/calendar-assistant/internal/logging"
)

// DefaultCalendarID is the alias for the account's own calendar.
const DefaultCalendarID = "primary"

// Defaults for the per-client request pacing and retry policy.
const (
	DefaultRateLimit  = rate.Limit(5)
	DefaultRateBurst  = 10
	DefaultMaxRetries = 3
)

// Client wraps the Google Calendar API for one account. Every call is
// rate limited, traced, and retried while it fails with a NetworkFailure.
type Client struct {
	api        API
	account    string
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	maxRetries uint64
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit sets the sustained request rate and burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithBackOff sets the retry schedule for network failures.
func WithBackOff(newBackOff func() backoff.BackOff, maxRetries uint64) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
		c.maxRetries = maxRetries
	}
}

// WithMetrics records Calendar API metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client over api.
func NewClient(api API, account string, opts ...Option) *Client {
	c := &Client{
		api:     api,
		account: account,
		limiter: rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		maxRetries: DefaultMaxRetries,
		logger:     logging.NewSlogAdapter(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientForAccountWithProvider creates a Client backed by the Google
// Calendar service, authenticating with tokens from tokenProvider. ctx
// must outlive the client since token refreshes run on it.
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider, opts ...Option) (*Client, error) {
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	if !tokenProvider.HasTokenForAccount(account) {
		return nil, &google.AuthError{Account: account, Err: google.ErrNoToken}
	}

	ts := oauth2.ReuseTokenSource(nil, google.TokenSource(ctx, tokenProvider, account))
	httpClient := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1
	if transport, ok := httpClient.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return NewClient(NewServiceAPI(svc), account, opts...), nil
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// do runs fn under the client's pacing, tracing and retry policy and
// classifies its error.
func (c *Client) do(ctx context.Context, op, calendarID string, fn func(ctx context.Context) error) error {
	class := instrumentation.CalendarClass(calendarID)
	ctx, span := instrumentation.StartCalendarSpan(ctx, op,
		attribute.String(instrumentation.SpanAttrCalendarID, class),
		attribute.String(instrumentation.SpanAttrAccount, c.account),
	)
	defer span.End()

	start := time.Now()
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := classify(op, c.account, fn(ctx))
		if err == nil || IsNetworkFailure(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		c.metrics.RecordCalendarRetry(ctx, op)
		instrumentation.AddSpanEvent(span, "retry", attribute.Int(instrumentation.SpanAttrAttempt, attempt))
		c.logger.Warn("retrying calendar call",
			logging.Operation(op),
			logging.Account(c.account),
			"backoff", next,
			logging.Err(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err := backoff.RetryNotify(operation, b, notify)

	kind := ""
	if err != nil {
		kind = "other"
		var pe *ProviderError
		if errors.As(err, &pe) {
			kind = pe.Kind.String()
			span.SetAttributes(attribute.String(instrumentation.SpanAttrErrorKind, kind))
		}
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("calendar call failed", logging.Operation(op), logging.Calendar(calendarID), logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordCalendarCall(ctx, op, class, kind, time.Since(start))
	return err
}

// CreateEvent inserts a timed event.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error) {
	var created *calendar.Event
	err := c.do(ctx, instrumentation.OpInsertEvent, calendarID, func(ctx context.Context) error {
		var err error
		created, err = c.api.InsertEvent(ctx, calendarID, in.toAPI())
		return err
	})
	if err != nil {
		return nil, err
	}
	ev := fromAPI(created)
	return &ev, nil
}

// GetEvent fetches one event.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	var got *calendar.Event
	err := c.do(ctx, instrumentation.OpGetEvent, calendarID, func(ctx context.Context) error {
		var err error
		got, err = c.api.GetEvent(ctx, calendarID, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	ev := fromAPI(got)
	return &ev, nil
}

// PatchEvent sends only the fields set in patch.
func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, patch *EventPatch) (*Event, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, fmt.Errorf("patch for event %s is empty", eventID)
	}

	var updated *calendar.Event
	err := c.do(ctx, instrumentation.OpPatchEvent, calendarID, func(ctx context.Context) error {
		var err error
		updated, err = c.api.PatchEvent(ctx, calendarID, eventID, patch.toAPI())
		return err
	})
	if err != nil {
		return nil, err
	}
	ev := fromAPI(updated)
	return &ev, nil
}

// EventsBetween lists every single (expanded) event overlapping
// [from, to], ordered by start.
func (c *Client) EventsBetween(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	return c.listEvents(ctx, calendarID, ListQuery{TimeMin: from, TimeMax: to})
}

// UpcomingEvents lists at most max events ending after from.
func (c *Client) UpcomingEvents(ctx context.Context, calendarID string, from time.Time, max int) ([]Event, error) {
	if max <= 0 {
		return nil, fmt.Errorf("max must be positive, got %d", max)
	}
	return c.listEvents(ctx, calendarID, ListQuery{TimeMin: from, MaxResults: int64(max)})
}

func (c *Client) listEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error) {
	var items []*calendar.Event
	err := c.do(ctx, instrumentation.OpListEvents, calendarID, func(ctx context.Context) error {
		var err error
		items, err = c.api.ListEvents(ctx, calendarID, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		events = append(events, fromAPI(item))
	}
	return events, nil
}

// BusyIntervals returns the busy periods the provider reports for
// calendarID in [start, end]. Intervals are returned as reported: possibly
// unsorted, overlapping, or extending past the range.
func (c *Client) BusyIntervals(ctx context.Context, calendarID string, start, end time.Time) ([]availability.Interval, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	var resp *calendar.FreeBusyResponse
	err := c.do(ctx, instrumentation.OpFreeBusy, calendarID, func(ctx context.Context) error {
		var err error
		resp, err = c.api.QueryFreeBusy(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		kind := KindOther
		if cal.Errors[0].Reason == "notFound" {
			kind = KindNotFound
		}
		return nil, &ProviderError{
			Kind: kind,
			Op:   instrumentation.OpFreeBusy,
			Err:  fmt.Errorf("calendar %s: %s", calendarID, cal.Errors[0].Reason),
		}
	}

	busy := make([]availability.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		bs, err := isotime.Parse(period.Start, start.Location())
		if err != nil {
			return nil, &ProviderError{Kind: KindOther, Op: instrumentation.OpFreeBusy, Err: err}
		}
		be, err := isotime.Parse(period.End, start.Location())
		if err != nil {
			return nil, &ProviderError{Kind: KindOther, Op: instrumentation.OpFreeBusy, Err: err}
		}
		busy = append(busy, availability.Interval{Start: bs, End: be})
	}
	return busy, nil
}

// AccountTimezone returns the account's configured timezone. Any failure,
// including an unknown zone name, yields UTC.
func (c *Client) AccountTimezone(ctx context.Context) *time.Location {
	var name string
	err := c.do(ctx, instrumentation.OpGetSetting, DefaultCalendarID, func(ctx context.Context) error {
		var err error
		name, err = c.api.GetSetting(ctx, "timezone")
		return err
	})
	if err != nil {
		c.logger.Warn("falling back to UTC for account timezone", logging.Account(c.account), logging.Err(err))
		return time.UTC
	}
	return isotime.LoadLocation(name)
}
