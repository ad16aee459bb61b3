package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/google"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/logging"
)

// ServerContext holds the state shared by all MCP tool handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	tokenProvider   google.TokenProvider
	calendarClients map[string]*calendar.Client
	clientOptions   []calendar.Option

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	readOnly    bool

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithTokenProvider sets the source of OAuth tokens for calendar clients.
func WithTokenProvider(p google.TokenProvider) Option {
	return func(sc *ServerContext) {
		sc.tokenProvider = p
	}
}

// WithMetrics sets the metrics recorder shared by tools and clients.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger sets the audit logger for tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) {
		sc.logger = l
	}
}

// WithReadOnly restricts the server to the read-only tools.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) {
		sc.readOnly = readOnly
	}
}

// WithCalendarOptions appends options applied to every calendar client the
// context creates.
func WithCalendarOptions(opts ...calendar.Option) Option {
	return func(sc *ServerContext) {
		sc.clientOptions = append(sc.clientOptions, opts...)
	}
}

// NewServerContext creates a new server context. Calendar clients are
// created lazily on first use of an account.
func NewServerContext(ctx context.Context, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		calendarClients: make(map[string]*calendar.Client),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}

	if fp, ok := sc.tokenProvider.(*google.FileTokenProvider); ok {
		fp.OnRefresh(func(ctx context.Context, account string, err error) {
			result := instrumentation.RefreshResultSuccess
			if err != nil {
				result = instrumentation.RefreshResultFailure
				sc.logger.Warn("token refresh failed", logging.Account(account), logging.Err(err))
			}
			sc.metrics.RecordTokenRefresh(ctx, result)
		})
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// CalendarClientForAccount returns the calendar client for account,
// creating and caching it on first use. A missing token yields a
// *google.AuthError.
func (sc *ServerContext) CalendarClientForAccount(account string) (*calendar.Client, error) {
	sc.mu.RLock()
	client, ok := sc.calendarClients[account]
	sc.mu.RUnlock()
	if ok {
		return client, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.calendarClients[account]; ok {
		return client, nil
	}
	if sc.tokenProvider == nil {
		return nil, &google.AuthError{Account: account, Err: google.ErrNoToken}
	}

	opts := append([]calendar.Option{
		calendar.WithMetrics(sc.metrics),
		calendar.WithLogger(logging.NewSlogAdapter(logging.WithAccount(sc.logger, account))),
	}, sc.clientOptions...)

	client, err := calendar.NewClientForAccountWithProvider(sc.ctx, account, sc.tokenProvider, opts...)
	if err != nil {
		return nil, err
	}

	sc.calendarClients[account] = client
	return client, nil
}

// SetCalendarClientForAccount installs client for account.
func (sc *ServerContext) SetCalendarClientForAccount(account string, client *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendarClients[account] = client
}

// Metrics returns the metrics recorder, possibly nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, possibly nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ReadOnly reports whether only read tools are exposed.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

func (sc *ServerContext) cachedAccounts() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.calendarClients)
}
