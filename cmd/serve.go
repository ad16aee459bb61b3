package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/google"
	"github.com/teemow/calendar-assistant/internal/instrumentation"
	"github.com/teemow/calendar-assistant/internal/logging"
	"github.com/teemow/calendar-assistant/internal/server"
	"github.com/teemow/calendar-assistant/internal/tools/calendar_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	metricsStartupTimeout = 5 * time.Second
)

// serveConfig holds everything the serve command reads from flags and the
// environment.
type serveConfig struct {
	Transport string
	HTTPAddr  string
	Debug     bool
	LogFormat string
	ReadOnly  bool

	GoogleClientID     string
	GoogleClientSecret string

	// Accounts are checked for a stored token at startup.
	Accounts string

	MetricsEnabled bool
	MetricsAddr    string

	CalendarRateLimit float64
	CalendarRateBurst int
}

func newServeCmd() *cobra.Command {
	cfg := serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose Google Calendar scheduling tools.

Transports:
  stdio            Standard input/output (default, for local MCP clients)
  streamable-http  HTTP at /mcp with /healthz and /readyz probes

Each tool takes an optional "account" argument naming the Google account whose
token was stored by "calendar-assistant auth". Write tools are not registered
when --read-only is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadServeEnv(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", logging.FormatText, "Log format: text or json. Logs always go to stderr.")
	cmd.Flags().BoolVar(&cfg.ReadOnly, "read-only", false, "Only register tools that do not modify calendars")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID used to refresh tokens. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret used to refresh tokens. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.Accounts, "accounts", "", "Comma-separated accounts to check for stored tokens at startup")
	cmd.Flags().BoolVar(&cfg.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transport only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().Float64Var(&cfg.CalendarRateLimit, "calendar-rate-limit", float64(calendar.DefaultRateLimit), "Calendar API requests per second per account. Can also use CALENDAR_RATE_LIMIT env var.")
	cmd.Flags().IntVar(&cfg.CalendarRateBurst, "calendar-rate-burst", calendar.DefaultRateBurst, "Calendar API burst size per account")

	return cmd
}

// loadServeEnv fills fields from environment variables. Environment values
// only apply when the matching flag was not set explicitly.
func loadServeEnv(cmd *cobra.Command, cfg *serveConfig) error {
	flags := cmd.Flags()

	if !flags.Changed("google-client-id") {
		if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
			cfg.GoogleClientID = v
		}
	}
	if !flags.Changed("google-client-secret") {
		if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
			cfg.GoogleClientSecret = v
		}
	}
	if !flags.Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			enabled, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
			}
			cfg.MetricsEnabled = enabled
		}
	}
	if !flags.Changed("metrics-addr") {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			cfg.MetricsAddr = v
		}
	}
	if !flags.Changed("calendar-rate-limit") {
		if v := os.Getenv("CALENDAR_RATE_LIMIT"); v != "" {
			limit, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid CALENDAR_RATE_LIMIT %q: %w", v, err)
			}
			cfg.CalendarRateLimit = limit
		}
	}
	return nil
}

// Validate rejects unknown transports and non-positive rate limits.
func (c serveConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", c.Transport, transportStdio, transportStreamableHTTP)
	}
	if c.CalendarRateLimit <= 0 {
		return fmt.Errorf("calendar rate limit must be positive, got %v", c.CalendarRateLimit)
	}
	if c.CalendarRateBurst < 1 {
		return fmt.Errorf("calendar rate burst must be at least 1, got %d", c.CalendarRateBurst)
	}
	for _, account := range parseCommaSeparatedList(c.Accounts) {
		if err := google.ValidateAccountName(account); err != nil {
			return err
		}
	}
	return nil
}

func runServe(parent context.Context, cfg serveConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler, err := logging.NewHandler(os.Stderr, cfg.LogFormat, cfg.Debug)
	if err != nil {
		return err
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		logger.Warn("Google OAuth client credentials not set; expired tokens cannot be refreshed")
	}
	oauthConfig := google.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, "", nil)
	tokenProvider := google.NewFileTokenProvider(oauthConfig)

	for _, account := range parseCommaSeparatedList(cfg.Accounts) {
		if !tokenProvider.HasTokenForAccount(account) {
			logger.Warn("no stored token for account", logging.Account(account),
				"hint", fmt.Sprintf("run `%s auth --account %s`", google.AppName, account))
		}
	}

	serverContext := server.NewServerContext(ctx,
		server.WithTokenProvider(tokenProvider),
		server.WithMetrics(provider.Metrics()),
		server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		server.WithLogger(logger),
		server.WithReadOnly(cfg.ReadOnly),
		server.WithCalendarOptions(calendar.WithRateLimit(rate.Limit(cfg.CalendarRateLimit), cfg.CalendarRateBurst)),
	)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer(google.AppName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	logger.Info("starting calendar-assistant",
		"version", version,
		"transport", cfg.Transport,
		"read_only", cfg.ReadOnly)

	switch cfg.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(ctx, mcpSrv, serverContext, provider, cfg)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, cfg serveConfig) error {
	logger := sc.Logger()

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.UsesPrometheus() {
		var err error
		metricsServer, err = startMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, mcpSrv, server.NewHealthChecker(sc), provider.Metrics())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}
	if len(errs) == 0 {
		logger.Info("HTTP server gracefully stopped")
	}
	return errors.Join(errs...)
}

// startMetricsServer returns once the metrics listener is bound.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-ready:
		return metricsServer, nil
	case err := <-metricsErr:
		if err == nil {
			err = errors.New("metrics server exited before becoming ready")
		}
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
