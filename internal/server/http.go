package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-assistant/internal/instrumentation"
)

// MCPEndpoint is the path of the streamable HTTP transport.
const MCPEndpoint = "/mcp"

// HTTPServer exposes an MCP server over the streamable HTTP transport next
// to the health endpoints.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
}

// NewHTTPServer mounts mcpSrv at MCPEndpoint. Every request is counted in
// metrics, which may be nil.
func NewHTTPServer(addr string, mcpSrv *mcpserver.MCPServer, health *HealthChecker, metrics *instrumentation.Metrics) *HTTPServer {
	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithEndpointPath(MCPEndpoint)))
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		health: health,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           InstrumentHTTP(metrics, mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	slog.Info("starting streamable HTTP server", "addr", s.httpServer.Addr, "endpoint", MCPEndpoint)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown marks the server not ready and drains open connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	return s.httpServer.Shutdown(ctx)
}

// InstrumentHTTP records method, path, status and latency of every request.
func InstrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
