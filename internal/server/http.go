package server

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/igdms/instagram-dms-mcp/internal/instrumentation"
)

// HTTPServer serves the MCP streamable HTTP transport together with the
// health check endpoints on a single listener.
type HTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	httpServer    *http.Server
	healthChecker *HealthChecker
	metrics       *instrumentation.Metrics
}

// NewHTTPServer creates an HTTP server for the given MCP server.
func NewHTTPServer(mcpServer *mcpserver.MCPServer) *HTTPServer {
	return &HTTPServer{
		mcpServer: mcpServer,
	}
}

// SetHealthChecker enables the /healthz and /readyz endpoints.
func (s *HTTPServer) SetHealthChecker(hc *HealthChecker) {
	s.healthChecker = hc
}

// SetMetrics enables HTTP request metrics for the MCP endpoint.
func (s *HTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// Start starts the HTTP server on addr. It blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath("/mcp"),
	)

	mcpHandler := http.Handler(streamable)
	if s.metrics != nil {
		mcpHandler = s.instrumentHandler("/mcp", mcpHandler)
	}
	mux.Handle("/mcp", mcpHandler)

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrumentHandler wraps a handler with HTTP request metrics.
func (s *HTTPServer) instrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// Addr returns the configured listen address, or the empty string before
// Start is called.
func (s *HTTPServer) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}
