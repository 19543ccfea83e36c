package server

import (
	"context"
	"sync"

	"github.com/igdms/instagram-dms-mcp/internal/gateway"
	"github.com/igdms/instagram-dms-mcp/internal/instrumentation"
	"github.com/igdms/instagram-dms-mcp/internal/supervisor"
)

// ServerContext holds the shared dependencies for the MCP server: the gateway
// client, the supervisor owning the gateway subprocess, and the observability
// plumbing handed to every tool handler.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	client     *gateway.Client
	supervisor *supervisor.Supervisor
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	mu         sync.RWMutex
	shutdown   bool
}

// NewServerContext creates a new server context around the given gateway
// client. The supervisor may be nil when an externally managed gateway is
// used.
func NewServerContext(ctx context.Context, client *gateway.Client, sup *supervisor.Supervisor) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		client:     client,
		supervisor: sup,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GatewayClient returns the client bound to the supervised gateway address.
func (sc *ServerContext) GatewayClient() *gateway.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client
}

// Supervisor returns the gateway supervisor, or nil when the gateway is
// externally managed.
func (sc *ServerContext) Supervisor() *supervisor.Supervisor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.supervisor
}

// GatewayReady reports whether the gateway is in a state where tool calls can
// be forwarded. An externally managed gateway is assumed ready.
func (sc *ServerContext) GatewayReady() bool {
	sup := sc.Supervisor()
	if sup == nil {
		return true
	}
	return sup.State() == supervisor.StateReady
}

// SetMetrics attaches a metrics recorder. Safe to leave unset; tool handlers
// treat a nil recorder as a no-op.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the attached metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger attaches an audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = al
}

// AuditLogger returns the attached audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context and stops the supervised gateway.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sup := sc.supervisor
	sc.cancel()
	sc.mu.Unlock()

	if sup != nil {
		sup.Stop()
	}
	return nil
}
