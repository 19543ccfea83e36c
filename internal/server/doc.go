// Package server provides the MCP server context, health endpoints, and the
// dedicated metrics server for the instagram-dms-mcp application.
//
// # Key Components
//
// ServerContext owns the shared dependencies handed to every tool handler:
// the gateway client, the supervisor managing the gateway subprocess, and the
// metrics/audit plumbing. It also tracks shutdown so in-flight handlers can
// refuse work once the process is going down.
//
// HealthChecker serves Kubernetes-style probes:
//   - /healthz: liveness, always OK while the process runs
//   - /readyz: readiness, reflects whether the gateway can take traffic
//   - /healthz/detailed: uptime and overall status
//
// MetricsServer exposes Prometheus metrics on a dedicated port, isolated from
// the main MCP traffic.
package server
