package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/igdms/instagram-dms-mcp/internal/gateway"
	"github.com/igdms/instagram-dms-mcp/internal/instrumentation"
	"github.com/igdms/instagram-dms-mcp/internal/logging"
	"github.com/igdms/instagram-dms-mcp/internal/resources"
	"github.com/igdms/instagram-dms-mcp/internal/server"
	"github.com/igdms/instagram-dms-mcp/internal/supervisor"
	"github.com/igdms/instagram-dms-mcp/internal/tools/dm_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeConfig holds the resolved serve command configuration
type ServeConfig struct {
	Transport string
	HTTPAddr  string
	Debug     bool

	// Yolo enables write operations. Default is read-only mode.
	Yolo bool

	// ExternalGateway skips launching the gateway subprocess and assumes a
	// gateway is already running on GatewayAddr.
	ExternalGateway bool

	// GatewayAddr overrides the gateway address. Empty selects the
	// IG_GATEWAY_ADDR environment variable or the default loopback address.
	GatewayAddr string

	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var cfg ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Instagram DM
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (sending messages,
  reactions, marking threads as read).

Gateway:
  The server launches the ig-gateway subprocess and supervises it for the
  process lifetime. Credentials are read from the environment:

    IG_SESSIONID, IG_DS_USER_ID, IG_CSRFTOKEN  (individual cookies)
    IG_COOKIES                                 (base64-encoded or raw JSON bundle)

  With --external-gateway, no subprocess is launched and the server talks
  to a gateway already running on --gateway-addr (or IG_GATEWAY_ADDR).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load metrics config from environment if not set via flags
			if !cmd.Flags().Changed("metrics-enabled") {
				if os.Getenv("METRICS_ENABLED") == "false" {
					cfg.Metrics.Enabled = false
				}
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					cfg.Metrics.Addr = addr
				}
			}

			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.Transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&cfg.Yolo, "yolo", false, "Enable write operations (sending messages, reactions, mark as read). Default is read-only mode.")
	cmd.Flags().BoolVar(&cfg.ExternalGateway, "external-gateway", false, "Do not launch the gateway subprocess; connect to an already-running gateway")
	cmd.Flags().StringVar(&cfg.GatewayAddr, "gateway-addr", "", "Gateway address. Can also use IG_GATEWAY_ADDR env var. Default: "+gateway.DefaultAddr)

	// Metrics server flags
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// On stdio, stdout belongs to the MCP protocol; all logging goes to
	// stderr.
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", slog.Any("error", err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.Transport != "stdio" && cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}
	defer func() {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}
	}()

	// Start or adopt the gateway
	var (
		sup    *supervisor.Supervisor
		client *gateway.Client
	)
	if cfg.ExternalGateway {
		client = gateway.NewClient(cfg.GatewayAddr)
		logger.Info("using external gateway", slog.String("addr", client.Addr()))
	} else {
		supCfg := supervisor.Config{
			Addr:   cfg.GatewayAddr,
			Logger: logger,
		}
		if provider.Enabled() {
			supCfg.Recorder = provider.Metrics()
		}
		sup = supervisor.New(supCfg)

		status, err := sup.Start(shutdownCtx)
		if err != nil {
			return fmt.Errorf("gateway startup failed: %w", err)
		}
		client = sup.Client()
		logger.Info("gateway ready",
			slog.String("addr", client.Addr()),
			slog.String("username", status.Username))
	}
	if cfg.Debug {
		client.SetLogger(logging.NewSlogAdapter(logger))
	}

	// Create server context. Shutdown stops the supervisor and removes the
	// credential file.
	serverContext := server.NewServerContext(shutdownCtx, client, sup)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", slog.Any("error", err))
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("instagram-dms-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// readOnly is the inverse of yolo
	readOnly := !cfg.Yolo
	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled (--yolo flag is set)")
	}

	if err := dm_tools.RegisterDMTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register DM tools: %w", err)
	}
	if err := resources.RegisterUserResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register user resources: %w", err)
	}

	switch cfg.Transport {
	case "stdio":
		return runStdioServer(shutdownCtx, mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, provider)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Shutdown signal; defers in runServe stop the gateway.
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, cfg ServeConfig, provider *instrumentation.Provider) error {
	httpServer := server.NewHTTPServer(mcpSrv)

	// Set up health checker for health check endpoints
	healthChecker := server.NewHealthChecker(serverContext)
	httpServer.SetHealthChecker(healthChecker)

	// Set up HTTP instrumentation for metrics
	if provider != nil && provider.Enabled() {
		httpServer.SetMetrics(provider.Metrics())
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", cfg.HTTPAddr)
	fmt.Printf("  HTTP endpoint: /mcp\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", cfg.Metrics.Addr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
