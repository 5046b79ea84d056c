package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ganot/forge-registry/internal/app"
	"github.com/ganot/forge-registry/internal/observability"
	"github.com/ganot/forge-registry/internal/scan"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools and run periodic scans",
	Long: `Serve the interactive MCP tools over HTTP (/mcp) or stdio, plus /health
and /metrics in HTTP mode, while a background loop runs a scan every
scan.interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noScan, _ := cmd.Flags().GetBool("no-scan")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTel, version)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracing shutdown", "error", err)
			}
		}()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if !noScan {
			go scanLoop(ctx, a)
		}

		server := a.MCPServer(version)
		if cfg.Transport.Mode == "stdio" {
			logger.Info("starting stdio transport", "auth", "disabled")
			return server.Run(ctx, &sdkmcp.StdioTransport{})
		}
		return serveHTTP(ctx, server, a.Metrics)
	},
}

func init() {
	serveCmd.Flags().Bool("no-scan", false, "Do not run the periodic scan loop")
	rootCmd.AddCommand(serveCmd)
}

func serveHTTP(ctx context.Context, server *sdkmcp.Server, metrics *prometheus.Registry) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	router := http.NewServeMux()
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/", mcpHandler)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Metrics.Enabled {
		router.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{Registry: metrics}))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(sctx)
}

// scanLoop runs one scan per interval. Scans never overlap because each
// runs to completion on this goroutine.
func scanLoop(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(cfg.Scan.Interval)
	defer ticker.Stop()

	for {
		runScan(ctx, a.Scanner)
		a.PurgeCache(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runScan(ctx context.Context, scanner *scan.Orchestrator) scan.Report {
	sctx, cancel := context.WithTimeout(ctx, cfg.Scan.Budget)
	defer cancel()
	return scanner.Run(sctx, scan.RunOptions{Budget: cfg.Scan.Budget})
}
