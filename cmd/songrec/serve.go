package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/songrec/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Serve the HTTP API:

  POST /recommend   recommend songs for a JSON song description
  GET  /catalog     describe the loaded catalog
  GET  /healthz     liveness
  GET  /readyz      readiness (catalog loaded)
  GET  /metrics     Prometheus metrics

The catalog is loaded by the first recommendation unless server.preload is set.
With store.reload_interval the current manifest is polled and a new catalog
version replaces the served one once it loads successfully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Server.Preload {
		if _, err := a.loader.Catalog(ctx); err != nil {
			return err
		}
	}
	if cfg.Store.ReloadInterval > 0 {
		go a.reloadLoop(ctx, cfg.Store.ReloadInterval)
	}

	srv := server.New(a.service, a.logger, server.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.Server.RateLimit,
		RateWindow:   cfg.Server.RateWindow,
		Metrics:      promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})
	return srv.ListenAndServe(ctx, &http.Server{
		Addr:              cfg.Server.Addr,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}, cfg.Server.ShutdownTimeout)
}

// reloadLoop polls the current manifest every interval and rebuilds the
// catalog when its version differs from the served one. A failed reload keeps
// the served catalog; the loader logs the failure.
func (a *app) reloadLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, err := a.artifacts.Manifest(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "reading current manifest", "error", err)
				continue
			}
			if prev := a.loader.Loaded(); prev != nil && prev.Version == m.Version {
				continue
			}
			if c, err := a.loader.Reload(ctx); err == nil {
				a.logger.WithVersion(c.Version).InfoContext(ctx, "catalog version changed")
			}
		}
	}
}
