package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/binjuice/internal/app"
	"github.com/jmylchreest/binjuice/internal/dbus"
	"github.com/jmylchreest/binjuice/internal/metrics"
)

var runOpts struct {
	metricsListen string
	shutdownGrace time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the binjuice service",
	Long: `Load every configured sound, claim the binjuice name on the session bus
and play sounds for the events the host shim relays, until interrupted.

Startup fails if the config is invalid or any configured sound file cannot
be read; nothing is half-started.`,
	Args: cobra.NoArgs,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runOpts.metricsListen, "metrics-listen", "",
		"Serve Prometheus metrics on this address (overrides [metrics] listen)")
	runCmd.Flags().DurationVar(&runOpts.shutdownGrace, "shutdown-grace", 5*time.Second,
		"How long to wait for the exit sound and cleanup")
}

func runService(cmd *cobra.Command, args []string) error {
	setupLogger(slog.LevelInfo)
	logger.Info("starting binjuice", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	bridge := dbus.NewBridge(app.Entrypoints{}, logger)

	a, err := app.Init(ctx, app.Options{
		ConfigPath: globalOpts.configPath,
		Host:       bridge,
		Metrics:    m,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}

	if err := bridge.Start(); err != nil {
		logger.Error("failed to start D-Bus bridge", "error", err)
		_ = shutdown(bridge, nil)
		return err
	}

	listen := runOpts.metricsListen
	if listen == "" {
		listen = a.Config().Metrics.Listen
	}
	var srv *http.Server
	if listen != "" {
		srv = serveMetrics(listen, m)
	}

	logger.Info("binjuice ready", "sounds", a.Sounds().Len(), "events", a.Dispatcher().Mask())

	<-ctx.Done()
	logger.Info("received signal, shutting down")

	return shutdown(bridge, srv)
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func shutdown(bridge *dbus.Bridge, srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), runOpts.shutdownGrace)
	defer cancel()

	if err := bridge.Stop(); err != nil {
		logger.Warn("error stopping bridge", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("error stopping metrics server", "error", err)
		}
	}
	if err := app.Shutdown(ctx); err != nil {
		logger.Warn("error during shutdown", "error", err)
		return err
	}

	logger.Info("binjuice stopped")
	return nil
}
