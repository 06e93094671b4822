package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/api"
	"github.com/netpulse/netpulse/server/internal/config"
	"github.com/netpulse/netpulse/server/internal/engine"
	"github.com/netpulse/netpulse/server/internal/store"
	"github.com/netpulse/netpulse/server/internal/telemetry"
	"github.com/netpulse/netpulse/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	UIDir string
	Port  int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation with the REST API, WebSocket stream and /metrics",
		Long: `Run the fleet simulation and serve it over HTTP.

Routes on server.http_port:
  /api/v1/...   REST API
  /ws/stream    WebSocket snapshots and live events
  /metrics      Prometheus exposition
  /             dashboard static files when --ui-dir is set

Example:
  netpulse serve --config config.yaml
  netpulse serve --port 9090 --ui-dir ui/dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UIDir, "ui-dir", "", "serve the dashboard from this directory (overrides server.ui_dir)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "HTTP port (overrides server.http_port)")

	return cmd
}

// server is the wired process: the engine and everything subscribed to it.
type server struct {
	engine  *engine.Engine
	events  *store.Store
	alarms  *alerts.Tracker
	hub     *ws.Hub
	metrics *telemetry.Metrics
	handler http.Handler
}

// buildServer wires the engine to its subscribers and mounts the HTTP routes.
// Nothing is started.
func buildServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	m := telemetry.New()

	e, err := engine.New(engine.Options{
		Nodes:        cfg.Simulation.Nodes,
		TickInterval: cfg.Simulation.TickInterval,
		HistoryDepth: cfg.Simulation.HistoryDepth,
		Rand:         engine.NewRand(cfg.Simulation.Seed),
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		return nil, err
	}

	events := store.New(cfg.Events.Capacity, cfg.Events.Retention)
	tracker := alerts.New(cfg.Alerts)
	src := api.Sources{Fleet: e, Events: events, Alarms: tracker}
	hub := ws.New(src, cfg.Server.BroadcastInterval)

	// Log first so the API already lists an event when the hub pushes it.
	e.Subscribe(events)
	e.Subscribe(tracker)
	e.Subscribe(hub)

	m.TrackClients(hub.Count)
	m.TrackFleet(e)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.New(src))
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", m.Handler())

	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if dir := cfg.Server.UIDir; dir != "" {
		fs := http.FileServer(http.Dir(dir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(dir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(dir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	return &server{
		engine:  e,
		events:  events,
		alarms:  tracker,
		hub:     hub,
		metrics: m,
		handler: mux,
	}, nil
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(cmd.OutOrStdout(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, fromFile, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	level.Set(cfg.Log.SlogLevel())
	if opts.UIDir != "" {
		cfg.Server.UIDir = opts.UIDir
	}
	if opts.Port != 0 {
		if err := requirePositive("port", opts.Port); err != nil {
			return err
		}
		cfg.Server.HTTPPort = opts.Port
	}

	slog.Info("netpulse starting",
		"config", opts.ConfigPath,
		"http_port", cfg.Server.HTTPPort,
		"nodes", len(cfg.Simulation.Nodes),
		"tick_interval", cfg.Simulation.TickInterval,
	)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go srv.events.Run(ctx)
	go srv.hub.Run(ctx)

	if fromFile {
		go func() {
			err := config.Watch(ctx, opts.ConfigPath, func(next *config.Config) {
				if opts.LogLevel == "" {
					level.Set(next.Log.SlogLevel())
				}
				srv.alarms.Reconfigure(next.Alerts)
				slog.Info("config reloaded", "log_level", next.Log.Level, "webhooks", len(next.Alerts.Webhooks))
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	if cfg.Simulation.Autostart {
		srv.engine.Start()
	}
	defer srv.engine.Stop()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: srv.handler,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("netpulse shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return httpSrv.Shutdown(shutdownCtx)
}
