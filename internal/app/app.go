// Package app wires configuration, logging, metrics and listeners into a
// running mirror.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matiasleandrokruk/zigmirror/internal/api"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/assets"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/config"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/telemetry"
	"github.com/matiasleandrokruk/zigmirror/internal/server"
	"github.com/matiasleandrokruk/zigmirror/internal/version"
)

// App is one configured mirror process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	deps     api.Deps
}

// New creates an App. Each App owns its own metrics registry.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	telemetry.RegisterBuildInfo(registry, version.Current())

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		deps: api.Deps{
			Logger:  logger,
			Metrics: telemetry.NewMetrics(registry),
		},
	}
}

// Registry returns the App's metrics registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Servers builds the listeners for layout without starting them.
func (a *App) Servers(layout api.Layout) ([]*server.Server, error) {
	listeners, err := api.Listeners(layout, a.cfg, a.deps)
	if err != nil {
		return nil, err
	}

	base := server.DefaultConfig()
	base.Host = a.cfg.Host
	return server.ForListeners(listeners, base, a.deps), nil
}

// CheckAssets logs a warning for every asset that is not readable right now.
// Assets are read per request, so a missing file is not fatal at startup.
func (a *App) CheckAssets() {
	zigIndex, zigArtifact, zlsIndex, zlsArtifact := api.Catalog(a.cfg)
	store := assets.NewStore(a.cfg.AssetDir)
	if err := store.Check(zigIndex, zigArtifact, zlsIndex, zlsArtifact); err != nil {
		a.logger.Warn("some assets are not available yet",
			zap.String("asset_dir", store.Root()),
			zap.Error(err),
		)
	}
}

// Run serves layout, plus the telemetry listener when configured, until ctx
// is done or a listener fails.
func (a *App) Run(ctx context.Context, layout api.Layout) error {
	servers, err := a.Servers(layout)
	if err != nil {
		return err
	}
	return a.serve(ctx, layout, servers)
}

func (a *App) serve(ctx context.Context, layout api.Layout, servers []*server.Server) error {
	a.CheckAssets()
	a.logger.Info("starting mirror",
		zap.String("layout", string(layout)),
		zap.String("asset_dir", a.cfg.AssetDir),
		zap.String("on_read_error", string(a.cfg.OnReadError)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.RunAll(gctx, servers...)
	})
	g.Go(func() error {
		return telemetry.StartHTTPServer(gctx, telemetry.HTTPServerOptions{
			Addr:     a.cfg.MetricsAddr,
			Registry: a.registry,
		}, a.logger.Named("telemetry"))
	})
	return g.Wait()
}
