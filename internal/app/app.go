package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/cplcurtain/internal/controllers/restserver"
	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/database"
	"github.com/chrissnell/cplcurtain/internal/sampler"
	"github.com/chrissnell/cplcurtain/pkg/config"
	"go.uber.org/zap"
)

// RunOptions selects what Run does after the session is loaded.
type RunOptions struct {
	File   string
	Export bool
	Serve  bool
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	opener         cpl.Opener
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, opener cpl.Opener, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		opener:         opener,
		logger:         logger,
	}
}

// Run loads the session, samples the model along the track when a sampler is
// configured, then exports and serves as requested. With Serve it blocks
// until shutdown.
func (a *App) Run(ctx context.Context, ro RunOptions) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if ro.File == "" {
		return fmt.Errorf("no CPL file given")
	}

	opts, err := SessionOptions(cfg, a.logger)
	if err != nil {
		return err
	}

	session, err := cpl.Open(ro.File, a.opener, opts, a.logger)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", ro.File, err)
	}
	defer session.Close()

	if err := a.sample(ctx, cfg, session); err != nil {
		return err
	}

	if ro.Export {
		if err := a.export(cfg, session); err != nil {
			return err
		}
	}

	if !ro.Serve {
		return nil
	}

	rc := config.RESTServerData{}
	if cfg.REST != nil {
		rc = *cfg.REST
	}
	ctrl, err := restserver.NewController(ctx, &wg, session, rc, cfg.Curtain, a.logger)
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}

// SessionOptions builds session options from configuration. Configured
// short names are merged over the default rename table. A sampler client is
// attached when an endpoint is set.
func SessionOptions(cfg *config.ConfigData, logger *zap.SugaredLogger) (cpl.Options, error) {
	opts := cpl.DefaultOptions()
	opts.Verbose = cfg.Session.Verbose

	bw, err := cfg.Session.BinWidthDuration()
	if err != nil {
		return opts, err
	}
	opts.BinWidth = bw

	if cfg.Session.Undef != 0 {
		opts.Undef = cfg.Session.Undef
	}

	if len(cfg.Session.Catalog) > 0 {
		opts.Catalog = make(cpl.Catalog, len(cfg.Session.Catalog))
		for i, g := range cfg.Session.Catalog {
			opts.Catalog[i] = cpl.CatalogGroup{Group: g.Group, Datasets: g.Datasets}
		}
	}
	for name, alias := range cfg.Session.ShortNames {
		opts.ShortNames[name] = alias
	}

	if cfg.Sampler.Endpoint == "" {
		return opts, nil
	}

	timeout, err := cfg.Sampler.TimeoutDuration()
	if err != nil {
		return opts, err
	}
	ttl, err := cfg.Sampler.CacheTTLDuration()
	if err != nil {
		return opts, err
	}

	client, err := sampler.NewClient(sampler.Config{
		Endpoint:       cfg.Sampler.Endpoint,
		OpticsEndpoint: cfg.Optics.Endpoint,
		Timeout:        timeout,
		CacheSize:      cfg.Sampler.CacheSize,
		CacheTTL:       ttl,
	}, logger)
	if err != nil {
		return opts, err
	}
	opts.Sampler = client
	opts.Optics = client

	return opts, nil
}

func (a *App) sample(ctx context.Context, cfg *config.ConfigData, s *cpl.Session) error {
	sc := cfg.Sampler
	if sc.Endpoint == "" {
		return nil
	}

	if sc.AsmCollection != "" && len(sc.Variables) > 0 {
		if err := s.AddVar(ctx, sc.AsmCollection, sc.Variables, sc.Levels); err != nil {
			return fmt.Errorf("error sampling %s: %w", sc.AsmCollection, err)
		}
		a.logger.Infow("sampled model variables", "collection", sc.AsmCollection, "variables", sc.Variables)
	}

	if cfg.Optics.Enabled {
		res, err := s.SampleExtinction(ctx, sc.AsmCollection, sc.AerCollection, sc.Levels, cfg.Optics.Channels, cfg.Optics.Species)
		if err != nil {
			return fmt.Errorf("error computing extinction: %w", err)
		}
		a.logger.Infow("computed extinction along track", "shape", res.Ext.Shape)
	}
	return nil
}

func (a *App) export(cfg *config.ConfigData, s *cpl.Session) error {
	if cfg.Storage.TimescaleDB == nil || cfg.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("export requested but storage.timescaledb is not configured")
	}

	client := database.NewClient(cfg.Storage.TimescaleDB.ConnectionString, a.logger)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("error connecting to TimescaleDB: %w", err)
	}
	return client.Export(s)
}
