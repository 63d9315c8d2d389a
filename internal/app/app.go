package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/config"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/engine"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/kv"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/logging"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/metrics"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/netmon"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/prefs"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/state"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/ui"
)

// Options configure the kitchen application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the config default
	PollEvery  int    // seconds; zero uses refresh_interval_seconds
}

// Run boots the kitchen TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.OpenFile(cfg.DataDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = cfg.PrefsPath()
	}
	userPrefs := prefs.Load(prefsPath)

	store, err := kv.OpenBolt(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	client, err := backend.NewClient(cfg.APIURL,
		backend.WithCredentials(credentials(cfg.TokenFile)),
		backend.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &state.SyncState{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logging.Component(logger, "metrics"))
	}

	monitor := netmon.New(
		netmon.WithSink(st),
		netmon.WithLogger(logging.Component(logger, "netmon")),
	)

	eng, err := engine.New(engine.Options{
		Store:       store,
		Remote:      client,
		Monitor:     monitor,
		State:       st,
		Logger:      logging.Component(logger, "engine"),
		Metrics:     m,
		MaxAttempts: cfg.MaxAttempts,
		Coalesce:    cfg.Coalesce,
		CallTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	eng.Load()
	eng.Start(ctx)
	defer func() {
		cancel()
		eng.Close()
	}()

	logger.Info().
		Str("api_url", cfg.APIURL).
		Str("store", cfg.StorePath()).
		Int("pending", len(eng.Pending())).
		Msg("kitchen started")

	health := &netmon.HealthPoller{
		Checker:  client,
		Monitor:  monitor,
		Interval: cfg.HealthInterval,
		Timeout:  cfg.RequestTimeout,
		Logger:   logging.Component(logger, "health"),
	}
	go health.Run(ctx)

	interval := cfg.RefreshInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}
	StartPoller(ctx, eng, st, interval, logging.Component(logger, "poller"))
	StartDrainer(ctx, eng, defaultDrainInterval, logging.Component(logger, "drainer"))

	err = ui.Run(ui.Options{
		Context:    ctx,
		Controller: eng,
		State:      st,
		LogPath:    logging.Path(cfg.DataDir),
		Prefs:      userPrefs,
		PrefsPath:  prefsPath,
		Logger:     logging.Component(logger, "ui"),
	})
	logger.Info().Err(err).Msg("kitchen stopped")
	return err
}

// credentials prefers the token file and falls back to anonymous access
// when no file has been written yet.
func credentials(tokenFile string) backend.CredentialProvider {
	if tokenFile == "" {
		return backend.NewStaticToken("")
	}
	if _, err := os.Stat(tokenFile); errors.Is(err, os.ErrNotExist) {
		return backend.NewStaticToken("")
	}
	return &backend.FileToken{Path: tokenFile}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) {
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := metrics.Serve(ctx, addr, reg); err != nil {
		log.Error().Err(err).Msg("metrics server")
	}
}
