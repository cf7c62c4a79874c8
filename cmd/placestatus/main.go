package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"placestatus/internal/api"
	"placestatus/internal/config"
	"placestatus/internal/db"
	"placestatus/internal/events"
	"placestatus/internal/metrics"
	"placestatus/internal/monitor"
	"placestatus/internal/status"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("PLACESTATUS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.API.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyPlaces := func(places *config.PlacesConfig) {
		if places == nil {
			return
		}
		for _, name := range places.UnparsedPlaces() {
			logger.Warn().Str("place", name).Msg("opening hours not recognised for any weekday")
		}
		if err := database.SyncPlacesFromConfig(ctx, places); err != nil {
			logger.Error().Err(err).Msg("failed to apply places config")
			return
		}
		logger.Info().Int("places", len(places.Places)).Msg("places config applied")
	}
	if err := config.WatchPlaces(ctx, cfg.PlacesConfigPath, 30*time.Second, applyPlaces, func(err error) {
		logger.Error().Err(err).Msg("places config reload failed")
	}); err != nil {
		logger.Error().Err(err).Msg("failed to load places config")
	}

	evaluator := status.NewEvaluator(cfg.Thresholds())
	bus := events.NewEventBus()
	monitor.LogChanges(bus, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	server := api.NewHTTPServer(database, evaluator, api.Options{
		Addr:          fmt.Sprintf(":%d", cfg.API.Port),
		APIKey:        cfg.API.APIKey,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		CacheTTL:      cfg.CacheTTL(),
		Redis:         rdb,
	}, &logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		return startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)
	})
	if cfg.Monitoring.PrometheusEnabled {
		g.Go(func() error {
			return startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
		})
	}
	if cfg.Monitor.Enabled {
		m := monitor.New(database, evaluator, bus, cfg.MonitorInterval(), &logger)
		g.Go(func() error {
			m.Start(ctx)
			return nil
		})
	}
	if cfg.Backup.Enabled {
		g.Go(func() error {
			startBackupLoop(ctx, database, cfg, &logger)
			return nil
		})
	}

	logger.Info().Msg("placestatus started")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("placestatus stopped")
}
