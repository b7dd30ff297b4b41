// Package app wires configuration, storage, the tracker and the HTTP API
// into runnable commands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Thrusbalda/auto-work-log/internal/clock"
	"github.com/Thrusbalda/auto-work-log/internal/config"
	"github.com/Thrusbalda/auto-work-log/internal/db"
	"github.com/Thrusbalda/auto-work-log/internal/geo"
	"github.com/Thrusbalda/auto-work-log/internal/handler"
	"github.com/Thrusbalda/auto-work-log/internal/insight"
	"github.com/Thrusbalda/auto-work-log/internal/logger"
	"github.com/Thrusbalda/auto-work-log/internal/metrics"
	"github.com/Thrusbalda/auto-work-log/internal/middleware"
	"github.com/Thrusbalda/auto-work-log/internal/persist"
	"github.com/Thrusbalda/auto-work-log/internal/repository"
	"github.com/Thrusbalda/auto-work-log/internal/router"
	"github.com/Thrusbalda/auto-work-log/internal/service"
	"github.com/Thrusbalda/auto-work-log/internal/settings"
	"github.com/Thrusbalda/auto-work-log/internal/tracker"
)

const shutdownTimeout = 15 * time.Second

type Options struct {
	ConfigPath string
	// Ephemeral keeps all state in memory instead of SQLite.
	Ephemeral bool
	// LogOutput overrides the default stderr JSON logger.
	LogOutput io.Writer
}

func newLogger(cfg config.Config, opts Options) (*zap.Logger, error) {
	if opts.LogOutput != nil {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		return logger.NewWithWriter(opts.LogOutput, level), nil
	}
	return logger.New(cfg.LogLevel)
}

// Migrate applies pending migrations and returns their names.
func Migrate(opts Options) ([]string, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations applied", zap.Strings("applied", applied), zap.String("db_path", cfg.DBPath))
	return applied, nil
}

// Serve runs the API, the sampling scheduler, the persistence writer and the
// optional settings watcher until ctx is cancelled or one of them fails.
func Serve(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolve timezone: %w", err)
	}

	store, closeStore, err := openStore(cfg, opts, log)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	writer := persist.NewWriteBehind(store, log.Named("persist"), recorder)

	provider := settings.NewProvider(store, writer, log.Named("settings"))
	if err := provider.Load(ctx); err != nil {
		return err
	}

	clk := clock.SystemClock{}
	machine := tracker.NewMachine(store, writer, clk, log.Named("machine"), recorder)
	if err := machine.Init(ctx); err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}

	var (
		sampler geo.Sampler
		pusher  service.LocationPusher
	)
	switch cfg.LocationSource {
	case config.LocationSourceHTTP:
		sampler = geo.NewHTTPSampler(&http.Client{}, cfg.LocationURL, cfg.SampleTimeout)
	default:
		push := geo.NewPushSampler(cfg.SampleTimeout)
		sampler = push
		pusher = push
	}
	scheduler := tracker.NewScheduler(sampler, machine, provider, tracker.DefaultPolicy(), clk, log.Named("scheduler"), recorder)

	var summarizer insight.Summarizer
	if cfg.GeminiAPIKey != "" {
		gemini, err := insight.NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, loc, log.Named("insight"), recorder)
		if err != nil {
			return fmt.Errorf("create insight client: %w", err)
		}
		summarizer = gemini
	} else {
		log.Info("GEMINI_API_KEY not set, insight endpoint disabled")
	}

	authService, err := service.NewAuthService(cfg.APIPassphrase, cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}
	trackerService := service.NewTrackerService(service.TrackerDeps{
		Machine:    machine,
		Scheduler:  scheduler,
		Settings:   provider,
		Pusher:     pusher,
		Summarizer: summarizer,
		Clock:      clk,
		Location:   loc,
		Logger:     log.Named("service"),
	})

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Deps{
		AuthService:    authService,
		AuthHandler:    handler.NewAuthHandler(authService),
		TrackerHandler: handler.NewTrackerHandler(trackerService),
		Metrics:        metrics.Handler(registry),
		InsightLimiter: middleware.PerMinute(cfg.InsightRatePerMinute),
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         log.Named("http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server starting",
			zap.String("addr", server.Addr),
			zap.String("location_source", cfg.LocationSource),
			zap.Bool("ephemeral", opts.Ephemeral),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return writer.Run(gctx) })
	if cfg.SettingsFile != "" {
		watcher := settings.NewFileWatcher(cfg.SettingsFile, provider, log.Named("settings_file"))
		g.Go(func() error { return watcher.Run(gctx) })
	}

	err = g.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if failed := writer.Flush(flushCtx); failed > 0 {
		log.Warn("writes lost at shutdown", zap.Int("keys", failed))
	}
	log.Info("stopped")
	return err
}

func openStore(cfg config.Config, opts Options, log *zap.Logger) (persist.Store, func(), error) {
	if opts.Ephemeral {
		log.Warn("ephemeral mode, state will not survive a restart")
		return repository.NewMemoryKV(), func() {}, nil
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	applied, err := db.RunMigrations(database, cfg.MigrationsDir)
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", zap.Strings("applied", applied))
	}
	return repository.NewKVRepository(database), closer(database, log), nil
}

func closer(database *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := database.Close(); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
}
