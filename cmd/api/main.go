package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"breezbook/internal/api"
	"breezbook/internal/config"
	"breezbook/internal/database"
	"breezbook/internal/domain"
	"breezbook/internal/events"
	"breezbook/internal/export"
	"breezbook/internal/logging"
	"breezbook/internal/metrics"
	"breezbook/internal/repository"
	"breezbook/internal/service"
	"breezbook/internal/tracing"
	"breezbook/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing init failed, continuing without traces")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	opts, err := service.EngineOptionsFrom(cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	quotes := initQuoteStore(redisClient, &logger)

	bus, sink := initEvents(cfg, &logger)
	if sink != nil {
		defer sink.Close()
	}

	tenants := service.NewTenantService(db, opts, logging.Component(&logger, "tenants"))
	availability := service.NewAvailabilityService(db, tenants, bus, opts, logging.Component(&logger, "availability"))
	services := api.Services{
		Availability: availability,
		Quotes:       service.NewQuoteService(db, quotes, tenants, bus, opts, logging.Component(&logger, "quotes")),
		Bookings:     service.NewBookingService(db, quotes, tenants, bus, opts, logging.Component(&logger, "bookings")),
		Tenants:      tenants,
		Health:       db.PingContext,
	}

	limiter := api.NewRateLimiter(&cfg.API)
	grpcServer, err := api.NewGRPCServer(&cfg.API, services, limiter, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}
	httpServer := api.NewHTTPServer(&cfg.API, services, limiter, &logger)

	scheduler, err := initScheduler(cfg, db, tenants, availability, opts, &logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	err = startServers(ctx, grpcServer, httpServer, cfg, &logger)

	if scheduler != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		scheduler.Stop(stopCtx)
		cancel()
	}
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, quotes are kept in memory")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initQuoteStore prefers redis and falls back to process memory.
func initQuoteStore(redisClient *redis.Client, logger *zerolog.Logger) domain.QuoteStore {
	memory := repository.NewMemoryQuoteStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverQuoteStore(repository.NewRedisQuoteStore(redisClient), memory, logging.Component(logger, "quote-store"))
}

func initEvents(cfg *config.Config, logger *zerolog.Logger) (*events.EventBus, *events.KafkaSink) {
	bus := events.NewEventBus()
	eventLogger := logging.Component(logger, "events")
	bus.OnError(func(event *events.Event, err error) {
		eventLogger.Warn().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})

	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return bus, nil
	}

	sink := events.NewKafkaSink(cfg.Kafka, eventLogger)
	sink.Attach(bus, events.AllTypes...)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka sink attached")
	return bus, sink
}

func initScheduler(
	cfg *config.Config,
	db *database.DB,
	tenants *service.TenantService,
	availability *service.AvailabilityService,
	opts service.EngineOptions,
	logger *zerolog.Logger,
) (*worker.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	schedLogger := logging.Component(logger, "scheduler")
	scheduler := worker.NewScheduler(cfg.Scheduler, opts.Location, schedLogger)

	workbook := export.NewAvailabilityWorkbook(tenants, availability, opts.MaxRangeDays, logging.Component(logger, "export"))
	if err := scheduler.Add(worker.JobExport, cfg.Scheduler.ExportCron, worker.ExportJob(workbook, cfg.Exports, opts.Clock, opts.Location)); err != nil {
		return nil, err
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		if err := scheduler.Add(worker.JobBackup, cfg.Scheduler.BackupCron, worker.BackupJob(backups)); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if !cfg.API.GRPC.Enabled {
			return
		}
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
