package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/ledgerbook/internal/adapter/http"
	"github.com/iho/ledgerbook/internal/adapter/http/handler"
	"github.com/iho/ledgerbook/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/ledgerbook/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledgerbook/internal/adapter/repository/redis"
	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/auth"
	"github.com/iho/ledgerbook/internal/infrastructure/config"
	"github.com/iho/ledgerbook/internal/infrastructure/eventpublisher"
	"github.com/iho/ledgerbook/internal/infrastructure/logger"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
	"github.com/iho/ledgerbook/internal/infrastructure/postgres"
	"github.com/iho/ledgerbook/internal/infrastructure/redis"
	"github.com/iho/ledgerbook/internal/usecase"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 30 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger
	zerolog.DefaultContextLogger = &appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	policy, err := fiscalPolicy(cfg)
	if err != nil {
		return err
	}
	if !policy.IsCalendarYear() {
		logger.Warn().
			Str("start_month", policy.StartMonth.String()).
			Str("timezone", policy.Location.String()).
			Msg("fiscal year does not follow the calendar year")
	}

	auditPolicy, err := usecase.ParseAuditPolicy(cfg.AuditPolicy)
	if err != nil {
		return err
	}

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Connect to Redis
	var (
		redisClient      *goredis.Client
		idempotencyStore *redisRepo.IdempotencyStore
		locker           usecase.Locker
		redisPinger      handler.Pinger
	)
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.ClientConfig{URL: cfg.RedisURL, Timeout: cfg.RedisTimeout})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to redis")

		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		redisPinger = idempotencyStore
		if cfg.LockEnabled {
			locker = redisRepo.NewLocker(redisClient, cfg.LockTTL,
				redisRepo.WithLockerLogger(logger),
				redisRepo.WithLockerMetrics(m),
			)
		}
	} else if cfg.LockEnabled {
		return errors.New("LOCK_ENABLED requires REDIS_ENABLED")
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(
		postgresRepo.WithRetrierLogger(logger),
		postgresRepo.WithRetrierMetrics(m),
	)

	// Initialize use cases
	roleGate := usecase.NewRoleGate(m)
	fiscalGate := usecase.NewFiscalLockGate(policy, usecase.WithFiscalMetrics(m))
	recorder := usecase.NewAuditRecorder(auditRepo, idGen, m)
	ledgerCfg := usecase.LedgerConfig{
		TxManager:    txManager,
		Transactions: transactionRepo,
		Audit:        recorder,
		FiscalLock:   fiscalGate,
		IDGen:        idGen,
		Outbox:       outboxRepo,
		Retrier:      retrier,
		AuditPolicy:  auditPolicy,
		Logger:       logger,
		Locker:       locker,
		Metrics:      m,
	}
	ledger := usecase.NewLedgerUseCase(ledgerCfg)

	// Outbox publisher
	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go func() {
		ep := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  publisher,
			Logger:     logger,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
		if err := ep.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				rateLimiter.CleanupLimiters(limiterIdleTimeout)
			}
		}
	}()

	routerCfg := httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(ledger),
		AuditHandler:       handler.NewAuditHandler(recorder),
		ReportHandler:      handler.NewReportHandler(ledger),
		HealthHandler:      handler.NewHealthHandler(pool, redisPinger),
		TokenVerifier:      auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration),
		RoleGate:           roleGate,
		CookieName:         cfg.AuthCookieName,
		Logger:             logger,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		MetricsHandler:     promhttp.Handler(),
	}
	if idempotencyStore != nil {
		routerCfg.IdempotencyStore = idempotencyStore
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func fiscalPolicy(cfg *config.Config) (domain.FiscalPolicy, error) {
	loc, err := cfg.FiscalLocation()
	if err != nil {
		return domain.FiscalPolicy{}, err
	}
	return domain.NewFiscalPolicy(cfg.FiscalYearStartMonth, loc)
}

// newPublisher picks Kafka when brokers are configured and falls back to logging.
func newPublisher(cfg *config.Config, logger zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info().Msg("no kafka brokers configured, outbox events will be logged")
		return eventpublisher.NewLogPublisher(logger), func() {}, nil
	}

	producer, err := eventpublisher.NewKafkaProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to kafka: %w", err)
	}
	publisher := eventpublisher.NewKafkaPublisher(producer, cfg.KafkaTopic)
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing outbox events to kafka")

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close kafka producer")
		}
	}, nil
}
