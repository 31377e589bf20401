package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"creditflow/internal/adapters/messaging"
	"creditflow/internal/adapters/persistence/models"
	"creditflow/internal/adapters/persistence/repositories"
	"creditflow/internal/adapters/scoring"
	"creditflow/internal/config"
	"creditflow/internal/core/services"

	"github.com/redis/go-redis/v9"
)

// Store is a credit request repository that can report its health
type Store interface {
	services.CreditRequestRepository
	Ping(ctx context.Context) error
}

// Container holds the wired components of one process
type Container struct {
	Config    *config.Config
	Log       *slog.Logger
	Store     Store
	Oracle    services.ScoreOracle
	Gateway   *messaging.Gateway
	Service   *services.CreditService
	Reconcile *services.ReconcileService

	redis   *redis.Client
	closers []func() error
}

// New connects storage and the broker and builds the service graph.
// The broker connect blocks until ctx is done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c.Store = store

	oracle, err := c.buildOracle(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Oracle = oracle

	c.Gateway = messaging.NewGateway("creditflow-publisher", cfg.RabbitMQ, cfg.Consumer, log)
	c.closers = append(c.closers, c.Gateway.Close)
	if err := c.Gateway.Connect(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	c.Service = services.NewCreditService(c.Store, c.Oracle, c.Gateway,
		services.WithScoreTimeout(cfg.Scoring.Timeout),
		services.WithLogger(log.With("component", "credit_service")),
	)
	c.Reconcile = services.NewReconcileService(c.Store, c.Gateway, cfg.Reconcile, log.With("component", "reconcile"))

	return c, nil
}

// NewStoreOnly opens storage without the broker or score oracle
func NewStoreOnly(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c.Store = store
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (Store, error) {
	if c.Config.StorageDriver == "memory" {
		c.Log.Warn("⚠️ using in-memory storage, data is lost on restart")
		return repositories.NewMemoryCreditRequestRepository(), nil
	}

	db, err := config.ConnectDatabase(ctx, c.Config)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, config.CloseDatabase)

	if err := models.AutoMigrate(db); err != nil {
		config.CloseDatabase()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return repositories.NewCreditRequestRepository(db), nil
}

// buildOracle chains provider -> rate limit -> cache
func (c *Container) buildOracle(ctx context.Context) (services.ScoreOracle, error) {
	sc := c.Config.Scoring

	var oracle services.ScoreOracle
	switch sc.Provider {
	case "http":
		oracle = scoring.NewHTTPOracle(sc.URL, sc.Timeout)
	default:
		oracle = scoring.NewMockOracle(sc.MockLatency)
	}

	if sc.RateLimit > 0 {
		oracle = scoring.NewRateLimitedOracle(oracle, sc.RateLimit, sc.Burst)
	}

	if c.Config.Redis.Addr != "" {
		rdb, err := scoring.NewRedisClient(ctx, c.Config.Redis.Addr, c.Config.Redis.Password, c.Config.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = rdb
		c.closers = append(c.closers, rdb.Close)
		oracle = scoring.NewCachedOracle(oracle, rdb, sc.CacheTTL, c.Log.With("component", "score_cache"))
	}

	c.Log.Info("score oracle ready",
		"provider", sc.Provider,
		"rate_limit", sc.RateLimit,
		"cache", c.redis != nil,
	)
	return oracle, nil
}

// NewConsumer builds a request consumer on its own broker connection.
// The caller owns the returned gateway.
func (c *Container) NewConsumer(ctx context.Context) (*messaging.RequestConsumer, *messaging.Gateway, error) {
	gw := messaging.NewGateway("creditflow-consumer", c.Config.RabbitMQ, c.Config.Consumer, c.Log)
	if err := gw.Connect(ctx); err != nil {
		gw.Close()
		return nil, nil, fmt.Errorf("failed to connect consumer to broker: %w", err)
	}

	consumer := messaging.NewRequestConsumer(gw, c.Service, c.Log)
	return consumer, gw, nil
}

// Close releases everything in reverse order of acquisition
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
