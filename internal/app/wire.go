package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfarm/ammbot/internal/blob/s3"
	"github.com/quantfarm/ammbot/internal/cache/redis"
	"github.com/quantfarm/ammbot/internal/config"
	"github.com/quantfarm/ammbot/internal/connector"
	"github.com/quantfarm/ammbot/internal/domain"
	"github.com/quantfarm/ammbot/internal/events"
	"github.com/quantfarm/ammbot/internal/gateway"
	"github.com/quantfarm/ammbot/internal/store/postgres"
)

// Deps bundles every wired dependency of the running connector.
type Deps struct {
	Venue     *gateway.Client
	Bus       *events.Bus
	Connector *connector.Connector

	// Optional backends; nil when disabled in config.
	Postgres *postgres.Client
	Redis    *redis.Client
	S3       *s3blob.Client
}

// Wire constructs all dependencies from configuration. The returned cleanup
// function tears down connections in reverse construction order; it is safe
// to call even when Wire returns an error.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	deps := &Deps{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		fills    domain.FillArchive
		audit    domain.AuditStore
		mirror   domain.EventMirror
		archiver domain.OrderArchiver
		limiter  domain.RateLimiter
	)

	// Postgres: fill archive + audit log.
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("app: postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		deps.Postgres = pg

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, func() {}, fmt.Errorf("app: migrations: %w", err)
			}
		}
		fills = postgres.NewFillStore(pg.Pool())
		audit = postgres.NewAuditStore(pg.Pool())
	}

	// Redis: gateway rate limiter + event mirror.
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("app: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.Redis = rc

		limiter = redis.NewRateLimiter(rc)
		mirror = redis.NewEventMirror(rc)
	}

	// S3: terminal-order archive.
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("app: s3: %w", err)
		}
		closers = append(closers, func() { _ = sc.Close() })
		deps.S3 = sc
		archiver = s3blob.NewArchiver(sc)
	}

	// Gateway client.
	var gwOpts []gateway.Option
	if limiter != nil {
		gwOpts = append(gwOpts, gateway.WithRateLimiter(limiter))
	}
	venue, err := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.Chain,
		cfg.Gateway.Network,
		cfg.Gateway.Connector,
		cfg.Wallet.Address,
		gwOpts...,
	)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("app: gateway client: %w", err)
	}
	deps.Venue = venue

	gasPrice, err := cfg.Connector.GasPriceDecimal()
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("app: %w", err)
	}

	deps.Bus = events.NewBus(logger)
	deps.Connector = connector.New(
		connector.Config{
			Address:           venue.Address(),
			TradingPairs:      cfg.Connector.TradingPairs,
			GasPrice:          gasPrice,
			MinBalanceRefresh: cfg.Connector.MinBalanceRefresh.Duration,
			SubmissionTimeout: cfg.Connector.SubmissionTimeout.Duration,
			TerminalGrace:     cfg.Connector.TerminalGrace.Duration,
		},
		venue,
		deps.Bus,
		cfg.Quanta(),
		fills,
		audit,
		mirror,
		archiver,
		logger,
	)

	return deps, cleanup, nil
}
