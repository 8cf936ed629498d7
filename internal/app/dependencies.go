// Package app wires configuration into the clients and HTTP routes shared by
// the paydesk commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/paydesk/internal/config"
	"github.com/noah-isme/paydesk/internal/frappe"
	"github.com/noah-isme/paydesk/internal/lock"
	"github.com/noah-isme/paydesk/internal/ratelimit"
	"github.com/noah-isme/paydesk/internal/resilience"
	"github.com/noah-isme/paydesk/internal/webhooks"
)

// Dependencies enumerates the collaborators shared by the CLI and the server.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Frappe  *frappe.Client
	Breaker *resilience.Breaker
	// Redis is nil when REDIS_URL is unset; locking is then skipped and the
	// limiter keeps its counters in memory.
	Redis   *redis.Client
	Limiter *limiter.Limiter
}

// NewDependencies builds the Frappe client and, when configured, connects to
// Redis. The returned cleanup closes whatever was opened.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger, instrumentRedisMetrics bool) (*Dependencies, func(), error) {
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget("frappe").
		WithLogger(logger)

	client, err := frappe.New(frappe.Options{
		BaseURL:   cfg.FrappeURL,
		Token:     cfg.APIToken(),
		CSRFToken: cfg.FrappeCSRFToken,
		Timeout:   cfg.FrappeTimeout,
		Breaker:   breaker,
		Logger:    &logger,
	})
	if err != nil {
		return nil, func() {}, err
	}

	deps := &Dependencies{Config: cfg, Logger: logger, Frappe: client, Breaker: breaker}
	cleanup := func() {}

	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL, logger, instrumentRedisMetrics)
		if err != nil {
			return nil, cleanup, err
		}
		deps.Redis = rdb
		cleanup = func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}
	}
	return deps, cleanup, nil
}

func connectRedis(ctx context.Context, url string, logger zerolog.Logger, metrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// WebhookService returns the webhook service, guarded by a Redis lock when
// Redis is available.
func (d *Dependencies) WebhookService() *webhooks.Service {
	svc := &webhooks.Service{
		Caller:  d.Frappe,
		LockTTL: d.Config.WebhookLockTTL,
		Logger:  d.Logger.With().Str("component", "webhooks").Logger(),
	}
	if d.Redis != nil {
		svc.Guard = lock.Locker{R: d.Redis, Prefix: "paydesk:lock:"}
	}
	return svc
}

// RedirectLimiter lazily builds the limiter for the payment redirect route.
func (d *Dependencies) RedirectLimiter() (*limiter.Limiter, error) {
	if d.Limiter != nil {
		return d.Limiter, nil
	}
	lim, err := ratelimit.New(d.Config.RedirectRateLimit, d.Redis, "paydesk:ratelimit:redirect")
	if err != nil {
		return nil, err
	}
	d.Limiter = lim
	return lim, nil
}
