package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	EndpointPublic = "public"
	EndpointLogin  = "login"

	keyPublic = "ratelimit:public:%s"
	keyLogin  = "ratelimit:login:%s"
)

// Module provides the shared *Limiter. Redis backs it when REDIS_ADDR is
// set; otherwise buckets live in process memory.
var Module = fx.Module("ratelimit", fx.Provide(NewLimiter))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
	Clock     clock.Clock      `optional:"true"`
}

// Limiter applies the public-document and login limits.
type Limiter struct {
	bucket  Bucket
	log     *zap.Logger
	metrics *metrics.Metrics
	backend string

	publicRate  float64
	publicBurst int
	loginRate   float64
	loginBurst  int
}

func NewLimiter(p Params) *Limiter {
	cfg := p.Config.RateLimit
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	var bucket Bucket
	backend := "memory"
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(cfg.RedisPassword),
			DB:       cfg.RedisDB,
		})
		if p.Lifecycle != nil {
			p.Lifecycle.Append(fx.StopHook(client.Close))
		}
		bucket = NewTokenBucket(client)
		backend = "redis"
	} else {
		bucket = NewMemoryBucket(p.Clock)
	}

	log.Info("rate limiter configured", zap.String("backend", backend))
	return newLimiter(bucket, cfg, log.Named("ratelimit"), p.Metrics, backend)
}

func newLimiter(bucket Bucket, cfg config.RateLimitConfig, log *zap.Logger, m *metrics.Metrics, backend string) *Limiter {
	return &Limiter{
		bucket:      bucket,
		log:         log,
		metrics:     m,
		backend:     backend,
		publicRate:  cfg.PublicRate,
		publicBurst: cfg.PublicBurst,
		loginRate:   cfg.LoginRate,
		loginBurst:  cfg.LoginBurst,
	}
}

// AllowPublic limits token-addressed document requests per client address.
func (l *Limiter) AllowPublic(ctx context.Context, clientKey string) *Result {
	return l.allow(ctx, EndpointPublic, fmt.Sprintf(keyPublic, normalizeKey(clientKey)), l.publicRate, l.publicBurst)
}

// AllowLogin limits password attempts per email and client address.
func (l *Limiter) AllowLogin(ctx context.Context, clientKey string) *Result {
	return l.allow(ctx, EndpointLogin, fmt.Sprintf(keyLogin, normalizeKey(clientKey)), l.loginRate, l.loginBurst)
}

func (l *Limiter) allow(ctx context.Context, endpoint, key string, rate float64, burst int) *Result {
	if l == nil || l.bucket == nil || rate <= 0 || burst <= 0 {
		return &Result{Allowed: true}
	}

	res, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		// Fail open.
		l.log.Warn("rate limit check failed",
			zap.String("endpoint", endpoint),
			zap.String("backend", l.backend),
			zap.Error(err),
		)
		l.metrics.RecordRateLimitAllowed(ctx, endpoint)
		return &Result{Allowed: true, Limit: burst}
	}
	if res.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, endpoint)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, endpoint, "exhausted")
	}
	return res
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "unknown"
	}
	return key
}
