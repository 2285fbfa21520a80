package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "invoicer:ratelimit:"

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
)

// NewLimiter returns the redis token bucket when REDIS_ADDR is set and the
// in-process fixed window otherwise.
func NewLimiter(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) Limiter {
	log = log.Named("ratelimit")
	if !cfg.Redis.Enabled() {
		log.Info("rate limiting in process, redis not configured")
		return NewFixedWindow(clk)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewTokenBucket(client, keyPrefix)
}
