// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/saas-backend/internal/config"
)

const redisRetryBase = 200 * time.Millisecond

// Redis backs the preview cache, the access token blacklist and the rate
// limiters.
type Redis struct {
	Client *redis.Client
}

// RedisOptions turns cfg into client options without dialing.
func RedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.ClientName != "" {
		opts.ClientName = cfg.ClientName
	}

	return opts, nil
}

// NewRedis dials and pings, retrying with jittered backoff so the API can
// start alongside a Redis container that is still booting.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	attempts := max(cfg.ConnectAttempts, 1)
	for attempt := range attempts {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return &Redis{Client: client}, nil
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			_ = client.Close() //nolint:errcheck // cleanup on connection failure
			return nil, fmt.Errorf("ping redis: %w", ctx.Err())
		case <-time.After(retryDelay(attempt)):
		}
	}

	_ = client.Close() //nolint:errcheck // cleanup on connection failure
	return nil, fmt.Errorf("ping redis after %d attempts: %w", attempts, err)
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func retryDelay(attempt int) time.Duration {
	base := redisRetryBase << min(attempt, 5)
	//nolint:gosec // G404: non-security-sensitive jitter for reconnects
	return base + time.Duration(rand.Int64N(int64(base/2)))
}
