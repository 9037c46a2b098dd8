package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// RedisConfig holds the Redis connection used by the distributed rate limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func getRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

// NewRedisClient connects to Redis and pings it with a short timeout. It
// returns nil when no address is configured or the server is unreachable, and
// callers fall back to in-memory rate limiting.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger logrus.FieldLogger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Addr).Warn("Redis unreachable, rate limiting stays in memory")
		_ = client.Close()
		return nil
	}
	logger.WithField("addr", cfg.Addr).Info("Connected to Redis")
	return client
}
