package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// incrScript increments a counter, starts its window on the first hit and
// returns {count, pttl}.
var incrScript = redis.NewScript(`
    local count = redis.call('INCR', KEYS[1])
    if count == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
    end
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
        ttl = tonumber(ARGV[1])
    end
    return { count, ttl }
`)

// RedisStore keeps counters in Redis so every instance shares them. When
// Redis fails the counter is taken from fallback instead.
type RedisStore struct {
	rdb      *redis.Client
	fallback Store
	logger   logrus.FieldLogger
}

// NewRedisStore creates a RedisStore backed by rdb.
func NewRedisStore(rdb *redis.Client, fallback Store, logger logrus.FieldLogger) *RedisStore {
	return &RedisStore{rdb: rdb, fallback: fallback, logger: logger}
}

func (s *RedisStore) Incr(ctx context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	vals, err := incrScript.Run(ctx, s.rdb, []string{key}, length.Milliseconds()).Result()
	if err == nil {
		count, ttl, perr := parseScriptResult(vals)
		if perr == nil {
			return count, ttl, nil
		}
		err = perr
	}

	s.logger.WithError(err).WithField("key", key).Warn("redis rate limit unavailable, using in-memory counter")
	return s.fallback.Incr(ctx, key, length)
}

func parseScriptResult(vals interface{}) (int64, time.Duration, error) {
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result: %#v", vals)
	}
	count, err := asInt64(arr[0])
	if err != nil {
		return 0, 0, err
	}
	ttl, err := asInt64(arr[1])
	if err != nil {
		return 0, 0, err
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("unexpected value %#v", v)
}
