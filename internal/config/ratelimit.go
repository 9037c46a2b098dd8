package config

import (
	"user_management/internal/ratelimit"

	"github.com/spf13/viper"
)

// RateLimitConfig holds the limiter backend and its tier table.
type RateLimitConfig struct {
	Enabled bool
	// Backend is "memory" or "redis".
	Backend string
	Prefix  string
	Tiers   map[string]ratelimit.Tier
}

func getRateLimitConfig(v *viper.Viper) RateLimitConfig {
	tiers := ratelimit.DefaultTiers()
	setCapacity(tiers, ratelimit.TierAPI, 0, v.GetInt("rate_limit.api_per_minute"))
	setCapacity(tiers, ratelimit.TierAuth, 0, v.GetInt("rate_limit.auth_per_minute"))
	setCapacity(tiers, ratelimit.TierAuth, 1, v.GetInt("rate_limit.auth_per_hour"))
	setCapacity(tiers, ratelimit.TierWrites, 0, v.GetInt("rate_limit.writes_per_minute"))

	return RateLimitConfig{
		Enabled: v.GetBool("rate_limit.enabled"),
		Backend: v.GetString("rate_limit.backend"),
		Prefix:  v.GetString("rate_limit.prefix"),
		Tiers:   tiers,
	}
}

func setCapacity(tiers map[string]ratelimit.Tier, name string, i, capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	t := tiers[name]
	limits := append([]ratelimit.Limit(nil), t.Limits...)
	limits[i] = ratelimit.Limit{Capacity: capacity, Window: limits[i].Window}
	t.Limits = limits
	tiers[name] = t
}
