package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration, read from the environment and an
// optional .env file.
type Config struct {
	AppEnv        string
	Port          string
	APIPrefix     string
	StoreTimeout  time.Duration
	BcryptCost    int
	TokenTTL      time.Duration
	EmailDNSCheck bool
	MaxBodyBytes  int64
	DB            DBConfig
	Log           LogConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
}

// LogConfig selects the log level and output format ("json" or "text").
type LogConfig struct {
	Level  string
	Format string
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("api.prefix", "/api")
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("bcrypt.cost", 10)
	v.SetDefault("token.ttl", time.Duration(0))
	v.SetDefault("email.dns_check", true)
	v.SetDefault("max.body_bytes", int64(5<<20))

	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.prefix", "rl")
	v.SetDefault("rate_limit.api_per_minute", 60)
	v.SetDefault("rate_limit.auth_per_minute", 5)
	v.SetDefault("rate_limit.auth_per_hour", 20)
	v.SetDefault("rate_limit.writes_per_minute", 30)
}

// newViper returns a viper instance reading keys like "db.host" from
// variables like DB_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:        v.GetString("app.env"),
		Port:          v.GetString("server.port"),
		APIPrefix:     v.GetString("api.prefix"),
		StoreTimeout:  v.GetDuration("store.timeout"),
		BcryptCost:    v.GetInt("bcrypt.cost"),
		TokenTTL:      v.GetDuration("token.ttl"),
		EmailDNSCheck: v.GetBool("email.dns_check"),
		MaxBodyBytes:  v.GetInt64("max.body_bytes"),
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
			MaxConns: int32(v.GetInt("db.max_conns")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Redis:     getRedisConfig(v),
		RateLimit: getRateLimitConfig(v),
	}

	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", cfg.StoreTimeout)
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.APIPrefix != "" && !strings.HasPrefix(cfg.APIPrefix, "/") {
		cfg.APIPrefix = "/" + cfg.APIPrefix
	}
	cfg.APIPrefix = strings.TrimSuffix(cfg.APIPrefix, "/")
	return cfg, nil
}
