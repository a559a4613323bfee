// Package config loads the content proxy configuration from an optional
// config.yaml and CONTENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/content-cache/pkg/cache"
	"github.com/Sternrassler/content-cache/pkg/client"
	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/webhook"
)

// EnvPrefix prefixes every environment override, e.g. CONTENT_API_TOKEN.
const EnvPrefix = "CONTENT"

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the complete proxy configuration, loaded from config.yaml and
// CONTENT_* environment variables.
type Config struct {
	// DevMode serves draft content and disables caching.
	DevMode bool `mapstructure:"dev_mode"`

	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Session SessionConfig `mapstructure:"session"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// APIConfig configures the upstream content delivery API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig selects the cache backend and entry lifetime.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Scope   string        `mapstructure:"scope"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MemoryConfig sizes the in-process store.
type MemoryConfig struct {
	Capacity           int `mapstructure:"capacity"`
	NumShards          int `mapstructure:"num_shards"`
	EvictionPercentage int `mapstructure:"eviction_percentage"`
}

// SessionConfig configures editor session validation.
type SessionConfig struct {
	PreviewToken string        `mapstructure:"preview_token"`
	Tolerance    time.Duration `mapstructure:"tolerance"`
}

// WebhookConfig holds the webhook signing secrets.
type WebhookConfig struct {
	Secret    string `mapstructure:"secret"`
	DevSecret string `mapstructure:"dev_secret"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns the configuration used when neither file nor env set a key.
func Default() Config {
	api := client.DefaultConfig("")
	cc := cache.DefaultConfig()
	mem := cache.DefaultMemoryConfig()

	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		API: APIConfig{
			BaseURL:   api.BaseURL,
			UserAgent: api.UserAgent,
			Timeout:   api.Timeout,
		},
		Cache: CacheConfig{
			Backend: BackendRedis,
			TTL:     cc.TTL,
			Scope:   cc.Scope,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Memory: MemoryConfig{
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			EvictionPercentage: mem.EvictionPercentage,
		},
		Session: SessionConfig{Tolerance: session.DefaultTolerance},
		Log:     LogConfig{Level: string(logging.LevelInfo)},
	}
}

// Load reads config.yaml from configPath (if present), applies CONTENT_*
// environment overrides and validates the result.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("dev_mode", d.DevMode)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.scope", d.Cache.Scope)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("memory.capacity", d.Memory.Capacity)
	v.SetDefault("memory.num_shards", d.Memory.NumShards)
	v.SetDefault("memory.eviction_percentage", d.Memory.EvictionPercentage)

	v.SetDefault("session.preview_token", d.Session.PreviewToken)
	v.SetDefault("session.tolerance", d.Session.Tolerance)

	v.SetDefault("webhook.secret", d.Webhook.Secret)
	v.SetDefault("webhook.dev_secret", d.Webhook.DevSecret)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

// Validate checks the settings the process cannot start without.
func (c Config) Validate() error {
	if c.API.Token == "" {
		return fmt.Errorf("api.token is required (set %s_API_TOKEN)", EnvPrefix)
	}
	switch c.Cache.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	case BackendMemory:
		if err := c.MemoryStoreConfig().Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q (got %q)", BackendRedis, BackendMemory, c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0 (got %s)", c.Cache.TTL)
	}
	return nil
}

// ClientConfig returns the API client settings.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:   c.API.BaseURL,
		Token:     c.API.Token,
		UserAgent: c.API.UserAgent,
		Timeout:   c.API.Timeout,
	}
}

// CacheConfig returns the content cache settings.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{TTL: c.Cache.TTL, DevMode: c.DevMode, Scope: c.Cache.Scope}
}

// MemoryStoreConfig returns the in-process store settings. The store TTL
// follows the cache TTL.
func (c Config) MemoryStoreConfig() cache.MemoryConfig {
	return cache.MemoryConfig{
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		TTL:                c.Cache.TTL,
		EvictionPercentage: c.Memory.EvictionPercentage,
	}
}

// SessionConfig returns the editor session settings.
func (c Config) SessionConfig() session.Config {
	return session.Config{PreviewToken: c.Session.PreviewToken, DevMode: c.DevMode, Tolerance: c.Session.Tolerance}
}

// WebhookConfig returns the webhook consumer settings.
func (c Config) WebhookConfig() webhook.Config {
	return webhook.Config{Secret: c.Webhook.Secret, DevSecret: c.Webhook.DevSecret}
}

// LoggingConfig returns the logger settings.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	cfg.Service = "content-proxy"
	return cfg
}
