// Package config loads process configuration from defaults, an optional
// YAML file and ELDERCARE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"eldercare-mcp/internal/logging"
)

const EnvPrefix = "ELDERCARE"

// Store backends.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Summary providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStatic    = "static"
	ProviderNone      = "none"
)

type Config struct {
	Log     logging.Config `mapstructure:"log" yaml:"log"`
	Store   StoreConfig    `mapstructure:"store" yaml:"store"`
	Redis   RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Broker  BrokerConfig   `mapstructure:"broker" yaml:"broker"`
	Board   BoardConfig    `mapstructure:"board" yaml:"board"`
	TextGen TextGenConfig  `mapstructure:"textgen" yaml:"textgen"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
}

type BrokerConfig struct {
	PersistTimeout time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`
	MaxChainDepth  int           `mapstructure:"max_chain_depth" yaml:"max_chain_depth"`
	// Tap mirrors every record onto the Redis event bus.
	Tap bool `mapstructure:"tap" yaml:"tap"`
}

type BoardConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type TextGenConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	MaxTokens   int64         `mapstructure:"max_tokens" yaml:"max_tokens"`
	// StaticText is the answer of the static provider.
	StaticText string `mapstructure:"static_text" yaml:"static_text"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", "eldercare.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("broker.persist_timeout", 5*time.Second)
	v.SetDefault("broker.max_chain_depth", 32)
	v.SetDefault("broker.tap", false)
	v.SetDefault("board.enabled", false)
	v.SetDefault("textgen.provider", ProviderOpenAI)
	v.SetDefault("textgen.model", "")
	v.SetDefault("textgen.api_key", "")
	v.SetDefault("textgen.base_url", "")
	v.SetDefault("textgen.timeout", 10*time.Second)
	v.SetDefault("textgen.max_attempts", 2)
	v.SetDefault("textgen.max_tokens", 256)
	v.SetDefault("textgen.static_text", "")
}

// Load reads configuration. An empty path uses defaults and environment
// only; a non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverRedis, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of sqlite, redis, memory", c.Store.Driver))
	}
	switch c.TextGen.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderStatic, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("textgen.provider %q is not one of openai, anthropic, static, none", c.TextGen.Provider))
	}
	if c.TextGen.MaxAttempts < 1 {
		errs = append(errs, errors.New("textgen.max_attempts must be at least 1"))
	}
	if c.Broker.MaxChainDepth < 0 {
		errs = append(errs, errors.New("broker.max_chain_depth must not be negative"))
	}
	if c.Broker.PersistTimeout < 0 || c.TextGen.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store.Driver == DriverRedis || c.Broker.Tap || c.Board.Enabled
}

// RedisOptions returns client options for every Redis-backed component.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{Addr: c.Redis.Addr, DB: c.Redis.DB, Password: c.Redis.Password}
}

// YAML renders the effective configuration with secrets masked.
func (c Config) YAML() ([]byte, error) {
	if c.TextGen.APIKey != "" {
		c.TextGen.APIKey = "****"
	}
	if c.Redis.Password != "" {
		c.Redis.Password = "****"
	}
	return yaml.Marshal(c)
}
