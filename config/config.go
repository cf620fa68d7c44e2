// Package config loads service configuration from an optional YAML file and
// BLACKGPT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BLACKGPT"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Connectors ConnectorsConfig `mapstructure:"connectors"`
	Cache      CacheConfig      `mapstructure:"cache"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Events     EventsConfig     `mapstructure:"events"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

// ConnectorGrace is how long the aggregator waits past connectors.timeout
// before it gives up on a source that ignores its context.
const ConnectorGrace = 2 * time.Second

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Debug exposes internal error details in responses.
	Debug bool `mapstructure:"debug"`
	// ShutdownTimeout is a floor; serve waits at least CorrelationBudget.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | postgres
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File, when set, receives a JSON copy of every record.
	File string `mapstructure:"file"`
}

type ConnectorsConfig struct {
	DemoMode      bool          `mapstructure:"demo_mode"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	NewsAPI       NewsAPIConfig `mapstructure:"newsapi"`
	Reddit        RedditConfig  `mapstructure:"reddit"`
	CoinGecko     CoinGecko     `mapstructure:"coingecko"`
}

type NewsAPIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type RedditConfig struct {
	ClientID  string `mapstructure:"client_id"`
	UserAgent string `mapstructure:"user_agent"`
	BaseURL   string `mapstructure:"base_url"`
}

type CoinGecko struct {
	BaseURL string `mapstructure:"base_url"`
}

type CacheConfig struct {
	Type  string      `mapstructure:"type"` // none | memory | redis
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	Type          string `mapstructure:"type"` // none | nats
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// JobsConfig controls correlation job housekeeping. An IN_PROGRESS job older
// than StaleAfter is assumed abandoned and marked FAILED.
type JobsConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type TracingConfig struct {
	Exporter    string `mapstructure:"exporter"` // none | stdout
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "blackgpt.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1")
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("connectors.demo_mode", true)
	v.SetDefault("connectors.timeout", 10*time.Second)
	v.SetDefault("connectors.rate_per_second", 2.0)
	v.SetDefault("connectors.cache_ttl", 5*time.Minute)
	v.SetDefault("connectors.newsapi.base_url", "https://newsapi.org/v2")
	v.SetDefault("connectors.reddit.base_url", "https://www.reddit.com")
	v.SetDefault("connectors.reddit.user_agent", "BlackGPT:v1.0.0")
	v.SetDefault("connectors.coingecko.base_url", "https://api.coingecko.com/api/v3")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis.addr", "localhost:6379")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("events.type", "none")
	v.SetDefault("events.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject_prefix", "blackgpt.signals")

	v.SetDefault("jobs.stale_after", 10*time.Minute)

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.service_name", "blackgpt")
}

// Load reads configPath (optional) and the environment. An empty path means
// defaults plus environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	expandSecrets(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandSecrets resolves ${VAR} placeholders in credential fields.
func expandSecrets(cfg *Config) {
	for _, field := range []*string{
		&cfg.Connectors.NewsAPI.APIKey,
		&cfg.Connectors.Reddit.ClientID,
		&cfg.LLM.APIKey,
		&cfg.Cache.Redis.Password,
		&cfg.Database.DSN,
	} {
		*field = expandEnv(*field)
	}
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}"))
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Cache.Type {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.type must be none, memory or redis, got %q", c.Cache.Type)
	}
	switch c.Events.Type {
	case "", "none", "nats":
	default:
		return fmt.Errorf("events.type must be none or nats, got %q", c.Events.Type)
	}
	if c.Connectors.Timeout <= 0 {
		return fmt.Errorf("connectors.timeout must be positive")
	}
	if budget := c.CorrelationBudget(); c.Jobs.StaleAfter <= budget {
		return fmt.Errorf("jobs.stale_after (%s) must exceed the longest correlation run (%s)", c.Jobs.StaleAfter, budget)
	}
	return nil
}

// CorrelationBudget is the longest one correlation run can take: the slowest
// connector plus the summary and contradiction calls.
func (c *Config) CorrelationBudget() time.Duration {
	return c.Connectors.Timeout + ConnectorGrace + 2*c.LLM.Timeout
}
