package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the Apex assistant service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Solver    SolverConfig    `mapstructure:"solver"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Warmer    WarmerConfig    `mapstructure:"warmer"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains language-model provider configuration.
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration.
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai, anthropic, local, etc.
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration.
type LLMModel struct {
	Name        string  `mapstructure:"name"`
	APIName     string  `mapstructure:"api_name"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LLMRoutingConfig defines which model alias to use for each stage of a solve.
type LLMRoutingConfig struct {
	Planning     string `mapstructure:"planning"`
	Verification string `mapstructure:"verification"`
	Reasoning    string `mapstructure:"reasoning"`
	Synthesis    string `mapstructure:"synthesis"`
	Fallback     string `mapstructure:"fallback"`
}

// SolverConfig bounds a single solve invocation.
type SolverConfig struct {
	MaxSteps     int           `mapstructure:"max_steps"`
	MaxSolveTime time.Duration `mapstructure:"max_solve_time"`
	StallLimit   int           `mapstructure:"stall_limit"`
	ToolTimeout  time.Duration `mapstructure:"tool_timeout"`
	LLMTimeout   time.Duration `mapstructure:"llm_timeout"`
	RowLimit     int           `mapstructure:"row_limit"`
	Verbose      bool          `mapstructure:"verbose"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a connection string from either the URL or the discrete fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.url or host/dbname)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WarmerConfig drives the background analytics warmer.
type WarmerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"` // cron expression
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// LoadConfig loads configuration from file with env overrides (APEX_*).
// An absent config file is not an error; env and defaults carry a dev setup.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.address", ":8090")
	v.SetDefault("solver.max_steps", 10)
	v.SetDefault("solver.max_solve_time", 5*time.Minute)
	v.SetDefault("solver.stall_limit", 2)
	v.SetDefault("solver.tool_timeout", 30*time.Second)
	v.SetDefault("solver.llm_timeout", 30*time.Second)
	v.SetDefault("solver.row_limit", 100)
	v.SetDefault("storage.redis.cache_ttl", 5*time.Minute)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("warmer.enabled", false)
	v.SetDefault("warmer.schedule", "*/15 * * * *")
	v.SetDefault("warmer.lock_ttl", 2*time.Minute)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("APEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Solver.MaxSteps <= 0 {
		cfg.Solver.MaxSteps = 10
	}
	if cfg.Solver.StallLimit <= 0 {
		cfg.Solver.StallLimit = 2
	}
	return &cfg, nil
}
