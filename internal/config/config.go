// Package config loads and validates application configuration.
//
// Sources, highest priority first:
//  1. Environment variables (CADDIE_* plus DATABASE_URL)
//  2. Config file (~/.caddie/config.yaml or $CADDIE_CONFIG)
//  3. Built-in defaults
//
// Sensitive values (database password, API keys) are never logged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate.
var (
	ErrInvalidProvider     = errors.New("invalid provider")
	ErrInvalidModelName    = errors.New("invalid model name")
	ErrInvalidEmbedder     = errors.New("invalid embedder model")
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
	ErrInvalidPostgresDB   = errors.New("invalid PostgreSQL database name")
	ErrInvalidMaxRounds    = errors.New("invalid max tool rounds")
	ErrInvalidParallelism  = errors.New("invalid tool parallelism")
	ErrInvalidTimeout      = errors.New("invalid backend timeout")
	ErrInvalidTopK         = errors.New("invalid similarity top-k")
	ErrInvalidHistoryLimit = errors.New("invalid history limit")
)

// Model provider identifiers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Orchestration defaults. MaxRounds guards against infinite tool-calling
// loops; ToolParallelism protects backend capacity.
const (
	DefaultMaxRounds       = 6
	DefaultToolParallelism = 8
	DefaultBackendTimeout  = 10 * time.Second
	DefaultHistoryLimit    = 14
	DefaultSimilarityTopK  = 5
)

// Config stores the full application configuration.
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen_addr"`

	// Model provider
	Provider      string  `mapstructure:"provider"`       // "openai" (default), "gemini", "ollama"
	ModelName     string  `mapstructure:"model_name"`     // e.g. "gpt-4.1-mini"
	Temperature   float64 `mapstructure:"temperature"`
	EmbedderModel string  `mapstructure:"embedder_model"` // e.g. "text-embedding-3-large"
	OllamaHost    string  `mapstructure:"ollama_host"`

	// Orchestration
	MaxRounds       int           `mapstructure:"max_rounds"`
	ToolParallelism int           `mapstructure:"tool_parallelism"`
	BackendTimeout  time.Duration `mapstructure:"backend_timeout"`
	HistoryLimit    int           `mapstructure:"history_limit"`
	SimilarityTopK  int           `mapstructure:"similarity_top_k"`

	// Storage (PostgreSQL)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Observability
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`

	// Logging
	LogJSON  bool   `mapstructure:"log_json"`
	LogLevel string `mapstructure:"log_level"` // "debug", "info", "warn", "error"
}

// Load reads configuration from defaults, file, and environment.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path := os.Getenv("CADDIE_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".caddie"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing config file is fine; defaults + env carry the service.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CADDIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "gpt-4.1-mini")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("embedder_model", "text-embedding-3-large")
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("max_rounds", DefaultMaxRounds)
	v.SetDefault("tool_parallelism", DefaultToolParallelism)
	v.SetDefault("backend_timeout", DefaultBackendTimeout)
	v.SetDefault("history_limit", DefaultHistoryLimit)
	v.SetDefault("similarity_top_k", DefaultSimilarityTopK)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "caddie")
	v.SetDefault("postgres_dbname", "caddie")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("tracing_enabled", false)
	v.SetDefault("otlp_endpoint", "localhost:4318")
	v.SetDefault("service_name", "caddie")

	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")
}

// Validate checks configuration invariants before serving.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Provider)
	}
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.EmbedderModel == "" {
		return ErrInvalidEmbedder
	}
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return ErrInvalidPostgresDB
	}
	if c.MaxRounds <= 0 || c.MaxRounds > 50 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRounds, c.MaxRounds)
	}
	if c.ToolParallelism <= 0 || c.ToolParallelism > 64 {
		return fmt.Errorf("%w: %d", ErrInvalidParallelism, c.ToolParallelism)
	}
	if c.BackendTimeout <= 0 || c.BackendTimeout > 5*time.Minute {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.BackendTimeout)
	}
	if c.SimilarityTopK <= 0 || c.SimilarityTopK > 50 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.SimilarityTopK)
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit > 1000 {
		return fmt.Errorf("%w: %d", ErrInvalidHistoryLimit, c.HistoryLimit)
	}
	return nil
}
