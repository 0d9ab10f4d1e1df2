package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querypilot-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords,
// API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Default datasource connection. Per-request connection overrides take
	// precedence; this is the fallback when a request carries none.
	Database DatabaseConfig `yaml:"database"`

	// LLM generation provider
	LLM LLMConfig `yaml:"llm"`

	// Embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Safety gates applied to generated SQL
	Safety SafetyConfig `yaml:"safety"`

	// Redis cache backend (optional - absence falls back to in-process cache)
	Redis RedisConfig `yaml:"redis"`
}

// DatabaseConfig holds the default datasource connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"DB_USER" env-default:"root"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DB_DATABASE" env-default:""`
	Family   string `yaml:"family" env:"DB_FAMILY" env-default:"mysql"` // mysql | postgres
}

// LLMConfig selects the generation provider and model.
type LLMConfig struct {
	// Provider is "openai" for any OpenAI-compatible endpoint (OpenAI, Groq,
	// Ollama, vLLM) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// TimeoutSeconds bounds each generation call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"120"`
}

// EmbeddingConfig selects the embedding provider and model. The same
// provider/model must be used for ingestion and for every query against
// that ingestion's index; mixing embedding spaces makes cosine similarity
// meaningless.
type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey   string `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
	// TimeoutSeconds bounds each embedding call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"EMBEDDING_TIMEOUT_SECONDS" env-default:"60"`
}

// SafetyConfig holds the validation gates applied to generated SQL.
type SafetyConfig struct {
	// ReadOnly forbids mutating SQL keywords anywhere in a statement.
	ReadOnly bool `yaml:"read_only" env:"READ_ONLY" env-default:"true"`
	// MaxRowsLimit caps LIMIT clauses and is injected when absent.
	MaxRowsLimit int `yaml:"max_rows_limit" env:"MAX_ROWS_LIMIT" env-default:"1000"`
}

// RedisConfig holds the optional durable cache backend. An empty Host
// selects the in-process fallback store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"username" env:"REDIS_USERNAME" env-default:"default"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. When config.yaml is absent, environment variables alone
// are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Family {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database family %q (expected mysql or postgres)", c.Database.Family)
	}
	if c.Safety.MaxRowsLimit <= 0 {
		return fmt.Errorf("max_rows_limit must be positive, got %d", c.Safety.MaxRowsLimit)
	}
	return nil
}
