package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	PublishersFile string `mapstructure:"publishers_file"`

	GeminiAPIKey        string        `mapstructure:"gemini_api_key"`
	GeminiModel         string        `mapstructure:"gemini_model"`
	ModelTemperature    float64       `mapstructure:"model_temperature"`
	ModelTimeoutSeconds int64         `mapstructure:"model_timeout_seconds"`
	ModelMaxAttempts    int           `mapstructure:"model_max_attempts"`
	ModelTimeout        time.Duration `mapstructure:"-"`

	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`

	DatabaseURL string `mapstructure:"database_url"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	Origins []string `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "wikiquiz")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8001)
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("publishers_file", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("model_temperature", 0.2)
	v.SetDefault("model_timeout_seconds", 60)
	v.SetDefault("model_max_attempts", 2)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("database_url", "")
	v.SetDefault("bbolt_path", "./data/quizzes.db")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.ModelTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid model_timeout_seconds (must be positive seconds)")
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	if cfg.ModelTemperature < 0 || cfg.ModelTemperature > 2 {
		return nil, fmt.Errorf("invalid model_temperature %v (must be between 0 and 2)", cfg.ModelTemperature)
	}
	if cfg.ModelMaxAttempts <= 0 {
		cfg.ModelMaxAttempts = 1
	}
	cfg.ModelTimeout = time.Duration(cfg.ModelTimeoutSeconds) * time.Second
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	origins, err := parseOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	cfg.Origins = origins
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)

	return &cfg, nil
}

// parseOrigins splits the comma separated allow-list. Credentialed CORS cannot use "*".
func parseOrigins(raw string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return nil, fmt.Errorf("allowed_origins must list explicit origins; wildcard is not allowed with credentials")
		}
		out = append(out, strings.TrimRight(origin, "/"))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("allowed_origins must contain at least one origin")
	}
	return out, nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ModelConfigured reports whether a generative-model credential is present.
func (c *Config) ModelConfigured() bool {
	return c != nil && c.GeminiAPIKey != ""
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.GeminiAPIKey != "" {
		c.GeminiAPIKey = "***"
	}
	if c.DatabaseURL != "" {
		c.DatabaseURL = redactDSN(c.DatabaseURL)
	}
	return c
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
