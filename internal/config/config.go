package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	HIBP       HIBPConfig       `yaml:"hibp" mapstructure:"hibp"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Social     SocialConfig     `yaml:"social" mapstructure:"social"`
	Companies  CompaniesConfig  `yaml:"companies" mapstructure:"companies"`
	Brokers    BrokersConfig    `yaml:"brokers" mapstructure:"brokers"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for document extraction.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// HIBPConfig holds breach-lookup settings.
type HIBPConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMs    int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// GeocodeConfig holds geocoder credentials and limits.
type GeocodeConfig struct {
	MapboxToken   string  `yaml:"mapbox_token" mapstructure:"mapbox_token"`
	GoogleKey     string  `yaml:"google_key" mapstructure:"google_key"`
	MapboxBaseURL string  `yaml:"mapbox_base_url" mapstructure:"mapbox_base_url"`
	GoogleBaseURL string  `yaml:"google_base_url" mapstructure:"google_base_url"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheSize     int     `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MissTTLMins   int     `yaml:"miss_ttl_mins" mapstructure:"miss_ttl_mins"`
}

// SocialConfig holds social verification settings.
type SocialConfig struct {
	GitHubToken   string `yaml:"github_token" mapstructure:"github_token"`
	GitHubBaseURL string `yaml:"github_base_url" mapstructure:"github_base_url"`
	RedditBaseURL string `yaml:"reddit_base_url" mapstructure:"reddit_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CompaniesConfig holds company registry settings.
type CompaniesConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BrokersConfig points at an optional broker catalog overriding the embedded one.
type BrokersConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ExtractionConfig configures document extraction jobs.
type ExtractionConfig struct {
	MaxChars       int      `yaml:"max_chars" mapstructure:"max_chars"`
	JobTimeoutSecs int      `yaml:"job_timeout_secs" mapstructure:"job_timeout_secs"`
	PdfToTextPath  string   `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	Extensions     []string `yaml:"extensions" mapstructure:"extensions"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// EnrichmentConfig configures orchestrator runs.
type EnrichmentConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SessionConfig configures profile persistence.
type SessionConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentSubjects int `yaml:"max_concurrent_subjects" mapstructure:"max_concurrent_subjects"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "profiles.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_subjects", 4)

	// Secrets have empty defaults so AutomaticEnv picks them up on Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.max_retries", 2)
	v.SetDefault("anthropic.timeout_secs", 120)

	v.SetDefault("hibp.key", "")
	v.SetDefault("hibp.base_url", "https://haveibeenpwned.com/api/v3")
	v.SetDefault("hibp.min_interval_ms", 1500)
	v.SetDefault("hibp.timeout_secs", 15)
	v.SetDefault("hibp.max_attempts", 1)
	v.SetDefault("hibp.initial_backoff_ms", 2000)

	v.SetDefault("geocode.mapbox_token", "")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.mapbox_base_url", "https://api.mapbox.com")
	v.SetDefault("geocode.google_base_url", "https://maps.googleapis.com")
	v.SetDefault("geocode.rate_limit", 5.0)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.cache_size", 4096)
	v.SetDefault("geocode.cache_ttl_hours", 24)
	v.SetDefault("geocode.miss_ttl_mins", 60)

	v.SetDefault("social.github_token", "")
	v.SetDefault("social.github_base_url", "https://api.github.com")
	v.SetDefault("social.reddit_base_url", "https://www.reddit.com")
	v.SetDefault("social.timeout_secs", 10)

	v.SetDefault("companies.token", "")
	v.SetDefault("companies.base_url", "https://api.opencorporates.com/v0.4")

	v.SetDefault("brokers.catalog_path", "")

	v.SetDefault("extraction.max_chars", 100000)
	v.SetDefault("extraction.job_timeout_secs", 300)
	v.SetDefault("extraction.pdftotext_path", "pdftotext")
	v.SetDefault("extraction.extensions", []string{".pdf", ".docx", ".xlsx", ".txt", ".md", ".csv", ".json", ".html", ".htm", ".rtf"})
	v.SetDefault("extraction.max_upload_mb", 25)

	v.SetDefault("enrichment.timeout_secs", 600)
	v.SetDefault("session.debounce_ms", 1000)
}

// Validate checks the keys a command mode needs. Modes: extract, enrich,
// breach-check, batch, import, serve.
func (c *Config) Validate(mode string) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	storeChecks := func() {
		switch c.Store.Driver {
		case "postgres":
			check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
		case "sqlite":
			check(c.Store.SQLitePath != "", "store.sqlite_path is required for the sqlite driver")
		default:
			problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, postgres", c.Store.Driver))
		}
	}

	switch mode {
	case "extract":
		check(c.Anthropic.Key != "", "anthropic.key is required")
	case "enrich":
		storeChecks()
	case "breach-check":
		check(c.HIBP.Key != "", "hibp.key is required")
		check(c.HIBP.MinIntervalMs >= 0, "hibp.min_interval_ms must be >= 0")
	case "batch":
		storeChecks()
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Batch.MaxConcurrentSubjects >= 1 && c.Batch.MaxConcurrentSubjects <= 32,
			"batch.max_concurrent_subjects must be between 1 and 32")
	case "import":
		storeChecks()
	case "serve":
		storeChecks()
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Session.DebounceMs >= 0, "session.debounce_ms must be >= 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Extraction.MaxChars < 0 {
		problems = append(problems, "extraction.max_chars must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
