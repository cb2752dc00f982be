// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Export   ExportConfig   `mapstructure:"export"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	History  HistoryConfig  `mapstructure:"history"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CacheConfig points at the shared progress cache. An empty RedisURL runs
// the store fallback-only.
type CacheConfig struct {
	RedisURL   string `mapstructure:"redis_url"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// SearchConfig governs fetch behavior and the mode decision.
type SearchConfig struct {
	Sites                []string `mapstructure:"sites"`
	BoardURL             string   `mapstructure:"board_url"`
	UserAgent            string   `mapstructure:"user_agent"`
	DefaultResultsWanted int      `mapstructure:"default_results_wanted"`
	DefaultLocation      string   `mapstructure:"default_location"`
	DefaultCountry       string   `mapstructure:"default_country"`
	HoursOld             int      `mapstructure:"hours_old"`
	BackgroundThreshold  int      `mapstructure:"background_threshold"`
	DescriptionMaxLen    int      `mapstructure:"description_max_length"`
	RequestsPerSecond    float64  `mapstructure:"requests_per_second"`
}

// AnalysisConfig controls the optional analysis phase.
type AnalysisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	Model        string `mapstructure:"model"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchPauseMs int    `mapstructure:"batch_pause_ms"`
}

// ExportConfig selects the blob store backend for result files.
type ExportConfig struct {
	// Backend is one of "local", "gcs", "noop".
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// NotifyConfig holds metadata for completion notifications.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// HistoryConfig controls search history persistence. An empty DSN disables it.
type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("search.sites", []string{"indeed", "linkedin"})
	v.SetDefault("search.user_agent", "jobsearch-bot/0.1")
	v.SetDefault("search.default_results_wanted", 20)
	v.SetDefault("search.default_location", "Remote")
	v.SetDefault("search.default_country", "USA")
	v.SetDefault("search.hours_old", 72)
	v.SetDefault("search.background_threshold", 10)
	v.SetDefault("search.requests_per_second", 2.0)
	v.SetDefault("search.description_max_length", 500)
	v.SetDefault("analysis.enabled", false)
	v.SetDefault("analysis.batch_size", 10)
	v.SetDefault("analysis.batch_pause_ms", 100)
	v.SetDefault("export.backend", "local")
	v.SetDefault("export.local_dir", "job_results")
	v.SetDefault("notify.enabled", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.Search.DefaultResultsWanted <= 0 {
		return fmt.Errorf("search.default_results_wanted must be > 0")
	}
	if c.Search.BackgroundThreshold <= 0 {
		return fmt.Errorf("search.background_threshold must be > 0")
	}
	if c.Analysis.Enabled {
		if c.Analysis.OpenAIAPIKey == "" {
			return fmt.Errorf("analysis.openai_api_key must be set when analysis is enabled")
		}
		if c.Analysis.BatchSize <= 0 {
			return fmt.Errorf("analysis.batch_size must be > 0")
		}
	}
	switch c.Export.Backend {
	case "local":
		if c.Export.LocalDir == "" {
			return fmt.Errorf("export.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set for the gcs backend")
		}
	case "noop":
	default:
		return fmt.Errorf("export.backend must be one of local, gcs, noop")
	}
	if c.Notify.Enabled && (c.Notify.ProjectID == "" || c.Notify.TopicName == "") {
		return fmt.Errorf("notify.project_id and notify.topic_name must be set when notify is enabled")
	}
	return nil
}

// CacheTTL returns the progress record TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// BatchPause returns the courtesy delay between analysis batches.
func (c Config) BatchPause() time.Duration {
	return time.Duration(c.Analysis.BatchPauseMs) * time.Millisecond
}
