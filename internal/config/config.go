// Package config loads and validates snapshot configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendRTDB   = "rtdb"
	BackendGCS    = "gcs"
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Provider  string          `mapstructure:"provider"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FeedConfig describes where sections are fetched from.
type FeedConfig struct {
	URLTemplate    string   `mapstructure:"url_template"`
	Sections       []string `mapstructure:"sections"`
	Accept         string   `mapstructure:"accept"`
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	// RatePerSecond caps requests per feed host; zero disables the limiter.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
	// Timezone is an IANA name for the date key; empty means the host's local zone.
	Timezone string `mapstructure:"timezone"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	BaseURL    string `mapstructure:"base_url"`
	Collection string `mapstructure:"collection"`
	ByDate     bool   `mapstructure:"by_date"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	GCSPrefix  string `mapstructure:"gcs_prefix"`
	LocalDir   string `mapstructure:"local_dir"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the run ledger database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	ProjectID   string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DefaultSections are the feed sections captured by default.
var DefaultSections = []string{
	"guayaquil/comunidad",
	"noticias/ecuador",
	"noticias/internacional",
	"noticias/politica",
	"deportes/futbol",
	"noticias/economia",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SNAPSHOT")
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
	v.SetDefault("provider", "eluniverso")
	v.SetDefault("feed.url_template", "https://www.eluniverso.com/arc/outboundfeeds/rss-subsection/{section}/?outputType=xml")
	v.SetDefault("feed.sections", DefaultSections)
	v.SetDefault("feed.accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")
	v.SetDefault("feed.user_agent", "feed-snapshot/0.1")
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("feed.max_concurrency", 0)
	v.SetDefault("feed.timezone", "")
	v.SetDefault("feed.rate_per_second", 0)
	v.SetDefault("feed.rate_burst", 1)
	v.SetDefault("store.backend", BackendRTDB)
	v.SetDefault("store.base_url", "https://news-reader-2acd6-default-rtdb.firebaseio.com")
	v.SetDefault("store.collection", "eluniverso")
	v.SetDefault("store.by_date", true)
	v.SetDefault("store.local_dir", "snapshots")
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.table", "snapshot_runs")
	v.SetDefault("telemetry.service_name", "feed-snapshot")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Provider) == "" {
		return fmt.Errorf("provider is required")
	}
	if !strings.Contains(c.Feed.URLTemplate, "{section}") {
		return fmt.Errorf("feed.url_template must contain {section}")
	}
	if len(c.Feed.Sections) == 0 {
		return fmt.Errorf("feed.sections must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Feed.Sections))
	for _, s := range c.Feed.Sections {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("feed.sections must not contain blank entries")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("feed.sections contains duplicate %q", s)
		}
		seen[s] = struct{}{}
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be > 0")
	}
	if c.Feed.MaxConcurrency < 0 {
		return fmt.Errorf("feed.max_concurrency must be >= 0")
	}
	if c.Feed.RatePerSecond < 0 {
		return fmt.Errorf("feed.rate_per_second must be >= 0")
	}
	if c.Feed.RateBurst < 0 {
		return fmt.Errorf("feed.rate_burst must be >= 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if strings.Trim(c.Store.Collection, "/") == "" {
		return fmt.Errorf("store.collection is required")
	}
	switch c.Store.Backend {
	case BackendRTDB:
		if c.Store.BaseURL == "" {
			return fmt.Errorf("store.base_url is required for the rtdb backend")
		}
	case BackendGCS:
		if c.Store.GCSBucket == "" {
			return fmt.Errorf("store.gcs_bucket is required for the gcs backend")
		}
	case BackendLocal:
		if c.Store.LocalDir == "" {
			return fmt.Errorf("store.local_dir is required for the local backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of rtdb, gcs, local, memory", c.Store.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxOpenConns > 1000 {
		return fmt.Errorf("db.max_open_conns must be between 0 and 1000")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// FetchTimeout converts the per-request timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// Location resolves feed.timezone; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Feed.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Feed.Timezone)
	if err != nil {
		return nil, fmt.Errorf("feed.timezone: %w", err)
	}
	return loc, nil
}
