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
	Mission  MissionConfig  `mapstructure:"mission"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	GenAI    GenAIConfig    `mapstructure:"genai"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MissionConfig describes the crawl goal and its starting points.
type MissionConfig struct {
	Goal               string   `mapstructure:"goal"`
	SeedURLs           []string `mapstructure:"seed_urls"`
	SeedPriority       float64  `mapstructure:"seed_priority"`
	RelevanceThreshold float64  `mapstructure:"relevance_threshold"`
}

// SafetyConfig is the externally supplied fetch policy.
type SafetyConfig struct {
	UserAgent          string          `mapstructure:"user_agent"`
	ForbiddenFileTypes []string        `mapstructure:"forbidden_file_types"`
	BlockedHosts       []string        `mapstructure:"blocked_hosts"`
	RateLimits         RateLimitConfig `mapstructure:"rate_limits"`
	RespectRobots      bool            `mapstructure:"respect_robots"`
}

// RateLimitConfig expresses a per-host fixed window request budget.
type RateLimitConfig struct {
	RequestsPerInterval int `mapstructure:"requests_per_interval"`
	IntervalSeconds     int `mapstructure:"interval_seconds"`
}

// HTTPConfig bounds outbound request behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the optional headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// CrawlerConfig governs the agent worker pool.
type CrawlerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	IdlePollMs  int `mapstructure:"idle_poll_ms"`
}

// DBConfig controls access to the relational archive. An empty DSN selects the
// in-memory stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for outbound queues. An empty project selects
// the in-memory recording queue.
type PubSubConfig struct {
	ProjectID      string `mapstructure:"project_id"`
	KnowledgeTopic string `mapstructure:"knowledge_topic"`
}

// SnapshotConfig sets the raw HTML snapshot destination. An empty bucket
// selects the in-memory snapshot store.
type SnapshotConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// GenAIConfig selects the model backing the relevance and diff capabilities.
// An empty model selects the deterministic fallbacks. The API key is usually
// supplied via SENTRY_GENAI_API_KEY rather than the config file.
type GenAIConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTRY")
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
	v.SetDefault("mission.seed_priority", 1.0)
	v.SetDefault("mission.relevance_threshold", 0.5)
	v.SetDefault("safety.user_agent", "sitesentry-bot/0.1")
	v.SetDefault("safety.forbidden_file_types", []string{
		"application/pdf",
		"application/zip",
		"application/octet-stream",
	})
	v.SetDefault("safety.rate_limits.requests_per_interval", 10)
	v.SetDefault("safety.rate_limits.interval_seconds", 60)
	v.SetDefault("safety.respect_robots", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.idle_poll_ms", 500)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.knowledge_topic", "knowledge-intake")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Mission.Goal == "" {
		return fmt.Errorf("mission.goal is required")
	}
	if c.Mission.RelevanceThreshold < 0 || c.Mission.RelevanceThreshold > 1 {
		return fmt.Errorf("mission.relevance_threshold must be in [0, 1]")
	}
	if c.Safety.UserAgent == "" {
		return fmt.Errorf("safety.user_agent is required")
	}
	if c.Safety.RateLimits.RequestsPerInterval <= 0 {
		return fmt.Errorf("safety.rate_limits.requests_per_interval must be > 0")
	}
	if c.Safety.RateLimits.IntervalSeconds <= 0 {
		return fmt.Errorf("safety.rate_limits.interval_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.GenAI.Model != "" && c.GenAI.APIKey == "" {
		return fmt.Errorf("genai.api_key is required when genai.model is set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// IdlePoll is how long a worker sleeps when the frontier is empty.
func (c Config) IdlePoll() time.Duration {
	return time.Duration(c.Crawler.IdlePollMs) * time.Millisecond
}
