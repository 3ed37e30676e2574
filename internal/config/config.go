package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Seoul"
	defaultStateDir = "data"

	configPathEnv    = "NEWSWATCH_CONFIG"
	timezoneEnv      = "TIMEZONE"
	modeEnv          = "MODE"
	slackWebhookEnv  = "SLACK_WEBHOOK"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
	geminiModelEnv   = "GEMINI_MODEL"
	stateDirEnv      = "NEWSWATCH_STATE_DIR"
	enrichEnabledEnv = "ENRICH_ENABLED"
)

// Run modes.
const (
	ModeFullWindow  = "full-window"
	ModeIncremental = "incremental"
)

// Config holds all settings required across the application.
type Config struct {
	Timezone   string           `yaml:"timezone"`
	Mode       string           `yaml:"mode"`
	StateDir   string           `yaml:"stateDir"`
	Feeds      []FeedConfig     `yaml:"feeds"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Slack      SlackConfig      `yaml:"slack"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Digest     DigestConfig     `yaml:"digest"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Logging    LoggingConfig    `yaml:"logging"`

	location *time.Location `yaml:"-"`
}

// FeedConfig names one syndicated source.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FetchConfig bounds the fetch stage.
type FetchConfig struct {
	PerFeedCap int `yaml:"perFeedCap"`
}

// SlackConfig wires the delivery destination; an empty webhook disables
// delivery and falls back to local preview.
type SlackConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`
}

// EnrichmentConfig bounds the enrichment stage per run.
type EnrichmentConfig struct {
	Enabled   bool     `yaml:"enabled"`
	MaxItems  int      `yaml:"maxItems"`
	CallDelay Duration `yaml:"callDelay"`
}

// DigestConfig controls rendering.
type DigestConfig struct {
	MaxItems int `yaml:"maxItems"`
}

// DeliveryConfig controls chunked dispatch.
type DeliveryConfig struct {
	FirstItems int      `yaml:"firstItems"`
	ChunkItems int      `yaml:"chunkItems"`
	SendDelay  Duration `yaml:"sendDelay"`
}

// ScheduleConfig holds cron expressions per mode; when Enabled is false
// the process performs a single run and exits (external trigger cadence).
type ScheduleConfig struct {
	Enabled         bool   `yaml:"enabled"`
	FullWindowCron  string `yaml:"fullWindowCron"`
	IncrementalCron string `yaml:"incrementalCron"`
}

// LoggingConfig selects console verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Location resolves the reporting timezone.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads an optional .env file, the YAML configuration (if present),
// applies environment overrides, and validates the result. Validation
// failure is fatal: misconfiguration must abort before any state mutation.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v (continuing)", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(timezoneEnv); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(modeEnv); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(slackWebhookEnv); v != "" {
		c.Slack.WebhookURL = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(stateDirEnv); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv(enrichEnabledEnv); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Enrichment.Enabled = parsed
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.location = loc
}

func (c Config) validate() error {
	if len(c.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	for _, f := range c.Feeds {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("feed entry missing name or url: %+v", f)
		}
	}
	if c.Mode != ModeFullWindow && c.Mode != ModeIncremental {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Enrichment.Enabled && c.Gemini.APIKey == "" {
		return errors.New("enrichment enabled but GEMINI_API_KEY is not set")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Timezone: defaultTimezone,
		Mode:     ModeIncremental,
		StateDir: defaultStateDir,
		Fetch:    FetchConfig{PerFeedCap: 50},
		Gemini: GeminiConfig{
			Model: "gemini-1.5-flash",
		},
		Enrichment: EnrichmentConfig{
			Enabled:   false,
			MaxItems:  20,
			CallDelay: Duration(time.Second),
		},
		Digest: DigestConfig{MaxItems: 30},
		Delivery: DeliveryConfig{
			FirstItems: 10,
			ChunkItems: 10,
			SendDelay:  Duration(1500 * time.Millisecond),
		},
		Schedule: ScheduleConfig{
			Enabled:         false,
			FullWindowCron:  "0 7 * * *",
			IncrementalCron: "*/20 * * * *",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
