package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata" // Africa/Luanda on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the agregador service.
type Config struct {
	Storage   StorageConfig
	HTTP      HTTPConfig
	Schedule  ScheduleConfig
	Pipeline  PipelineConfig
	Collector CollectorConfig
	Lock      LockConfig
	Mail      MailConfig
	Sources   []SourceConfig
}

// StorageConfig selects the backing store.
type StorageConfig struct {
	Driver      string // "sqlite" or "postgres"
	Path        string // sqlite file
	DatabaseURL string // postgres connection string
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ScheduleConfig holds standard 5-field cron specs for the daemon.
type ScheduleConfig struct {
	Aggregate  string
	Sweep      string
	RunOnStart bool
}

// PipelineConfig controls listing normalization and scheduling defaults.
type PipelineConfig struct {
	DefaultInterval time.Duration  // for sources stored without one
	ListingTTL      time.Duration  // expiry when a listing carries no date
	DefaultProvince string         // empty: unmatched locations are skipped
	Timezone        string
	Location        *time.Location // loaded from Timezone
	UserAgent       string
}

// CollectorConfig controls outbound fetching.
type CollectorConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MinDelay   time.Duration // minimum gap between requests to the same host
	Timeout    time.Duration // per-request timeout
}

// LockConfig enables the Redis run lock when RedisURL is set.
type LockConfig struct {
	RedisURL string
	TTL      time.Duration
}

// MailConfig controls which mailer delivers notification emails.
type MailConfig struct {
	Type    string `yaml:"type"` // "log" or "resend"
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
	BaseURL string `yaml:"base_url"`
}

// SourceConfig is a source declared in the config file, created in the
// registry by "fontes sync" when no source with the same name exists.
type SourceConfig struct {
	Name     string
	Type     string
	URL      string
	Interval time.Duration
	Settings map[string]any
}

const (
	defaultUserAgent = "agregador/1.0 (+https://agregador.ao)"
	defaultTimezone  = "Africa/Luanda"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Storage   rawStorageConfig   `yaml:"storage"`
	HTTP      rawHTTPConfig      `yaml:"http"`
	Schedule  rawScheduleConfig  `yaml:"schedule"`
	Pipeline  rawPipelineConfig  `yaml:"pipeline"`
	Collector rawCollectorConfig `yaml:"collector"`
	Lock      rawLockConfig      `yaml:"lock"`
	Mail      MailConfig         `yaml:"mail"`
	Sources   []rawSourceConfig  `yaml:"sources"`
}

type rawStorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

type rawHTTPConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

type rawScheduleConfig struct {
	Aggregate  string `yaml:"aggregate"`
	Sweep      string `yaml:"sweep"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type rawPipelineConfig struct {
	DefaultInterval string  `yaml:"default_interval"`
	ListingTTL      string  `yaml:"listing_ttl"`
	DefaultProvince *string `yaml:"default_province"`
	Timezone        string  `yaml:"timezone"`
	UserAgent       string  `yaml:"user_agent"`
}

type rawCollectorConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
	MinDelay   string `yaml:"min_delay"`
	Timeout    string `yaml:"timeout"`
}

type rawLockConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

type rawSourceConfig struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	URL      string         `yaml:"url"`
	Interval string         `yaml:"interval"`
	Settings map[string]any `yaml:"config"`
}

// envOverrides are applied after the file; deployments set secrets and
// addresses this way.
type envOverrides struct {
	DatabaseURL  string `env:"AGREGADOR_DATABASE_URL"`
	RedisURL     string `env:"AGREGADOR_REDIS_URL"`
	HTTPAddr     string `env:"AGREGADOR_HTTP_ADDR"`
	ResendAPIKey string `env:"AGREGADOR_RESEND_API_KEY"`
}

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads and parses the YAML config file at path, applies environment
// overrides, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	var over envOverrides
	if err := env.Parse(&over); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	applyOverrides(cfg, over)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	cfg.Pipeline.Location, err = time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pipeline.timezone %q: %w", cfg.Pipeline.Timezone, err)
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Driver:      orDefault(raw.Storage.Driver, "sqlite"),
			Path:        orDefault(raw.Storage.Path, "agregador.db"),
			DatabaseURL: raw.Storage.DatabaseURL,
		},
		HTTP: HTTPConfig{Addr: orDefault(raw.HTTP.Addr, ":8080")},
		Schedule: ScheduleConfig{
			Aggregate:  orDefault(raw.Schedule.Aggregate, "0 */6 * * *"),
			Sweep:      orDefault(raw.Schedule.Sweep, "30 0 * * *"),
			RunOnStart: raw.Schedule.RunOnStart,
		},
		Pipeline: PipelineConfig{
			DefaultProvince: "Luanda",
			Timezone:        orDefault(raw.Pipeline.Timezone, defaultTimezone),
			UserAgent:       orDefault(raw.Pipeline.UserAgent, defaultUserAgent),
		},
		Collector: CollectorConfig{MaxRetries: 3},
		Lock:      LockConfig{RedisURL: raw.Lock.RedisURL},
		Mail:      raw.Mail,
	}
	if raw.Pipeline.DefaultProvince != nil {
		cfg.Pipeline.DefaultProvince = *raw.Pipeline.DefaultProvince
	}
	if raw.Collector.MaxRetries != nil {
		cfg.Collector.MaxRetries = *raw.Collector.MaxRetries
	}
	if cfg.Mail.Type == "" {
		cfg.Mail.Type = "log"
	}

	durations := []struct {
		field string
		raw   string
		def   time.Duration
		dst   *time.Duration
	}{
		{"http.read_timeout", raw.HTTP.ReadTimeout, 15 * time.Second, &cfg.HTTP.ReadTimeout},
		{"http.write_timeout", raw.HTTP.WriteTimeout, 10 * time.Minute, &cfg.HTTP.WriteTimeout},
		{"pipeline.default_interval", raw.Pipeline.DefaultInterval, 24 * time.Hour, &cfg.Pipeline.DefaultInterval},
		{"pipeline.listing_ttl", raw.Pipeline.ListingTTL, 30 * 24 * time.Hour, &cfg.Pipeline.ListingTTL},
		{"collector.base_delay", raw.Collector.BaseDelay, 2 * time.Second, &cfg.Collector.BaseDelay},
		{"collector.min_delay", raw.Collector.MinDelay, 2 * time.Second, &cfg.Collector.MinDelay},
		{"collector.timeout", raw.Collector.Timeout, 30 * time.Second, &cfg.Collector.Timeout},
		{"lock.ttl", raw.Lock.TTL, 30 * time.Minute, &cfg.Lock.TTL},
	}
	for _, d := range durations {
		v, err := parseDuration(d.field, d.raw, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	for i, rs := range raw.Sources {
		interval, err := parseDuration(fmt.Sprintf("sources[%d].interval", i), rs.Interval, 0)
		if err != nil {
			return nil, err
		}
		cfg.Sources = append(cfg.Sources, SourceConfig{
			Name:     rs.Name,
			Type:     rs.Type,
			URL:      rs.URL,
			Interval: interval,
			Settings: rs.Settings,
		})
	}
	return cfg, nil
}

func applyOverrides(cfg *Config, over envOverrides) {
	if over.DatabaseURL != "" {
		cfg.Storage.DatabaseURL = over.DatabaseURL
	}
	if over.RedisURL != "" {
		cfg.Lock.RedisURL = over.RedisURL
	}
	if over.HTTPAddr != "" {
		cfg.HTTP.Addr = over.HTTPAddr
	}
	if over.ResendAPIKey != "" {
		cfg.Mail.APIKey = over.ResendAPIKey
	}
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url (or AGREGADOR_DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Storage.Driver)
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Aggregate); err != nil {
		return fmt.Errorf("schedule.aggregate %q: %w", cfg.Schedule.Aggregate, err)
	}
	if _, err := cron.ParseStandard(cfg.Schedule.Sweep); err != nil {
		return fmt.Errorf("schedule.sweep %q: %w", cfg.Schedule.Sweep, err)
	}

	if cfg.Pipeline.DefaultInterval <= 0 {
		return fmt.Errorf("pipeline.default_interval must be positive, got %v", cfg.Pipeline.DefaultInterval)
	}
	if cfg.Pipeline.ListingTTL < 24*time.Hour {
		return fmt.Errorf("pipeline.listing_ttl must be at least 24h, got %v", cfg.Pipeline.ListingTTL)
	}

	if cfg.Collector.MaxRetries < 0 {
		return fmt.Errorf("collector.max_retries must not be negative, got %d", cfg.Collector.MaxRetries)
	}
	if cfg.Collector.Timeout <= 0 {
		return fmt.Errorf("collector.timeout must be positive, got %v", cfg.Collector.Timeout)
	}

	switch cfg.Mail.Type {
	case "log":
	case "resend":
		if cfg.Mail.APIKey == "" {
			return fmt.Errorf("mail.api_key is required when type is \"resend\"")
		}
		if cfg.Mail.From == "" {
			return fmt.Errorf("mail.from is required when type is \"resend\"")
		}
	default:
		return fmt.Errorf("mail.type must be \"log\" or \"resend\", got %q", cfg.Mail.Type)
	}

	for i, s := range cfg.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("sources[%d]: name and url are required", i)
		}
	}
	return nil
}
