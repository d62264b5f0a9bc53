/*
config.go - Deployment configuration

PURPOSE:
  One Config for the server and the CLI, read with viper from (in order of
  precedence) LEAVE_* environment variables, a YAML file and defaults.
  Nested keys map to env names with "." -> "_":

    store.github.token  ->  LEAVE_STORE_GITHUB_TOKEN

EXAMPLE:
  store:
    backend: github
    github: {owner: acme, repo: leave-data, branch: data}
  holidays: {country: ES, region: MD}
  report: {locale: es, template: ./form.json}
  tracing: {enabled: true, endpoint: "otel-collector:4317", insecure: true}

SEE ALSO:
  - recordstore/backend: Opens the configured store
  - cmd/server/main.go: Flags and commands
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/recordstore"
	"github.com/warp/leave-register/report"
	"github.com/warp/leave-register/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEAVE"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendGitHub = "github"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Store    StoreConfig      `mapstructure:"store"`
	Holidays HolidaysConfig   `mapstructure:"holidays"`
	Report   ReportConfig     `mapstructure:"report"`
	Auth     AuthConfig       `mapstructure:"auth"`
	Log      LogConfig        `mapstructure:"log"`
	Tracing  telemetry.Config `mapstructure:"tracing"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Backend          string       `mapstructure:"backend"`
	DefaultTotalDays int          `mapstructure:"default_total_days"`
	SQLite           SQLiteConfig `mapstructure:"sqlite"`
	GitHub           GitHubConfig `mapstructure:"github"`
	S3               S3Config     `mapstructure:"s3"`
	Redis            RedisConfig  `mapstructure:"redis"`
	Retry            RetryConfig  `mapstructure:"retry"`
}

// SQLiteConfig is the local database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GitHubConfig is the repository used as remote store.
type GitHubConfig struct {
	APIURL        string  `mapstructure:"api_url"`
	Owner         string  `mapstructure:"owner"`
	Repo          string  `mapstructure:"repo"`
	Branch        string  `mapstructure:"branch"`
	Token         string  `mapstructure:"token"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// S3Config is the bucket used as remote store.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// RedisConfig is the Redis store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RetryConfig bounds retries of transient store failures.
type RetryConfig struct {
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// HolidaysConfig selects the regional ruleset.
type HolidaysConfig struct {
	Country string `mapstructure:"country"`
	Region  string `mapstructure:"region"`
	File    string `mapstructure:"file"`
}

// ReportConfig tunes the attendance form.
type ReportConfig struct {
	Locale          string          `mapstructure:"locale"`
	Stride          int             `mapstructure:"stride"`
	FirstPageOffset int             `mapstructure:"first_page_offset"`
	WriteDuration   bool            `mapstructure:"write_duration"`
	Template        string          `mapstructure:"template"`
	Schedule        report.Schedule `mapstructure:"schedule"`
}

// AuthConfig signs session tokens.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LogConfig configures zap. File enables rotated file output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// =============================================================================
// LOADING
// =============================================================================

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.default_total_days", 22)
	v.SetDefault("store.sqlite.path", "leave.db")
	v.SetDefault("store.github.api_url", "https://api.github.com")
	v.SetDefault("store.github.owner", "")
	v.SetDefault("store.github.repo", "")
	v.SetDefault("store.github.branch", "main")
	v.SetDefault("store.github.token", "")
	v.SetDefault("store.github.rate_per_second", 5.0)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.prefix", "")
	v.SetDefault("store.s3.access_key", "")
	v.SetDefault("store.s3.secret_key", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "leave:")
	v.SetDefault("store.retry.max_tries", recordstore.DefaultRetry.MaxTries)
	v.SetDefault("store.retry.initial_interval", recordstore.DefaultRetry.InitialInterval)
	v.SetDefault("store.retry.max_interval", recordstore.DefaultRetry.MaxInterval)

	v.SetDefault("holidays.country", "ES")
	v.SetDefault("holidays.region", "MD")
	v.SetDefault("holidays.file", "")

	def := report.DefaultLayout()
	v.SetDefault("report.locale", def.Locale)
	v.SetDefault("report.stride", def.Stride)
	v.SetDefault("report.first_page_offset", def.FirstPageOffset)
	v.SetDefault("report.write_duration", false)
	v.SetDefault("report.template", "")
	v.SetDefault("report.schedule.morning_in", def.Schedule.MorningIn)
	v.SetDefault("report.schedule.morning_out", def.Schedule.MorningOut)
	v.SetDefault("report.schedule.afternoon_in", def.Schedule.AfternoonIn)
	v.SetDefault("report.schedule.afternoon_out", def.Schedule.AfternoonOut)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	tr := telemetry.DefaultConfig()
	v.SetDefault("tracing.enabled", tr.Enabled)
	v.SetDefault("tracing.endpoint", tr.Endpoint)
	v.SetDefault("tracing.insecure", tr.Insecure)
	v.SetDefault("tracing.sample_rate", tr.SampleRate)
	v.SetDefault("tracing.service_name", tr.ServiceName)
	v.SetDefault("tracing.batch_timeout", tr.BatchTimeout)
}

// Load reads configuration. An empty path searches ./leave.yaml and
// $HOME/.leave-register; a missing file is not an error then, since defaults
// and environment can carry everything.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("leave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.leave-register")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for sqlite backend")
		}
	case BackendGitHub:
		if c.Store.GitHub.Owner == "" || c.Store.GitHub.Repo == "" {
			return fmt.Errorf("store.github.owner and store.github.repo are required for github backend")
		}
		if c.Store.GitHub.RatePerSecond < 0 {
			return fmt.Errorf("store.github.rate_per_second must not be negative")
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.bucket is required for s3 backend")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, sqlite, github, s3, redis, got '%s'", c.Store.Backend)
	}

	if c.Store.DefaultTotalDays < 0 {
		return fmt.Errorf("store.default_total_days must not be negative")
	}
	if c.Store.Retry.MaxTries == 0 {
		return fmt.Errorf("store.retry.max_tries must be positive")
	}

	if _, err := c.Layout(); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := c.Tracing.Validate(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Layout is the localized default layout with configured overrides.
func (c *Config) Layout() (report.Layout, error) {
	l := report.LocalizedLayout(c.Report.Locale)
	if c.Report.Stride != 0 {
		l.Stride = c.Report.Stride
	}
	l.FirstPageOffset = c.Report.FirstPageOffset
	l.WriteDuration = c.Report.WriteDuration
	if c.Report.Schedule != (report.Schedule{}) {
		l.Schedule = c.Report.Schedule
	}
	if err := l.Validate(); err != nil {
		return report.Layout{}, err
	}
	return l, nil
}

// RegionCode is the holiday region, e.g. "ES-MD".
func (c *Config) RegionCode() string {
	return holidays.RegionCode(c.Holidays.Country, c.Holidays.Region)
}

// Ruleset resolves the holiday table.
func (c *Config) Ruleset() (holidays.Ruleset, error) {
	return holidays.Resolve(c.RegionCode(), c.Holidays.File)
}

// Retry is the store retry policy.
func (r RetryConfig) Retry() recordstore.Retry {
	return recordstore.Retry{MaxTries: r.MaxTries, InitialInterval: r.InitialInterval, MaxInterval: r.MaxInterval}
}
