package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAstrosURL = "http://api.open-notify.org/astros.json"
	DefaultIssURL    = "http://api.open-notify.org/iss-now.json"

	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	AstrosURL           string        `mapstructure:"astros_url"`
	IssURL              string        `mapstructure:"iss_url"`
	UserAgent           string        `mapstructure:"user_agent"`
	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchMaxRetries     int           `mapstructure:"fetch_max_retries"`
	RetryBackoffMs      int64         `mapstructure:"retry_backoff_ms"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	RetryBackoff        time.Duration `mapstructure:"-"`

	TimeZone     string         `mapstructure:"time_zone"`
	Location     *time.Location `mapstructure:"-" json:"-"`
	OutputFormat string         `mapstructure:"output_format"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval_seconds"`
	PollInterval        time.Duration `mapstructure:"-"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps command-line flag names onto config keys. Flags win over env when set.
var flagKeys = map[string]string{
	"format":     "output_format",
	"interval":   "poll_interval_seconds",
	"log-level":  "log_level",
	"time-zone":  "time_zone",
	"publishers": "publishers_file",
}

// Load reads configuration from environment variables, config files and the given flags.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}
	return load(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "samvad-orbit-reporter")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("astros_url", DefaultAstrosURL)
	v.SetDefault("iss_url", DefaultIssURL)
	v.SetDefault("user_agent", "samvad-orbit-reporter/1.0")
	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("fetch_max_retries", 1)
	v.SetDefault("retry_backoff_ms", 250)
	v.SetDefault("time_zone", "")
	v.SetDefault("output_format", FormatText)
	v.SetDefault("poll_interval_seconds", 0) // run once
	v.SetDefault("publishers_file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/snapshots.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates raw values and derives durations and the report time zone.
func (c *Config) normalize() error {
	c.AstrosURL = strings.TrimSpace(c.AstrosURL)
	c.IssURL = strings.TrimSpace(c.IssURL)
	if c.AstrosURL == "" || c.IssURL == "" {
		return fmt.Errorf("astros_url and iss_url must not be empty")
	}

	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second

	if c.FetchMaxRetries < 0 || c.FetchMaxRetries > 1 {
		return fmt.Errorf("invalid fetch_max_retries %d (allowed: 0 or 1)", c.FetchMaxRetries)
	}
	if c.RetryBackoffMs < 0 {
		return fmt.Errorf("invalid retry_backoff_ms (must not be negative)")
	}
	c.RetryBackoff = time.Duration(c.RetryBackoffMs) * time.Millisecond

	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))
	switch c.OutputFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output_format %q (expected %s or %s)", c.OutputFormat, FormatText, FormatJSON)
	}

	loc, err := loadLocation(c.TimeZone)
	if err != nil {
		return err
	}
	c.Location = loc

	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("invalid poll_interval_seconds (must not be negative)")
	}
	c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	return nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", name, err)
	}
	return loc, nil
}
