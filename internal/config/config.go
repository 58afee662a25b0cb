package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	appLog "rokcal/internal/log"
)

// EnvPrefix prefixes every environment override, e.g. ROKCAL_LISTEN.
const EnvPrefix = "ROKCAL_"

// Source modes.
const (
	SourceStatic = "static"
	SourceRemote = "remote"
)

// SourceConfig selects where event templates come from.
type SourceConfig struct {
	// Mode is "static" (built-in or file catalog) or "remote".
	Mode string `yaml:"mode" json:"mode" env:"MODE"`

	// CatalogPath is an optional YAML catalog used in static mode. When
	// empty the built-in catalog is used.
	CatalogPath string `yaml:"catalog_path" json:"catalog_path" env:"CATALOG_PATH"`

	// URL is the remote catalog endpoint (the proxy or the upstream).
	URL string `yaml:"url" json:"url" env:"URL"`

	// CacheDir holds ETag/Last-Modified metadata for the remote catalog.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"CACHE_DIR"`

	// Retries is the number of extra attempts after a failed fetch.
	Retries int `yaml:"retries" json:"retries" env:"RETRIES"`

	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// ProxyConfig configures the /api/events pass-through.
type ProxyConfig struct {
	// Upstream is fetched on every proxy request. Empty disables the proxy.
	Upstream  string `yaml:"upstream" json:"upstream" env:"UPSTREAM"`
	UserAgent string `yaml:"user_agent" json:"user_agent" env:"USER_AGENT"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// Timezone is the IANA zone every date is interpreted and shown in.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	// Locale selects labels and date formats: "vi" (default) or "en".
	Locale string `yaml:"locale" json:"locale" env:"LOCALE"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start" env:"WEEK_START"`

	// RefreshCron schedules remote catalog refreshes (e.g. "*/30 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh" env:"REFRESH"`

	// HorizonMonths is the repetition count for repeating single-run
	// templates ("months ahead").
	HorizonMonths int `yaml:"horizon_months" json:"horizon_months" env:"HORIZON_MONTHS"`

	// HorizonYears bounds pattern-list expansion at today + N years.
	HorizonYears int `yaml:"horizon_years" json:"horizon_years" env:"HORIZON_YEARS"`

	// UpcomingLimit caps the upcoming-events panel.
	UpcomingLimit int `yaml:"upcoming_limit" json:"upcoming_limit" env:"UPCOMING_LIMIT"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	Source SourceConfig `yaml:"source" json:"source" envPrefix:"SOURCE_"`
	Proxy  ProxyConfig  `yaml:"proxy" json:"proxy" envPrefix:"PROXY_"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "Asia/Ho_Chi_Minh"
	defaultLocale        = "vi"
	defaultWeekStart     = "monday"
	defaultRefreshCron   = "*/30 * * * *"
	defaultHorizonMonths = 12
	defaultHorizonYears  = 1
	defaultUpcoming      = 10
	defaultCacheDir      = "./var/catalog-cache"
	defaultTimeout       = 15
	defaultUpstream      = "https://www.rokhub.xyz/api/events"
	defaultUserAgent     = "Mozilla/5.0 (compatible; ROK-Events/1.0)"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		Locale:        defaultLocale,
		WeekStart:     defaultWeekStart,
		RefreshCron:   defaultRefreshCron,
		HorizonMonths: defaultHorizonMonths,
		HorizonYears:  defaultHorizonYears,
		UpcomingLimit: defaultUpcoming,
		LogLevel:      "info",
		Source: SourceConfig{
			Mode:           SourceStatic,
			CacheDir:       defaultCacheDir,
			TimeoutSeconds: defaultTimeout,
		},
		Proxy: ProxyConfig{
			Upstream:  defaultUpstream,
			UserAgent: defaultUserAgent,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.Locale {
	case "vi", "en":
	default:
		c.Locale = defaultLocale
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonMonths <= 0 {
		c.HorizonMonths = defaultHorizonMonths
	}
	if c.HorizonYears <= 0 {
		c.HorizonYears = defaultHorizonYears
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = defaultUpcoming
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Source.Mode {
	case SourceStatic, SourceRemote:
	default:
		c.Source.Mode = SourceStatic
	}
	if c.Source.CacheDir == "" {
		c.Source.CacheDir = defaultCacheDir
	}
	if c.Source.Retries < 0 {
		c.Source.Retries = 0
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = defaultTimeout
	}
	if c.Proxy.UserAgent == "" {
		c.Proxy.UserAgent = defaultUserAgent
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Source.Mode == SourceRemote && c.Source.URL == "" {
		return errors.New("config: source.url is required in remote mode")
	}
	if _, ok := appLog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Timeout is the per-request remote fetch timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path, then applies
// ROKCAL_* environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rokcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
