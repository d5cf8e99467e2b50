package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultPassword is the fallback Basic-auth password used when none is configured.
// It is rejected in production.
const DefaultPassword = "password123"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	IdoSell   IdoSellConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"required,oneof=development testing staging production"`
	Port string `validate:"required,numeric"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"` // debug, info, warn, error
	Format string `validate:"oneof=json console"`
	Output string `validate:"required"` // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration `validate:"gt=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
	IdleTimeout       time.Duration `validate:"gt=0"`
	MaxHeaderBytes    int           `validate:"gt=0"`
	MaxBodySize       int64         `validate:"gt=0"`
	RateLimitEnabled  bool
	RateLimitRequests int           `validate:"gt=0"`
	RateLimitWindow   time.Duration `validate:"gt=0"`
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// AuthConfig holds the single HTTP Basic credential pair.
// When PasswordHash (bcrypt) is set it takes precedence over Password.
type AuthConfig struct {
	Username     string `validate:"required"`
	Password     string
	PasswordHash string
}

// IdoSellConfig holds upstream order API settings
type IdoSellConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration `validate:"gt=0"`
	PageSize         int           `validate:"gt=0,lte=100"`
	FallbackPageSize int           `validate:"gt=0,lte=100"`
	RetryAttempts    int           `validate:"gt=0"`
	RetryBaseDelay   time.Duration `validate:"gte=0"`
}

// StoreConfig holds the order file store settings
type StoreConfig struct {
	Path             string        `validate:"required"`
	LockTimeout      time.Duration `validate:"gt=0"`
	LockPollInterval time.Duration `validate:"gt=0"`
}

// SchedulerConfig holds order refresh scheduler configuration
type SchedulerConfig struct {
	Enabled      bool
	CronSchedule string `validate:"required"`
	Timezone     string
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Path    string `validate:"startswith=/"`
}

// legacyEnv maps config keys to the bare environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"app.port":                "PORT",
	"idosell.api_key":         "API_KEY",
	"idosell.base_url":        "PANEL_URL",
	"auth.username":           "API_USERNAME",
	"auth.password":           "API_PASSWORD",
	"scheduler.cron_schedule": "DAILY_CRON",
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ORDERS_ prefix (e.g., ORDERS_IDOSELL_API_KEY)
// 2. Legacy bare environment variables (PORT, API_KEY, PANEL_URL, ...)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "ORDERS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Auth: AuthConfig{
			Username:     v.GetString("auth.username"),
			Password:     v.GetString("auth.password"),
			PasswordHash: v.GetString("auth.password_hash"),
		},
		IdoSell: IdoSellConfig{
			BaseURL:          v.GetString("idosell.base_url"),
			APIKey:           v.GetString("idosell.api_key"),
			Timeout:          v.GetDuration("idosell.timeout"),
			PageSize:         v.GetInt("idosell.page_size"),
			FallbackPageSize: v.GetInt("idosell.fallback_page_size"),
			RetryAttempts:    v.GetInt("idosell.retry_attempts"),
			RetryBaseDelay:   v.GetDuration("idosell.retry_base_delay"),
		},
		Store: StoreConfig{
			Path:             v.GetString("store.path"),
			LockTimeout:      v.GetDuration("store.lock_timeout"),
			LockPollInterval: v.GetDuration("store.lock_poll_interval"),
		},
		Scheduler: SchedulerConfig{
			CronSchedule: v.GetString("scheduler.cron_schedule"),
			Timezone:     v.GetString("scheduler.timezone"),
		},
		Metrics: MetricsConfig{
			Path: v.GetString("metrics.path"),
		},
	}

	// Booleans that default to true need IsSet to tell "unset" from "false"
	cfg.HTTP.RateLimitEnabled = boolOrDefault(v, "http.rate_limit_enabled", true)
	cfg.Scheduler.Enabled = boolOrDefault(v, "scheduler.enabled", true)
	cfg.Metrics.Enabled = boolOrDefault(v, "metrics.enabled", true)

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func boolOrDefault(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	return v.GetBool(key)
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orders-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = 15 * time.Minute
	}
	// An empty origin list disables cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "admin"
	}
	if cfg.Auth.Password == "" && cfg.Auth.PasswordHash == "" {
		cfg.Auth.Password = DefaultPassword
	}
	if cfg.IdoSell.Timeout == 0 {
		cfg.IdoSell.Timeout = 30 * time.Second
	}
	if cfg.IdoSell.PageSize == 0 {
		cfg.IdoSell.PageSize = 100
	}
	if cfg.IdoSell.FallbackPageSize == 0 {
		cfg.IdoSell.FallbackPageSize = 50
	}
	if cfg.IdoSell.RetryAttempts == 0 {
		cfg.IdoSell.RetryAttempts = 3
	}
	if cfg.IdoSell.RetryBaseDelay == 0 {
		cfg.IdoSell.RetryBaseDelay = time.Second
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/orders.json"
	}
	if cfg.Store.LockTimeout == 0 {
		cfg.Store.LockTimeout = 5 * time.Second
	}
	if cfg.Store.LockPollInterval == 0 {
		cfg.Store.LockPollInterval = 100 * time.Millisecond
	}
	if cfg.Scheduler.CronSchedule == "" {
		cfg.Scheduler.CronSchedule = "0 0 * * *"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.IdoSell.BaseURL != "" {
		u, err := url.Parse(c.IdoSell.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("idosell.base_url must be an absolute URL, got %q", c.IdoSell.BaseURL)
		}
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if c.App.Env == "production" {
		if c.IdoSell.APIKey == "" {
			return fmt.Errorf("idosell.api_key is required in production")
		}
		if c.IdoSell.BaseURL == "" {
			return fmt.Errorf("idosell.base_url is required in production")
		}
		if c.Auth.PasswordHash == "" && c.Auth.Password == DefaultPassword {
			return fmt.Errorf("auth.password must be changed from the default in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// Address returns the listen address for the HTTP server
func (a AppConfig) Address() string {
	return ":" + a.Port
}

// Location resolves the scheduler timezone
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
