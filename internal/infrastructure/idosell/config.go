package idosell

import (
	"errors"
	"time"
)

// Config holds connection settings for the idoSell admin API
type Config struct {
	// BaseURL is the admin API root, e.g. https://shop.idosell.com/api/admin/v3
	BaseURL string
	// APIKey is sent in the X-API-KEY header
	APIKey  string
	Timeout time.Duration
	// PageSize is the result limit of the primary search
	PageSize int
	// FallbackPageSize is the result limit of the narrower fallback search
	FallbackPageSize int
	RetryAttempts    int
	// RetryBaseDelay is multiplied by the attempt number between fallback attempts
	RetryBaseDelay time.Duration
}

var (
	ErrConfigMissingBaseURL = errors.New("idosell: base url is required")
	ErrConfigMissingAPIKey  = errors.New("idosell: api key is required")
)

// DefaultConfig returns a configuration with production defaults and no credentials
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		PageSize:         100,
		FallbackPageSize: 50,
		RetryAttempts:    3,
		RetryBaseDelay:   time.Second,
	}
}

// Validate checks that the configuration can reach the API
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.FallbackPageSize <= 0 {
		c.FallbackPageSize = d.FallbackPageSize
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = d.RetryAttempts
	}
	if c.RetryBaseDelay < 0 {
		c.RetryBaseDelay = 0
	}
	return c
}
