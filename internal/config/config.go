// Package config is the root configuration for the scraper, loaded through
// Viper from defaults, an optional yaml file, a local .env and the
// PROPWEALTH_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Network   NetworkConfig   `mapstructure:"network"`
	Session   SessionConfig   `mapstructure:"session"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// PostgresConfig holds settings for the optional archive database. An empty
// URL disables archiving entirely.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// BrowserConfig holds settings for the shared headless browser process.
type BrowserConfig struct {
	Headless        bool   `mapstructure:"headless"`
	UserAgent       string `mapstructure:"user_agent"`
	IgnoreTLSErrors bool   `mapstructure:"ignore_tls_errors"`
}

// NetworkConfig holds settings for direct HTTP requests to provider JSON
// endpoints.
type NetworkConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig controls the cached-session lifecycle.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ProvidersConfig groups per-provider credentials and tuning.
type ProvidersConfig struct {
	DSRData     DSRDataConfig     `mapstructure:"dsrdata"`
	Pricefinder PricefinderConfig `mapstructure:"pricefinder"`
}

// DSRDataConfig configures the market-stats provider.
type DSRDataConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	BaseURL  string `mapstructure:"base_url"`
	LoginURL string `mapstructure:"login_url"`
}

// PricefinderConfig configures the navigation-driven property provider.
type PricefinderConfig struct {
	Email     string        `mapstructure:"email"`
	Password  string        `mapstructure:"password"`
	LoginURL  string        `mapstructure:"login_url"`
	BatchPace time.Duration `mapstructure:"batch_pace"`
}

// SetDefaults seeds Viper so the app can run with a minimal config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "propwealth-scraper")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("network.timeout", 30*time.Second)

	v.SetDefault("session.ttl", 25*time.Minute)

	v.SetDefault("providers.dsrdata.base_url", "https://www.dsrdata.com.au")
	v.SetDefault("providers.dsrdata.login_url", "https://www.dsrdata.com.au/login")
	v.SetDefault("providers.pricefinder.login_url", "https://www.pricefinder.com.au/login")
	v.SetDefault("providers.pricefinder.batch_pace", 3*time.Second)
}

// Load unmarshals the Viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations that would only fail later, mid-scrape.
// Missing credentials are a startup-time fault, not a runtime one.
func (c *Config) Validate() error {
	if c.Providers.DSRData.Email == "" || c.Providers.DSRData.Password == "" {
		return fmt.Errorf("providers.dsrdata: email and password are required")
	}
	if c.Providers.Pricefinder.Email == "" || c.Providers.Pricefinder.Password == "" {
		return fmt.Errorf("providers.pricefinder: email and password are required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Network.Timeout <= 0 {
		return fmt.Errorf("network.timeout must be positive, got %s", c.Network.Timeout)
	}
	return nil
}
