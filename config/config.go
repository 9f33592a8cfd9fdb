package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Marketplace MarketplaceConfig
	Cache       CacheConfig
	Curation    CurationConfig
	Scheduler   SchedulerConfig
	Store       StoreConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MarketplaceConfig holds marketplace API configuration
type MarketplaceConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	BaseURL          string  `mapstructure:"base_url"`
	AffiliateTag     string  `mapstructure:"affiliate_tag"`
	AffiliateBaseURL string  `mapstructure:"affiliate_base_url"`
	RequestsPerSec   float64 `mapstructure:"requests_per_sec"`
	Burst            int     `mapstructure:"burst"`
}

// CacheConfig holds candidate cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// CurationConfig holds curation engine configuration
type CurationConfig struct {
	GroupBoostCap      float64 `mapstructure:"group_boost_cap"`
	CandidateLimit     int     `mapstructure:"candidate_limit"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// SchedulerConfig holds kit refresh scheduler configuration
type SchedulerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Concurrency int           `mapstructure:"concurrency"`
	Interval    time.Duration `mapstructure:"interval"`
}

// StoreConfig holds kit store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/karooma/")

	// Environment variable settings
	v.SetEnvPrefix("KAROOMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"https://*.karooma.net"})

	// Marketplace defaults
	v.SetDefault("marketplace.base_url", "https://paapi.karooma.net")
	v.SetDefault("marketplace.affiliate_tag", "karoom-20")
	v.SetDefault("marketplace.affiliate_base_url", "https://www.amazon.com.br/dp")
	v.SetDefault("marketplace.requests_per_sec", 1.0)
	v.SetDefault("marketplace.burst", 5)

	// Cache defaults
	v.SetDefault("cache.ttl", "6h")

	// Curation defaults
	v.SetDefault("curation.group_boost_cap", 0.15)
	v.SetDefault("curation.candidate_limit", 10)
	v.SetDefault("curation.enable_debug_logging", false)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.concurrency", 3)
	v.SetDefault("scheduler.interval", "15m")

	// Store defaults
	v.SetDefault("store.path", "karooma.db")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Marketplace.APIKey == "" {
		return fmt.Errorf("marketplace API key is required (set KAROOMA_MARKETPLACE_API_KEY)")
	}

	if config.Store.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}

	if config.Curation.GroupBoostCap < 0 || config.Curation.GroupBoostCap > 1 {
		return fmt.Errorf("curation group boost cap must be within [0,1], got: %v", config.Curation.GroupBoostCap)
	}

	if config.Scheduler.Concurrency < 1 {
		return fmt.Errorf("scheduler concurrency must be >= 1, got: %d", config.Scheduler.Concurrency)
	}

	return nil
}
