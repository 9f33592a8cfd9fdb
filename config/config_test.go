package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("KAROOMA_SERVER_PORT")
		os.Unsetenv("KAROOMA_SERVER_ENVIRONMENT")
		os.Unsetenv("KAROOMA_MARKETPLACE_API_KEY")
		os.Unsetenv("KAROOMA_MARKETPLACE_BASE_URL")
		os.Unsetenv("KAROOMA_MARKETPLACE_AFFILIATE_TAG")
		os.Unsetenv("KAROOMA_CACHE_TTL")
		os.Unsetenv("KAROOMA_CURATION_GROUP_BOOST_CAP")
		os.Unsetenv("KAROOMA_CURATION_CANDIDATE_LIMIT")
		os.Unsetenv("KAROOMA_SCHEDULER_ENABLED")
		os.Unsetenv("KAROOMA_SCHEDULER_CONCURRENCY")
		os.Unsetenv("KAROOMA_SCHEDULER_INTERVAL")
		os.Unsetenv("KAROOMA_STORE_PATH")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		// Set required API key
		os.Setenv("KAROOMA_MARKETPLACE_API_KEY", "test-key")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Marketplace.BaseURL != "https://paapi.karooma.net" {
			t.Errorf("Marketplace.BaseURL = %s, want https://paapi.karooma.net", cfg.Marketplace.BaseURL)
		}
		if cfg.Marketplace.AffiliateTag != "karoom-20" {
			t.Errorf("Marketplace.AffiliateTag = %s, want karoom-20", cfg.Marketplace.AffiliateTag)
		}
		if cfg.Cache.TTL != 6*time.Hour {
			t.Errorf("Cache.TTL = %v, want 6h", cfg.Cache.TTL)
		}
		if cfg.Curation.GroupBoostCap != 0.15 {
			t.Errorf("Curation.GroupBoostCap = %v, want 0.15", cfg.Curation.GroupBoostCap)
		}
		if cfg.Curation.CandidateLimit != 10 {
			t.Errorf("Curation.CandidateLimit = %d, want 10", cfg.Curation.CandidateLimit)
		}
		if !cfg.Scheduler.Enabled {
			t.Error("Scheduler.Enabled = false, want true")
		}
		if cfg.Scheduler.Concurrency != 3 {
			t.Errorf("Scheduler.Concurrency = %d, want 3", cfg.Scheduler.Concurrency)
		}
		if cfg.Scheduler.Interval != 15*time.Minute {
			t.Errorf("Scheduler.Interval = %v, want 15m", cfg.Scheduler.Interval)
		}
		if cfg.Store.Path != "karooma.db" {
			t.Errorf("Store.Path = %s, want karooma.db", cfg.Store.Path)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("KAROOMA_SERVER_PORT", "9090")
		os.Setenv("KAROOMA_SERVER_ENVIRONMENT", "production")
		os.Setenv("KAROOMA_MARKETPLACE_API_KEY", "custom-api-key")
		os.Setenv("KAROOMA_MARKETPLACE_BASE_URL", "https://custom.api.com")
		os.Setenv("KAROOMA_MARKETPLACE_AFFILIATE_TAG", "other-tag-21")
		os.Setenv("KAROOMA_CACHE_TTL", "24h")
		os.Setenv("KAROOMA_CURATION_CANDIDATE_LIMIT", "25")
		os.Setenv("KAROOMA_SCHEDULER_CONCURRENCY", "8")
		os.Setenv("KAROOMA_STORE_PATH", "/var/lib/karooma/kits.db")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Marketplace.APIKey != "custom-api-key" {
			t.Errorf("Marketplace.APIKey = %s, want custom-api-key", cfg.Marketplace.APIKey)
		}
		if cfg.Marketplace.BaseURL != "https://custom.api.com" {
			t.Errorf("Marketplace.BaseURL = %s, want https://custom.api.com", cfg.Marketplace.BaseURL)
		}
		if cfg.Marketplace.AffiliateTag != "other-tag-21" {
			t.Errorf("Marketplace.AffiliateTag = %s, want other-tag-21", cfg.Marketplace.AffiliateTag)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Curation.CandidateLimit != 25 {
			t.Errorf("Curation.CandidateLimit = %d, want 25", cfg.Curation.CandidateLimit)
		}
		if cfg.Scheduler.Concurrency != 8 {
			t.Errorf("Scheduler.Concurrency = %d, want 8", cfg.Scheduler.Concurrency)
		}
		if cfg.Store.Path != "/var/lib/karooma/kits.db" {
			t.Errorf("Store.Path = %s, want /var/lib/karooma/kits.db", cfg.Store.Path)
		}
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing API key")
		}
	})

	t.Run("fails validation for out-of-range boost cap", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("KAROOMA_MARKETPLACE_API_KEY", "test-key")
		os.Setenv("KAROOMA_CURATION_GROUP_BOOST_CAP", "1.5")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for boost cap outside [0,1]")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Marketplace: MarketplaceConfig{APIKey: "test-key"},
			Curation:    CurationConfig{GroupBoostCap: 0.15},
			Scheduler:   SchedulerConfig{Concurrency: 3},
			Store:       StoreConfig{Path: "karooma.db"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails when API key is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Marketplace.APIKey = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty API key")
		}
	})

	t.Run("fails when store path is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Path = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty store path")
		}
	})

	t.Run("fails for negative boost cap", func(t *testing.T) {
		cfg := valid()
		cfg.Curation.GroupBoostCap = -0.1
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for negative boost cap")
		}
	})

	t.Run("fails for zero scheduler concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Scheduler.Concurrency = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for concurrency < 1")
		}
	})
}
