// Package config manages application configuration.
//
// Settings are resolved in priority order: environment variables
// (RECIPECAST_*) over an optional YAML config file (recipecast.yaml in
// the working directory or ~/.config/recipecast/) over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// TransferConfig holds the retry/backoff knobs shared by the download
// and upload legs. The legs are configured independently.
type TransferConfig struct {
	// ChunkSize is the bytes per read/write increment.
	ChunkSize int `yaml:"chunk_size"`
	// Timeout is the per-attempt deadline.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the retry budget after the initial attempt.
	MaxRetries int `yaml:"max_retries"`
	// BackoffBase is the initial retry delay; doubles per attempt.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Config holds all application configuration.
type Config struct {
	// RecipesPath is the recipe catalog JSON file.
	RecipesPath string `yaml:"recipes_path"`
	// LedgerPath is the durable upload ledger file.
	LedgerPath string `yaml:"ledger_path"`
	// CredentialsPath is the long-lived Google client secret file.
	CredentialsPath string `yaml:"credentials_path"`
	// TokenPath is the cached short-lived session token file.
	TokenPath string `yaml:"token_path"`
	// TempDir holds downloaded videos between fetch and publish.
	TempDir string `yaml:"temp_dir"`
	// LogDir receives the per-run transcript files.
	LogDir string `yaml:"log_dir"`

	// PrivacyStatus for published videos: public, unlisted or private.
	PrivacyStatus string `yaml:"privacy_status"`
	// MaxUploads bounds the number of recipes attempted per batch run.
	MaxUploads int `yaml:"max_uploads"`
	// UploadsPerMinute paces consecutive uploads in a batch run.
	UploadsPerMinute float64 `yaml:"uploads_per_minute"`

	Download TransferConfig `yaml:"download"`
	Upload   TransferConfig `yaml:"upload"`
}

// Default returns configuration with safe defaults. The chunk size and
// retry budgets mirror what survived production use: small chunks for
// flaky links, a deeper retry budget on the upload leg.
func Default() *Config {
	return &Config{
		RecipesPath:      "recipes.json",
		LedgerPath:       "ledger.json",
		CredentialsPath:  "credentials.json",
		TokenPath:        "token.json",
		TempDir:          "temp_videos",
		LogDir:           ".",
		PrivacyStatus:    "public",
		MaxUploads:       10,
		UploadsPerMinute: 1.0,
		Download: TransferConfig{
			ChunkSize:   256 * 1024,
			Timeout:     5 * time.Minute,
			MaxRetries:  5,
			BackoffBase: 2 * time.Second,
			MaxBackoff:  60 * time.Second,
		},
		Upload: TransferConfig{
			ChunkSize:   256 * 1024,
			Timeout:     30 * time.Minute,
			MaxRetries:  15,
			BackoffBase: 2 * time.Second,
			MaxBackoff:  2 * time.Minute,
		},
	}
}

// Load resolves configuration from file, environment and defaults.
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts recipecast.yaml in the working directory, then
// under ~/.config/recipecast/.
func (c *Config) loadFromFile() error {
	paths := []string{
		"recipecast.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "recipecast", "recipecast.yaml"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("RECIPECAST_RECIPES"); v != "" {
		c.RecipesPath = v
	}
	if v := os.Getenv("RECIPECAST_LEDGER"); v != "" {
		c.LedgerPath = v
	}
	if v := os.Getenv("RECIPECAST_CREDENTIALS"); v != "" {
		c.CredentialsPath = v
	}
	if v := os.Getenv("RECIPECAST_TOKEN"); v != "" {
		c.TokenPath = v
	}
	if v := os.Getenv("RECIPECAST_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("RECIPECAST_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("RECIPECAST_PRIVACY"); v != "" {
		c.PrivacyStatus = v
	}
	if v := os.Getenv("RECIPECAST_MAX_UPLOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxUploads = n
		}
	}
	if v := os.Getenv("RECIPECAST_UPLOADS_PER_MINUTE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.UploadsPerMinute = f
		}
	}
	if v := os.Getenv("RECIPECAST_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Download.Timeout = d
		}
	}
	if v := os.Getenv("RECIPECAST_DOWNLOAD_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Download.MaxRetries = n
		}
	}
	if v := os.Getenv("RECIPECAST_UPLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Upload.Timeout = d
		}
	}
	if v := os.Getenv("RECIPECAST_UPLOAD_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Upload.MaxRetries = n
		}
	}
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.PrivacyStatus {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("privacy_status must be public, unlisted or private")
	}
	if c.MaxUploads <= 0 {
		return fmt.Errorf("max_uploads must be positive")
	}
	if c.UploadsPerMinute <= 0 {
		return fmt.Errorf("uploads_per_minute must be positive")
	}
	for name, tc := range map[string]TransferConfig{"download": c.Download, "upload": c.Upload} {
		if tc.ChunkSize <= 0 {
			return fmt.Errorf("%s.chunk_size must be positive", name)
		}
		if tc.Timeout <= 0 {
			return fmt.Errorf("%s.timeout must be positive", name)
		}
		if tc.MaxRetries < 0 {
			return fmt.Errorf("%s.max_retries must be non-negative", name)
		}
		if tc.BackoffBase <= 0 {
			return fmt.Errorf("%s.backoff_base must be positive", name)
		}
		if tc.MaxBackoff < tc.BackoffBase {
			return fmt.Errorf("%s.max_backoff must be >= backoff_base", name)
		}
	}
	return nil
}
