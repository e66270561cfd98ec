package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestDefault_LegsIndependent(t *testing.T) {
	cfg := Default()

	// The upload leg carries a deeper retry budget than the download leg
	if cfg.Upload.MaxRetries <= cfg.Download.MaxRetries {
		t.Errorf("upload retries %d not greater than download retries %d",
			cfg.Upload.MaxRetries, cfg.Download.MaxRetries)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECIPECAST_RECIPES", "/data/recipes.json")
	t.Setenv("RECIPECAST_MAX_UPLOADS", "3")
	t.Setenv("RECIPECAST_UPLOAD_TIMEOUT", "10m")
	t.Setenv("RECIPECAST_DOWNLOAD_MAX_RETRIES", "2")

	cfg := Default()
	cfg.loadFromEnv()

	if cfg.RecipesPath != "/data/recipes.json" {
		t.Errorf("RecipesPath = %q", cfg.RecipesPath)
	}
	if cfg.MaxUploads != 3 {
		t.Errorf("MaxUploads = %d, want 3", cfg.MaxUploads)
	}
	if cfg.Upload.Timeout != 10*time.Minute {
		t.Errorf("Upload.Timeout = %v, want 10m", cfg.Upload.Timeout)
	}
	if cfg.Download.MaxRetries != 2 {
		t.Errorf("Download.MaxRetries = %d, want 2", cfg.Download.MaxRetries)
	}
}

func TestLoadFromFile(t *testing.T) {
	const file = `recipes_path: /data/recipes.json
privacy_status: unlisted
max_uploads: 4
upload:
  timeout: 10m
  max_retries: 7
download:
  chunk_size: 524288
`
	t.Chdir(t.TempDir())
	if err := os.WriteFile("recipecast.yaml", []byte(file), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}

	if cfg.RecipesPath != "/data/recipes.json" {
		t.Errorf("RecipesPath = %q", cfg.RecipesPath)
	}
	if cfg.PrivacyStatus != "unlisted" {
		t.Errorf("PrivacyStatus = %q, want unlisted", cfg.PrivacyStatus)
	}
	if cfg.MaxUploads != 4 {
		t.Errorf("MaxUploads = %d, want 4", cfg.MaxUploads)
	}
	if cfg.Upload.Timeout != 10*time.Minute {
		t.Errorf("Upload.Timeout = %v, want 10m", cfg.Upload.Timeout)
	}
	if cfg.Upload.MaxRetries != 7 {
		t.Errorf("Upload.MaxRetries = %d, want 7", cfg.Upload.MaxRetries)
	}
	if cfg.Download.ChunkSize != 524288 {
		t.Errorf("Download.ChunkSize = %d, want 524288", cfg.Download.ChunkSize)
	}

	// Fields absent from the file keep their defaults
	if cfg.LedgerPath != Default().LedgerPath {
		t.Errorf("LedgerPath = %q, want default preserved", cfg.LedgerPath)
	}
	if cfg.Download.Timeout != Default().Download.Timeout {
		t.Errorf("Download.Timeout = %v, want default preserved", cfg.Download.Timeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after file load = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad privacy status", func(c *Config) { c.PrivacyStatus = "secret" }},
		{"zero max uploads", func(c *Config) { c.MaxUploads = 0 }},
		{"zero pacing", func(c *Config) { c.UploadsPerMinute = 0 }},
		{"zero chunk size", func(c *Config) { c.Download.ChunkSize = 0 }},
		{"negative retries", func(c *Config) { c.Upload.MaxRetries = -1 }},
		{"backoff cap below base", func(c *Config) { c.Upload.MaxBackoff = time.Second; c.Upload.BackoffBase = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
