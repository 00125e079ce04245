package config

import (
	"os"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	os.Setenv("LOGBATCHER_UPLOAD_PROVIDER", "s3")
	defer os.Unsetenv("LOGBATCHER_UPLOAD_PROVIDER")
	cfg := Load()
	if cfg.UploadProvider != "s3" {
		t.Fatalf("expected env var to set upload_provider to s3, got %q", cfg.UploadProvider)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()
	if cfg.FileFormat != "json" {
		t.Errorf("FileFormat default = %q, want json", cfg.FileFormat)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts default = %d, want 3", cfg.RetryAttempts)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone default = %q, want UTC", cfg.Timezone)
	}
}
