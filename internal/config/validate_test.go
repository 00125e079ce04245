package config

import "testing"

func TestValidateSplit(t *testing.T) {
	cfg := Load()
	errs, warns := cfg.Validate()
	if len(errs) != 0 {
		t.Fatalf("expected no errors for default config, got %v", errs)
	}
	if len(warns) != 0 {
		t.Fatalf("expected no warnings for default config, got %v", warns)
	}
}

func TestValidateRejectsUnknownUploadProvider(t *testing.T) {
	cfg := Load()
	cfg.UploadProvider = "ftp"
	errs, _ := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for unsupported upload_provider")
	}
}

func TestValidateRequiresS3BucketWhenSelected(t *testing.T) {
	cfg := Load()
	cfg.UploadProvider = "s3"
	cfg.S3.Bucket = ""
	errs, _ := cfg.Validate()
	found := false
	for _, e := range errs {
		if e == "s3.bucket is required when upload_provider=s3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected s3 bucket error, got %v", errs)
	}
}

func TestValidateRejectsInvalidTimezone(t *testing.T) {
	cfg := Load()
	cfg.Timezone = "Not/AZone"
	errs, _ := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for invalid timezone")
	}
}
