package pathbuilder

import "testing"

func TestBuildDeterministic(t *testing.T) {
	p := Policy{Type: Daily, FileFormat: "json"}
	r1, err := Build("2025-08-25", "14-15", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := Build("2025-08-25", "14-15", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.Key() != r2.Key() {
		t.Fatalf("expected identical keys, got %q vs %q", r1.Key(), r2.Key())
	}
}

func TestBuildHappyPath(t *testing.T) {
	p := Policy{Type: Daily, FileFormat: "json"}
	r, err := Build("2025-08-25", "14-15", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2025-08-25/api-logs_2025-08-25_14-15.json"
	if r.Key() != want {
		t.Fatalf("got %q, want %q", r.Key(), want)
	}
}

func TestBuildDistinctWindowsYieldDistinctKeys(t *testing.T) {
	p := Policy{Type: Daily, FileFormat: "json"}
	r1, _ := Build("2025-08-25", "14-15", "", p)
	r2, _ := Build("2025-08-25", "15-16", "", p)
	r3, _ := Build("2025-08-26", "14-15", "", p)
	if r1.Key() == r2.Key() || r1.Key() == r3.Key() || r2.Key() == r3.Key() {
		t.Fatalf("expected distinct keys for distinct (date,hour) pairs: %q %q %q", r1.Key(), r2.Key(), r3.Key())
	}
}

func TestBuildSubFoldersOrder(t *testing.T) {
	p := Policy{
		Type:     Daily,
		FileFormat: "json",
		SubFolders: SubFolders{
			Enabled:  true,
			ByHour:   true,
			ByStatus: true,
			Custom:   []string{"region-us"},
		},
	}
	r, err := Build("2025-08-25", "14-15", "success", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2025-08-25/hour-14-15/success/region-us/api-logs_2025-08-25_14-15.json"
	if r.Key() != want {
		t.Fatalf("got %q, want %q", r.Key(), want)
	}
}

func TestBuildNamingPrefixSuffix(t *testing.T) {
	p := Policy{Type: Daily, FileFormat: "csv", Naming: Naming{Prefix: "acct1", Suffix: "v2"}}
	r, err := Build("2025-08-25", "00-01", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "acct1_2025-08-25_v2/api-logs_2025-08-25_00-01.csv"
	if r.Key() != want {
		t.Fatalf("got %q, want %q", r.Key(), want)
	}
}

func TestBuildCompressionExtension(t *testing.T) {
	p := Policy{Type: Daily, FileFormat: "json", CompressionExt: "gz"}
	r, err := Build("2025-08-25", "14-15", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.ArtifactName; got != "api-logs_2025-08-25_14-15.json.gz" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildInvalidDate(t *testing.T) {
	if _, err := Build("not-a-date", "14-15", "", Policy{}); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestBuildPatternOverride(t *testing.T) {
	p := Policy{Pattern: "YYYY/MM/DD", FileFormat: "json"}
	r, err := Build("2025-08-25", "14-15", "", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.FolderPath != "2025/08/25" {
		t.Fatalf("got %q", r.FolderPath)
	}
}
