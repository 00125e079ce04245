package scheduler

import "testing"

func TestNewRegistersBothTriggersWithDefaults(t *testing.T) {
	s := New(nil, Config{}, nil)
	entries := s.cron.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 registered cron entries, got %d", len(entries))
	}
}

func TestNewAcceptsCustomCronExpressions(t *testing.T) {
	s := New(nil, Config{DailyCron: "30 1 * * *", HourlyCron: "15 * * * *"}, nil)
	if len(s.cron.Entries()) != 2 {
		t.Fatalf("expected 2 registered cron entries with custom expressions")
	}
}
