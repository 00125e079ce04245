package store

import (
	"testing"
	"time"
)

func TestWindowBoundsIsLeftClosedRightOpen(t *testing.T) {
	start, end, err := WindowBounds("2025-08-25", HourRange(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2025, 8, 25, 15, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 8, 25, 16, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestWindowBoundsRejectsInvalidDate(t *testing.T) {
	if _, _, err := WindowBounds("not-a-date", "15-16"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestWindowBoundsRejectsInvalidHourRange(t *testing.T) {
	if _, _, err := WindowBounds("2025-08-25", "bogus"); err == nil {
		t.Fatal("expected error for invalid hour range")
	}
	if _, _, err := WindowBounds("2025-08-25", "24-25"); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
}
