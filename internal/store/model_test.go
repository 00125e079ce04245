package store

import (
	"testing"
	"time"
)

func TestHourRangeFormatting(t *testing.T) {
	cases := map[int]string{
		0:  "00-01",
		9:  "09-10",
		15: "15-16",
		23: "23-24",
	}
	for h, want := range cases {
		if got := HourRange(h); got != want {
			t.Errorf("HourRange(%d) = %q, want %q", h, got, want)
		}
	}
}

func TestNewJobHasTwentyFourPendingSlots(t *testing.T) {
	now := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	j := NewJob("2025-08-25", now)

	if j.Status != JobPending {
		t.Fatalf("new job status = %v, want pending", j.Status)
	}
	if len(j.Hours) != 24 {
		t.Fatalf("expected 24 hour slots, got %d", len(j.Hours))
	}
	for i, s := range j.Hours {
		if s.Status != SlotPending {
			t.Errorf("slot %d status = %v, want pending", i, s.Status)
		}
		if s.HourRange != HourRange(i) {
			t.Errorf("slot %d hour range = %q, want %q", i, s.HourRange, HourRange(i))
		}
	}
}

func TestDeriveStatusAllSuccess(t *testing.T) {
	j := NewJob("2025-08-25", time.Now())
	for i := range j.Hours {
		j.Hours[i].Status = SlotSuccess
	}
	j.DeriveStatus()
	if j.Status != JobSuccess {
		t.Fatalf("status = %v, want success", j.Status)
	}
}

func TestDeriveStatusAnyPendingKeepsJobPending(t *testing.T) {
	j := NewJob("2025-08-25", time.Now())
	for i := range j.Hours {
		j.Hours[i].Status = SlotSuccess
	}
	j.Hours[10].Status = SlotPending
	j.DeriveStatus()
	if j.Status != JobPending {
		t.Fatalf("status = %v, want pending", j.Status)
	}
}

func TestDeriveStatusFailedOnlyWhenNoneRemainPending(t *testing.T) {
	j := NewJob("2025-08-25", time.Now())
	for i := range j.Hours {
		j.Hours[i].Status = SlotSuccess
	}
	j.Hours[5].Status = SlotFailed
	j.Hours[6].Status = SlotPending
	j.DeriveStatus()
	if j.Status != JobPending {
		t.Fatalf("status = %v, want pending while a slot remains pending", j.Status)
	}

	j.Hours[6].Status = SlotSuccess
	j.DeriveStatus()
	if j.Status != JobFailed {
		t.Fatalf("status = %v, want failed once no slot is pending and one failed", j.Status)
	}
}
