package engine

import (
	"errors"
	"sync"
	"testing"

	"logbatcher/pkg/archive"
)

func TestLockKeyIsDateAndHourRangeScoped(t *testing.T) {
	if got, want := lockKey("2026-07-31", 9), "2026-07-31#09-10"; got != want {
		t.Fatalf("lockKey() = %q, want %q", got, want)
	}
}

func TestTryLockRejectsConcurrentHolder(t *testing.T) {
	p := &Processor{locks: make(map[string]*sync.Mutex)}
	_, acquired := p.tryLock("2026-07-31", 9)
	if !acquired {
		t.Fatal("expected first tryLock to succeed")
	}
	if _, acquired := p.tryLock("2026-07-31", 9); acquired {
		t.Fatal("expected second tryLock on the same slot to fail")
	}
}

func TestTryLockAllowsDistinctSlotsConcurrently(t *testing.T) {
	p := &Processor{locks: make(map[string]*sync.Mutex)}
	if _, acquired := p.tryLock("2026-07-31", 9); !acquired {
		t.Fatal("expected lock on hour 9 to succeed")
	}
	if _, acquired := p.tryLock("2026-07-31", 10); !acquired {
		t.Fatal("expected lock on a distinct hour to succeed independently")
	}
}

func TestReleaseLockAllowsReacquisitionAfterUnlock(t *testing.T) {
	p := &Processor{locks: make(map[string]*sync.Mutex)}
	m, acquired := p.tryLock("2026-07-31", 9)
	if !acquired {
		t.Fatal("expected first tryLock to succeed")
	}
	p.releaseLock("2026-07-31", 9)
	m.Unlock()

	if _, acquired := p.tryLock("2026-07-31", 9); !acquired {
		t.Fatal("expected tryLock to succeed again after release and unlock")
	}
}

func TestClassifyArchiveErrDistinguishesAuthFromUnavailable(t *testing.T) {
	authErr := classifyArchiveErr(archive.ErrAuth)
	e, ok := authErr.(*Error)
	if !ok || e.Kind != KindArchiveAuth {
		t.Fatalf("expected KindArchiveAuth, got %v", authErr)
	}

	genericErr := classifyArchiveErr(errors.New("connection refused"))
	e, ok = genericErr.(*Error)
	if !ok || e.Kind != KindArchiveUnavailable {
		t.Fatalf("expected KindArchiveUnavailable, got %v", genericErr)
	}
}

func TestClassifyArchiveErrNilIsNil(t *testing.T) {
	if classifyArchiveErr(nil) != nil {
		t.Fatal("expected nil in, nil out")
	}
}

func TestArchiveFormatForMapsKnownExtensions(t *testing.T) {
	cases := map[string]archive.CompressionFormat{
		"gz":   archive.CompressionGzip,
		"br":   archive.CompressionBrotli,
		"zip":  archive.CompressionZip,
		"":     archive.CompressionNone,
		"huh?": archive.CompressionNone,
	}
	for ext, want := range cases {
		if got := archiveFormatFor(ext); got != want {
			t.Errorf("archiveFormatFor(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestProviderLabelFallsBackToUnknown(t *testing.T) {
	p := &Processor{}
	if got := p.providerLabel(); got != "unknown" {
		t.Fatalf("providerLabel() = %q, want %q", got, "unknown")
	}
	p.cfg.Provider = "s3"
	if got := p.providerLabel(); got != "s3" {
		t.Fatalf("providerLabel() = %q, want %q", got, "s3")
	}
}
