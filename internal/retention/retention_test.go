package retention

import (
	"context"
	"io"
	"testing"
	"time"

	"logbatcher/pkg/archive"
)

func TestCutoffZeroDaysMeansNoTTL(t *testing.T) {
	if got := cutoff(0); !got.IsZero() {
		t.Fatalf("expected zero time for days<=0, got %v", got)
	}
	if got := cutoff(-1); !got.IsZero() {
		t.Fatalf("expected zero time for negative days, got %v", got)
	}
}

func TestCutoffPositiveDaysIsInThePast(t *testing.T) {
	got := cutoff(7)
	if !got.Before(time.Now().UTC()) {
		t.Fatalf("expected cutoff(7) to be in the past, got %v", got)
	}
}

// fakeAdapter implements archive.Adapter with an in-memory object list,
// exercising only the List/Delete paths the retention sweepers use.
type fakeAdapter struct {
	objects []archive.ObjectInfo
	deleted []string
}

func (f *fakeAdapter) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (archive.PutResult, error) {
	return archive.PutResult{}, nil
}
func (f *fakeAdapter) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (f *fakeAdapter) List(ctx context.Context, prefix string, sinceTime time.Time) (archive.Iterator, error) {
	return &fakeIterator{items: f.objects}, nil
}
func (f *fakeAdapter) Delete(ctx context.Context, keys ...string) ([]archive.DeleteOutcome, error) {
	f.deleted = append(f.deleted, keys...)
	outcomes := make([]archive.DeleteOutcome, len(keys))
	for i, k := range keys {
		outcomes[i] = archive.DeleteOutcome{Key: k}
	}
	return outcomes, nil
}
func (f *fakeAdapter) SetLifecycle(ctx context.Context, rules []archive.LifecycleRule) error {
	return nil
}

type fakeIterator struct {
	items []archive.ObjectInfo
	pos   int
}

func (it *fakeIterator) Next(ctx context.Context) (archive.ObjectInfo, bool, error) {
	if it.pos >= len(it.items) {
		return archive.ObjectInfo{}, false, nil
	}
	item := it.items[it.pos]
	it.pos++
	return item, true, nil
}
func (it *fakeIterator) Close() error { return nil }

func TestStorageStatsSplitsOverAgeByFilesCutoff(t *testing.T) {
	now := time.Now().UTC()
	arc := &fakeAdapter{objects: []archive.ObjectInfo{
		{Key: "fresh", Size: 10, LastModified: now},
		{Key: "stale", Size: 20, LastModified: now.AddDate(0, 0, -30)},
	}}
	e := New(nil, arc, Config{FilesTTLDays: 7}, nil)

	stats, err := e.storageStats(context.Background())
	if err != nil {
		t.Fatalf("storageStats: %v", err)
	}
	if stats.Files != 2 || stats.Size != 30 {
		t.Fatalf("expected 2 files totalling 30 bytes, got %+v", stats)
	}
	if stats.OverAgeFiles != 1 || stats.OverAgeSize != 20 {
		t.Fatalf("expected 1 over-age file of 20 bytes, got %+v", stats)
	}
}

func TestCleanupArchiveDeletesOnlyStaleKeysUnlessDryRun(t *testing.T) {
	now := time.Now().UTC()
	arc := &fakeAdapter{objects: []archive.ObjectInfo{
		{Key: "fresh", LastModified: now},
		{Key: "stale", LastModified: now.AddDate(0, 0, -30)},
	}}
	e := New(nil, arc, Config{FilesTTLDays: 7}, nil)

	n, err := e.cleanupArchive(context.Background(), true)
	if err != nil {
		t.Fatalf("cleanupArchive dry-run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected dry-run count of 1, got %d", n)
	}
	if len(arc.deleted) != 0 {
		t.Fatalf("expected no deletes under dry-run, got %v", arc.deleted)
	}

	n, err = e.cleanupArchive(context.Background(), false)
	if err != nil {
		t.Fatalf("cleanupArchive: %v", err)
	}
	if n != 1 || len(arc.deleted) != 1 || arc.deleted[0] != "stale" {
		t.Fatalf("expected exactly 'stale' deleted, got n=%d deleted=%v", n, arc.deleted)
	}
}

func TestCleanupArchiveNoopWithoutFilesTTL(t *testing.T) {
	arc := &fakeAdapter{objects: []archive.ObjectInfo{{Key: "anything", LastModified: time.Now().UTC().AddDate(-1, 0, 0)}}}
	e := New(nil, arc, Config{}, nil)

	n, err := e.cleanupArchive(context.Background(), false)
	if err != nil {
		t.Fatalf("cleanupArchive: %v", err)
	}
	if n != 0 || len(arc.deleted) != 0 {
		t.Fatalf("expected no-op without a configured files TTL, got n=%d deleted=%v", n, arc.deleted)
	}
}

func TestSetupLifecycleNoopUnlessApplyS3Lifecycle(t *testing.T) {
	arc := &fakeAdapter{}
	e := New(nil, arc, Config{ApplyS3Lifecycle: false}, nil)
	if err := e.SetupLifecycle(context.Background()); err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
}
