package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLocalPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	ctx := context.Background()
	body := []byte(`{"hello":"world"}`)
	if _, err := a.Put(ctx, "2026/03/05/api-logs_2026-03-05_00-01.json", bytes.NewReader(body), "application/json", nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := a.Get(ctx, "2026/03/05/api-logs_2026-03-05_00-01.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Get() = %q, want %q", got, body)
	}
}

func TestLocalGetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	_, err = a.Get(context.Background(), "never/written.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestLocalPutDoesNotLeaveTmpFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()
	if _, err := a.Put(ctx, "x/y.json", bytes.NewReader([]byte("{}")), "application/json", nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "x", "y.json.tmp")); statErr == nil {
		t.Error("expected .tmp file to be renamed away, but it still exists")
	}
}

func TestLocalListFiltersBySinceTime(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()
	if _, err := a.Put(ctx, "2026/03/05/old.json", bytes.NewReader([]byte("{}")), "application/json", nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	future := time.Now().Add(time.Hour)
	it, err := a.List(ctx, "2026/03/05", future)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	_, ok, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ok {
		t.Error("expected no entries newer than a future sinceTime")
	}
}

func TestLocalListReturnsSortedKeys(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"2026/03/05/b.json", "2026/03/05/a.json", "2026/03/05/c.json"} {
		if _, err := a.Put(ctx, key, bytes.NewReader([]byte("{}")), "application/json", nil); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	it, err := a.List(ctx, "2026/03/05", time.Time{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var keys []string
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if !ok {
			break
		}
		keys = append(keys, item.Key)
	}
	want := []string{"2026/03/05/a.json", "2026/03/05/b.json", "2026/03/05/c.json"}
	if len(keys) != len(want) {
		t.Fatalf("List() returned %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestLocalDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()
	if _, err := a.Put(ctx, "x/y.json", bytes.NewReader([]byte("{}")), "application/json", nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	outcomes, err := a.Delete(ctx, "x/y.json")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Fatalf("Delete() outcomes = %+v", outcomes)
	}
	if _, getErr := a.Get(ctx, "x/y.json"); !errors.Is(getErr, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", getErr)
	}
}

func TestLocalSetLifecycleIsNoop(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocal(LocalConfig{BaseDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	if err := a.SetLifecycle(context.Background(), []LifecycleRule{{ID: "r1", Prefix: "x/"}}); err != nil {
		t.Errorf("SetLifecycle() error = %v, want nil", err)
	}
}
