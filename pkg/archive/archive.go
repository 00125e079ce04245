// Package archive defines the uniform object-store contract used by
// the Window Processor and Retention Engine, and the concrete
// {local, s3, gcs, azure} variants behind it.
package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

// Errors surfaced by every Adapter implementation. Callers distinguish
// transient transport failures from credential rejection; ArchiveConflict
// is never returned — last-write-wins on an identical key.
var (
	ErrUnavailable = errors.New("archive: backend unavailable")
	ErrAuth        = errors.New("archive: credential rejected")
	ErrNotFound    = errors.New("archive: key not found")
)

// ObjectInfo describes one entry returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// PutResult is returned from a successful Put.
type PutResult struct {
	Location string // URL (cloud backends) or filesystem path (local)
	ETag     string
}

// LifecycleRule declares a storage-class transition or expiration
// policy. Only the S3 variant applies these rules; the Local, GCS and
// Azure variants accept them and do nothing.
type LifecycleRule struct {
	ID                     string
	Prefix                 string
	TransitionToIADays     int
	TransitionToGlacierDays int
	TransitionToDeepArchiveDays int
	ExpirationDays         int
}

// DeleteOutcome reports the per-key result of a bulk Delete.
type DeleteOutcome struct {
	Key string
	Err error
}

// Adapter is the uniform surface implemented by every backend variant.
// Retries on transient failures are the caller's responsibility; the
// adapter itself performs at most the provider SDK's own built-in retry.
type Adapter interface {
	// Put uploads bytes under key with the given content type and
	// optional metadata, returning the resulting location.
	Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (PutResult, error)

	// Get fetches the bytes stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List lazily enumerates keys under prefix, optionally restricted to
	// objects modified at or after sinceTime. The returned iterator is
	// restartable on network hiccup by re-issuing List with the same
	// prefix; it is not resumable mid-iteration.
	List(ctx context.Context, prefix string, sinceTime time.Time) (Iterator, error)

	// Delete removes the given keys in bulk, reporting a per-key outcome.
	Delete(ctx context.Context, keys ...string) ([]DeleteOutcome, error)

	// SetLifecycle pushes a declarative retention policy to the backend,
	// where supported. Backends without native lifecycle support no-op.
	SetLifecycle(ctx context.Context, rules []LifecycleRule) error
}

// Iterator lazily yields ObjectInfo entries from a List call.
type Iterator interface {
	Next(ctx context.Context) (ObjectInfo, bool, error)
	Close() error
}

// sliceIterator adapts an in-memory slice to Iterator, used by
// backends whose list API already materializes a page of results.
type sliceIterator struct {
	items []ObjectInfo
	pos   int
}

func newSliceIterator(items []ObjectInfo) *sliceIterator {
	return &sliceIterator{items: items}
}

func (it *sliceIterator) Next(ctx context.Context) (ObjectInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, false, err
	}
	if it.pos >= len(it.items) {
		return ObjectInfo{}, false, nil
	}
	item := it.items[it.pos]
	it.pos++
	return item, true, nil
}

func (it *sliceIterator) Close() error { return nil }
