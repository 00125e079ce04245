// Package retention implements the Retention Engine: two
// independently invocable sweepers, one over Record Store Gateway
// collections and one over the Archive Adapter's keys, both supporting
// dryRun and neither ever deleting a pending job row.
package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"logbatcher/internal/store"
	"logbatcher/pkg/archive"
)

// Config is the immutable retention policy snapshot.
type Config struct {
	APILogsTTLDays        int
	JobsTTLDays           int
	LogsTTLDays           int
	FilesTTLDays          int
	APILogsTimestampField string
	S3Lifecycle           archive.LifecycleRule
	ApplyS3Lifecycle      bool
}

// CollectionStats reports the row count and over-age subset for one
// logical collection.
type CollectionStats struct {
	Total   int64
	OverAge int64
}

// DBStats is the per-collection breakdown returned by Stats.
type DBStats struct {
	APILogs CollectionStats
	Jobs    CollectionStats
	Logs    CollectionStats
}

// StorageStats is the archive-side breakdown returned by Stats.
type StorageStats struct {
	Files        int64
	Size         int64
	OverAgeFiles int64
	OverAgeSize  int64
}

// Stats is the result of Engine.Stats.
type Stats struct {
	DB      DBStats
	Storage StorageStats
}

// CleanupOptions selects which sweepers run and whether to mutate.
type CleanupOptions struct {
	DB      bool
	Storage bool
	DryRun  bool
}

// CleanupCounts reports what was (or would be) deleted.
type CleanupCounts struct {
	APILogsDeleted   int64
	JobsDeleted      int64
	LogsDeleted      int64
	ArchiveKeysDeleted int64
}

// Engine is the Retention Engine.
type Engine struct {
	gateway *store.Gateway
	arc     archive.Adapter
	cfg     Config
	logger  *zap.Logger
}

// New wires a Retention Engine over an already-connected gateway and
// archive adapter.
func New(gateway *store.Gateway, arc archive.Adapter, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{gateway: gateway, arc: arc, cfg: cfg, logger: logger}
}

func cutoff(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// Stats reports current row/key counts and the over-age subset under
// the configured TTLs, without mutating anything.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var out Stats

	apiTotal, apiOver, err := e.gateway.CountCollection(ctx, "apiLogs", e.cfg.APILogsTimestampField, cutoff(e.cfg.APILogsTTLDays))
	if err != nil {
		return out, fmt.Errorf("retention: stats apiLogs: %w", err)
	}
	out.DB.APILogs = CollectionStats{Total: apiTotal, OverAge: apiOver}

	jobsTotal, jobsOver, err := e.gateway.CountCollection(ctx, "jobs", "", cutoff(e.cfg.JobsTTLDays))
	if err != nil {
		return out, fmt.Errorf("retention: stats jobs: %w", err)
	}
	out.DB.Jobs = CollectionStats{Total: jobsTotal, OverAge: jobsOver}

	logsTotal, logsOver, err := e.gateway.CountCollection(ctx, "logs", "", cutoff(e.cfg.LogsTTLDays))
	if err != nil {
		return out, fmt.Errorf("retention: stats logs: %w", err)
	}
	out.DB.Logs = CollectionStats{Total: logsTotal, OverAge: logsOver}

	storage, err := e.storageStats(ctx)
	if err != nil {
		return out, err
	}
	out.Storage = storage

	return out, nil
}

func (e *Engine) storageStats(ctx context.Context) (StorageStats, error) {
	var stats StorageStats
	filesCutoff := cutoff(e.cfg.FilesTTLDays)

	it, err := e.arc.List(ctx, "", time.Time{})
	if err != nil {
		return stats, fmt.Errorf("retention: list archive: %w", err)
	}
	defer it.Close()

	for {
		obj, ok, err := it.Next(ctx)
		if err != nil {
			return stats, fmt.Errorf("retention: list archive: %w", err)
		}
		if !ok {
			break
		}
		stats.Files++
		stats.Size += obj.Size
		if !filesCutoff.IsZero() && obj.LastModified.Before(filesCutoff) {
			stats.OverAgeFiles++
			stats.OverAgeSize += obj.Size
		}
	}
	return stats, nil
}

// RunManualCleanup executes the selected sweepers. Under DryRun, it
// reports the counts that would be deleted without mutating any
// collection or archive key. Jobs rows with status == pending are
// never deleted, regardless of age.
func (e *Engine) RunManualCleanup(ctx context.Context, opts CleanupOptions) (CleanupCounts, error) {
	var out CleanupCounts

	if opts.DB {
		n, err := e.gateway.DeleteRecordsOlderThan(ctx, e.cfg.APILogsTimestampField, cutoff(e.cfg.APILogsTTLDays), opts.DryRun)
		if err != nil {
			return out, fmt.Errorf("retention: cleanup apiLogs: %w", err)
		}
		out.APILogsDeleted = n

		n, err = e.gateway.DeleteJobsOlderThan(ctx, cutoff(e.cfg.JobsTTLDays), opts.DryRun)
		if err != nil {
			return out, fmt.Errorf("retention: cleanup jobs: %w", err)
		}
		out.JobsDeleted = n

		n, err = e.gateway.DeleteLogsOlderThan(ctx, cutoff(e.cfg.LogsTTLDays), opts.DryRun)
		if err != nil {
			return out, fmt.Errorf("retention: cleanup logs: %w", err)
		}
		out.LogsDeleted = n
	}

	if opts.Storage {
		n, err := e.cleanupArchive(ctx, opts.DryRun)
		if err != nil {
			return out, err
		}
		out.ArchiveKeysDeleted = n
	}

	return out, nil
}

func (e *Engine) cleanupArchive(ctx context.Context, dryRun bool) (int64, error) {
	filesCutoff := cutoff(e.cfg.FilesTTLDays)
	if filesCutoff.IsZero() {
		return 0, nil
	}

	it, err := e.arc.List(ctx, "", time.Time{})
	if err != nil {
		return 0, fmt.Errorf("retention: list archive: %w", err)
	}
	defer it.Close()

	var stale []string
	for {
		obj, ok, err := it.Next(ctx)
		if err != nil {
			return 0, fmt.Errorf("retention: list archive: %w", err)
		}
		if !ok {
			break
		}
		if obj.LastModified.Before(filesCutoff) {
			stale = append(stale, obj.Key)
		}
	}

	if dryRun || len(stale) == 0 {
		return int64(len(stale)), nil
	}

	outcomes, err := e.arc.Delete(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("retention: delete archive keys: %w", err)
	}
	var deleted int64
	for _, o := range outcomes {
		if o.Err == nil {
			deleted++
		} else {
			e.logger.Warn("retention: failed to delete archive key", zap.String("key", o.Key), zap.Error(o.Err))
		}
	}
	return deleted, nil
}

// SetupLifecycle pushes the configured declarative lifecycle policy to
// the archive backend, where supported. Idempotent; safe on every
// boot. A failure here is a warning, not fatal — the in-process sweep
// still runs.
func (e *Engine) SetupLifecycle(ctx context.Context) error {
	if !e.cfg.ApplyS3Lifecycle {
		return nil
	}
	rules := []archive.LifecycleRule{e.cfg.S3Lifecycle}
	if err := e.arc.SetLifecycle(ctx, rules); err != nil {
		return fmt.Errorf("retention: setup lifecycle: %w", err)
	}
	return nil
}
