package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"logbatcher/internal/config"
	"logbatcher/internal/retention"
	"logbatcher/internal/secrets"
	"logbatcher/internal/secrets/vault"
	"logbatcher/internal/store"
	"logbatcher/pkg/archive"
	"logbatcher/pkg/masking"
)

// Engine is the Public Surface: the single stable entry point
// usable from the CLI dispatcher, an embedding program, or a future
// remote-service wrapper. All fields are set once at New and treated
// as an immutable snapshot thereafter, bar the gateway/archive client
// handles themselves (thread-safe by contract).
type Engine struct {
	cfg       *config.Config
	gateway   *store.Gateway
	arc       archive.Adapter
	masker    *masking.Engine
	processor *Processor
	retention *retention.Engine
	logger    *zap.Logger
	loc       *time.Location
}

// New validates cfg, connects the Record Store Gateway, builds the
// Archive Adapter and Masking Engine, and returns a ready-to-use
// Engine. It does not register scheduler triggers; that is the
// scheduler package's job, wired against this Engine's public methods.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs, _ := cfg.Validate(); len(errs) > 0 {
		return nil, newErr(KindValidation, "engine.New", fmt.Errorf("invalid configuration: %v", errs))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, newErr(KindValidation, "engine.New", err)
	}

	vaultClient, err := vault.NewClient(cfg.Vault)
	if err != nil {
		return nil, newErr(KindValidation, "engine.New", fmt.Errorf("vault client: %w", err))
	}
	if vaultClient != nil {
		if err := secrets.ReplacePlaceholders(ctx, cfg, vaultClient); err != nil {
			return nil, newErr(KindValidation, "engine.New", fmt.Errorf("resolve vault:// secret references: %w", err))
		}
	}

	gateway, err := store.Connect(ctx, cfg.DBURI, dbNameFromURI(cfg.DBURI), store.CollectionNames{
		Jobs:    cfg.Collections.JobsCollectionName,
		Logs:    cfg.Collections.LogsCollectionName,
		APILogs: cfg.Collections.APILogsCollectionName,
	}, logger)
	if err != nil {
		return nil, newErr(KindRecordStoreUnavailable, "engine.New", err)
	}

	arc, err := archive.New(ctx, archiveConfigFrom(cfg), logger)
	if err != nil {
		return nil, newErr(KindArchiveUnavailable, "engine.New", err)
	}

	masker, warnings, err := masking.New(maskingPolicyFrom(cfg))
	if err != nil {
		return nil, newErr(KindValidation, "engine.New", err)
	}
	for _, w := range warnings {
		logger.Warn("masking policy warning", zap.String("warning", w))
	}

	processor := NewProcessor(gateway, arc, masker, ProcessorConfig{
		Provider:       cfg.UploadProvider,
		FileFormat:     cfg.FileFormat,
		TimestampField: timestampFieldFrom(cfg),
		RetryAttempts:  cfg.RetryAttempts,
		AttemptTimeout: 5 * time.Minute,
		PathPolicy:     pathPolicyFrom(cfg),
		Compression:    compressionPolicyFrom(cfg),
	}, logger)

	retentionEngine := retention.New(gateway, arc, retentionConfigFrom(cfg), logger)

	return &Engine{
		cfg:       cfg,
		gateway:   gateway,
		arc:       arc,
		masker:    masker,
		processor: processor,
		retention: retentionEngine,
		logger:    logger,
		loc:       loc,
	}, nil
}

// ValidateConfig performs static validation of cfg without connecting
// anything, used by the CLI's standalone `init` path and tests.
func ValidateConfig(cfg *config.Config) (isValid bool, errs []string) {
	errs, _ = cfg.Validate()
	return len(errs) == 0, errs
}

// SaveRecord is the producer path: inserts rec into api-records,
// stamping RequestTime with the current UTC time when it is zero.
// No masking is applied here; the record is stored as given.
func (e *Engine) SaveRecord(ctx context.Context, rec store.APIRecord) (string, error) {
	if rec.RequestTime.IsZero() {
		rec.RequestTime = time.Now().UTC()
	}
	return e.gateway.SaveRecord(ctx, rec)
}

// FindRecords issues an ad-hoc query against api-records.
func (e *Engine) FindRecords(ctx context.Context, f store.Filter) ([]store.APIRecord, error) {
	return e.gateway.FindRecords(ctx, f)
}

// FindRecordsInWindow is the windowed specialization of FindRecords.
func (e *Engine) FindRecordsInWindow(ctx context.Context, date, hourRange string) ([]store.APIRecord, error) {
	return e.gateway.FindRecordsInWindow(ctx, date, hourRange, timestampFieldFrom(e.cfg))
}

// CreateDailyJobs idempotently ensures a job row exists for date
// (defaulting to the engine's configured-timezone "today").
func (e *Engine) CreateDailyJobs(ctx context.Context, date string) (store.Job, error) {
	if date == "" {
		date = time.Now().In(e.loc).Format("2006-01-02")
	}
	return e.gateway.UpsertJob(ctx, date)
}

// RunHourlyJob processes the immediately preceding clock hour in the
// engine's configured timezone.
func (e *Engine) RunHourlyJob(ctx context.Context) (SlotResult, error) {
	now := time.Now().In(e.loc)
	prev := now.Add(-time.Hour)
	date := prev.Format("2006-01-02")
	return e.processor.Process(ctx, date, prev.Hour())
}

// ProcessSpecificHour is the direct-invocation path, bypassing cron.
func (e *Engine) ProcessSpecificHour(ctx context.Context, date string, hour int) (SlotResult, error) {
	return e.processor.Process(ctx, date, hour)
}

// RetryFailedJobs scans the last K days of jobs for failed slots with
// retries below the configured max, resets them to pending, and
// immediately reprocesses each.
func (e *Engine) RetryFailedJobs(ctx context.Context) ([]SlotResult, error) {
	const lookbackDays = 7
	var tasks []slotTask

	now := time.Now().In(e.loc)
	for d := 0; d < lookbackDays; d++ {
		date := now.AddDate(0, 0, -d).Format("2006-01-02")
		job, err := e.gateway.LoadJob(ctx, date)
		if err != nil {
			return nil, newErr(KindRecordStoreUnavailable, "retryFailedJobs", err)
		}
		if job == nil {
			continue
		}
		for hour, slot := range job.Hours {
			if slot.Status != store.SlotFailed || slot.Retries >= e.cfg.RetryAttempts {
				continue
			}
			if _, err := e.gateway.UpdateSlot(ctx, date, hour, func(s *store.Slot) {
				s.Status = store.SlotPending
			}); err != nil {
				return nil, newErr(KindRecordStoreUnavailable, "retryFailedJobs", err)
			}
			tasks = append(tasks, slotTask{Date: date, Hour: hour})
		}
	}
	return e.processor.processParallel(ctx, tasks), nil
}

// GetJobStatus returns the full job row for date, slot detail
// included, or nil when no job exists for that date.
func (e *Engine) GetJobStatus(ctx context.Context, date string) (*store.Job, error) {
	return e.gateway.LoadJob(ctx, date)
}

// GetProcessingLogs returns processing-log rows, optionally filtered
// by date and/or hourRange.
func (e *Engine) GetProcessingLogs(ctx context.Context, date, hourRange string) ([]store.ProcessingLog, error) {
	return e.gateway.GetProcessingLogs(ctx, date, hourRange)
}

// RetentionStats reports retention stats without mutating anything.
func (e *Engine) RetentionStats(ctx context.Context) (retention.Stats, error) {
	return e.retention.Stats(ctx)
}

// RetentionCleanup runs the retention sweepers per opts.
func (e *Engine) RetentionCleanup(ctx context.Context, opts retention.CleanupOptions) (retention.CleanupCounts, error) {
	return e.retention.RunManualCleanup(ctx, opts)
}

// RetentionSetupLifecycle pushes the configured archive lifecycle
// policy; idempotent and safe on every boot.
func (e *Engine) RetentionSetupLifecycle(ctx context.Context) error {
	return e.retention.SetupLifecycle(ctx)
}

// PingArchive probes archive reachability with an empty-prefix
// listing; cmd/logbatcher adapts it to diagnostics.ArchivePinger.
func (e *Engine) PingArchive(ctx context.Context) error {
	it, err := e.arc.List(ctx, "", time.Time{})
	if err != nil {
		return err
	}
	defer it.Close()
	_, _, err = it.Next(ctx)
	return err
}

// PingStore probes the record store; cmd/logbatcher adapts it to
// diagnostics.GatewayPinger.
func (e *Engine) PingStore(ctx context.Context) error {
	return e.gateway.Ping(ctx)
}

// Shutdown closes the gateway connection. Scheduler drain (in-flight
// attempt settling) is the scheduler package's responsibility; by the
// time Shutdown is called here no new work should be admitted.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.gateway.Close(ctx)
}
