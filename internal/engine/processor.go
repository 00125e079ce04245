package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"logbatcher/internal/metrics"
	"logbatcher/internal/store"
	"logbatcher/pkg/archive"
	"logbatcher/pkg/masking"
	"logbatcher/pkg/pathbuilder"
	"logbatcher/pkg/pipeline"
)

// SlotResult is the outcome of one Window Processor attempt.
type SlotResult struct {
	Date      string
	HourRange string
	Status    store.SlotStatus
	FilePath  string
	NoOp      bool
	Err       error
}

// ProcessorConfig bundles everything the Window Processor needs beyond
// its collaborators: the derived, immutable policy snapshot.
type ProcessorConfig struct {
	Provider       string
	FileFormat     string
	TimestampField string
	RetryAttempts  int
	AttemptTimeout time.Duration
	PathPolicy     pathbuilder.Policy
	Compression    archive.CompressionPolicy
	SpillDir       string
}

// Processor is the Window Processor: given (date, hour), it
// fetches the window's records, masks, serializes, optionally
// compresses, uploads, and commits the resulting slot transition.
type Processor struct {
	gateway *store.Gateway
	arc     archive.Adapter
	masker  *masking.Engine
	breaker *pipeline.CircuitBreaker
	cfg     ProcessorConfig
	logger  *zap.Logger
	spill   *spillStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProcessor wires a Window Processor over an already-connected
// gateway, archive adapter, and masking engine.
func NewProcessor(gateway *store.Gateway, arc archive.Adapter, masker *masking.Engine, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		gateway: gateway,
		arc:     arc,
		masker:  masker,
		breaker: pipeline.NewCircuitBreaker("archive-upload", 5, 30*time.Second, 2),
		cfg:     cfg,
		logger:  logger,
		spill:   newSpillStore(cfg.SpillDir),
		locks:   make(map[string]*sync.Mutex),
	}
}

func lockKey(date string, hour int) string {
	return date + "#" + store.HourRange(hour)
}

// releaseLock opportunistically evicts the (date, hour) mutex from the
// map once it is free, bounding the map's long-run size. A concurrent
// acquirer arriving between our Unlock and this call simply wins the
// race and keeps using the (to-be-evicted) entry's address, so no
// deletion miscounts a held lock as free.
func (p *Processor) releaseLock(date string, hour int) {
	key := lockKey(date, hour)
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[key]
	if !ok {
		return
	}
	if !m.TryLock() {
		return
	}
	delete(p.locks, key)
	m.Unlock()
}

// tryLock returns a held mutex for (date, hour), or false if another
// attempt already holds it.
func (p *Processor) tryLock(date string, hour int) (*sync.Mutex, bool) {
	key := lockKey(date, hour)
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	return m, m.TryLock()
}

// Process executes the 9-step Window Processor pipeline for (date, hour).
func (p *Processor) Process(ctx context.Context, date string, hour int) (SlotResult, error) {
	if hour < 0 || hour > 23 {
		return SlotResult{Date: date}, newErr(KindValidation, "process", fmt.Errorf("hour %d out of range", hour))
	}
	hourRange := store.HourRange(hour)
	result := SlotResult{Date: date, HourRange: hourRange}

	job, err := p.gateway.UpsertJob(ctx, date)
	if err != nil {
		return result, newErr(KindRecordStoreUnavailable, "process.upsertJob", err)
	}
	if job.Hours[hour].Status == store.SlotSuccess {
		result.Status = store.SlotSuccess
		result.FilePath = job.Hours[hour].FilePath
		result.NoOp = true
		return result, nil
	}

	lock, acquired := p.tryLock(date, hour)
	if !acquired {
		return result, newErr(KindSlotBusy, "process.lock", ErrSlotBusy)
	}
	defer p.releaseLock(date, hour)
	defer lock.Unlock()

	timeout := p.cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	filePath, etag, procErr := p.attempt(attemptCtx, date, hour, hourRange)
	if procErr != nil {
		p.logger.Warn("window processor attempt failed",
			zap.String("date", date), zap.String("hour_range", hourRange), zap.Error(procErr))
		return p.commitFailure(ctx, date, hour, hourRange, procErr)
	}

	return p.commitSuccess(ctx, date, hour, hourRange, filePath, etag)
}

func (p *Processor) attempt(ctx context.Context, date string, hour int, hourRange string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", newErr(KindCancelled, "process.attempt", err)
	}

	spillKey := lockKey(date, hour)
	serialized, spilled, spillErr := p.spill.Load(spillKey)
	if spillErr != nil {
		p.logger.Warn("failed to read staged spill, falling back to record store", zap.String("key", spillKey), zap.Error(spillErr))
		spilled = false
	}

	if !spilled {
		records, err := p.gateway.FindRecordsInWindow(ctx, date, hourRange, p.cfg.TimestampField)
		if err != nil {
			return "", "", newErr(KindRecordStoreUnavailable, "process.fetch", err)
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].RequestTime.Before(records[j].RequestTime)
		})

		masked := make([]map[string]interface{}, 0, len(records))
		for _, rec := range records {
			m := rec.ToMap()
			if p.masker != nil {
				m = p.masker.MaskRecord(m)
			}
			masked = append(masked, m)
		}

		serialized, err = Serialize(masked, p.cfg.FileFormat)
		if err != nil {
			return "", "", err
		}
	}

	body, ext, err := archive.Compress(serialized, p.cfg.Compression)
	if err != nil {
		return "", "", newErr(KindSerialization, "process.compress", err)
	}

	pathPolicy := p.cfg.PathPolicy
	pathPolicy.FileFormat = p.cfg.FileFormat
	pathPolicy.CompressionExt = ext
	loc, err := pathbuilder.Build(date, hourRange, "", pathPolicy)
	if err != nil {
		return "", "", newErr(KindValidation, "process.path", err)
	}
	key := loc.Key()

	contentType := archive.ContentType(p.cfg.FileFormat, archiveFormatFor(ext))
	var putErr error
	var location, etag string
	err = p.breaker.Execute(func() error {
		res, uploadErr := p.arc.Put(ctx, key, bytes.NewReader(body), contentType, nil)
		if uploadErr != nil {
			putErr = uploadErr
			return uploadErr
		}
		location = res.Location
		etag = res.ETag
		return nil
	})
	metrics.ArchiveCircuitState.WithLabelValues(p.providerLabel()).Set(float64(p.breaker.State()))
	if err != nil {
		if putErr == nil {
			putErr = err
		}
		classified := classifyArchiveErr(putErr)
		metrics.RecordArchiveError(p.providerLabel(), string(classified.(*Error).Kind))
		if spillSaveErr := p.spill.Save(spillKey, serialized); spillSaveErr != nil {
			p.logger.Warn("failed to stage spill after upload failure", zap.String("key", spillKey), zap.Error(spillSaveErr))
		}
		return "", "", classified
	}
	if location == "" {
		location = key
	}
	if delErr := p.spill.Delete(spillKey); delErr != nil {
		p.logger.Warn("failed to clear spill after successful upload", zap.String("key", spillKey), zap.Error(delErr))
	}
	metrics.RecordArchiveWrite(p.providerLabel(), len(body))
	return location, etag, nil
}

func archiveFormatFor(ext string) archive.CompressionFormat {
	switch ext {
	case "gz":
		return archive.CompressionGzip
	case "br":
		return archive.CompressionBrotli
	case "zip":
		return archive.CompressionZip
	default:
		return archive.CompressionNone
	}
}

func (p *Processor) providerLabel() string {
	if p.cfg.Provider != "" {
		return p.cfg.Provider
	}
	return "unknown"
}

func classifyArchiveErr(err error) error {
	if err == nil {
		return nil
	}
	kind := KindArchiveUnavailable
	if errors.Is(err, archive.ErrAuth) {
		kind = KindArchiveAuth
	}
	return newErr(kind, "process.upload", err)
}

func (p *Processor) commitSuccess(ctx context.Context, date string, hour int, hourRange, filePath, etag string) (SlotResult, error) {
	job, err := p.gateway.UpdateSlot(ctx, date, hour, func(slot *store.Slot) {
		slot.Status = store.SlotSuccess
		slot.FilePath = filePath
		slot.FileName = hourRange
		slot.ETag = etag
	})
	if err != nil {
		return SlotResult{Date: date, HourRange: hourRange}, newErr(KindRecordStoreUnavailable, "process.commit", err)
	}
	_ = p.gateway.AppendProcessingLog(ctx, store.ProcessingLog{
		Date: date, HourRange: hourRange, Status: store.ProcessingSuccess, FilePath: filePath, ETag: etag,
	})
	metrics.RecordSlotOutcome(string(store.SlotSuccess), 0, 0)
	return SlotResult{
		Date: date, HourRange: hourRange,
		Status:   job.Hours[hour].Status,
		FilePath: filePath,
	}, nil
}

func (p *Processor) commitFailure(ctx context.Context, date string, hour int, hourRange string, cause error) (SlotResult, error) {
	kind := KindArchiveUnavailable
	if asErr, ok := cause.(*Error); ok {
		kind = asErr.Kind
	}

	job, err := p.gateway.UpdateSlot(ctx, date, hour, func(slot *store.Slot) {
		maxRetries := p.cfg.RetryAttempts
		if slot.Retries < maxRetries {
			slot.Retries++
		}
		slot.Status = store.SlotFailed
		slot.Logs = append(slot.Logs, store.LogEntry{Timestamp: time.Now().UTC(), Error: cause.Error()})
	})
	if err != nil {
		return SlotResult{Date: date, HourRange: hourRange, Err: cause}, newErr(KindRecordStoreUnavailable, "process.commitFailure", err)
	}
	_ = p.gateway.AppendProcessingLog(ctx, store.ProcessingLog{
		Date: date, HourRange: hourRange, Status: store.ProcessingFailure, Error: cause.Error(),
	})
	metrics.RecordSlotRetry(string(kind))
	metrics.RecordSlotOutcome(string(store.SlotFailed), 0, 0)
	return SlotResult{
		Date: date, HourRange: hourRange,
		Status: job.Hours[hour].Status,
		Err:    cause,
	}, cause
}
