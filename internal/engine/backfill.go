package engine

import (
	"context"
	"sync"
	"time"

	"logbatcher/pkg/pipeline"
)

// slotTask is one (date, hour) unit of work submitted for parallel
// reprocessing — the explicit-API parallel path:
// "different (date, hour) pairs MAY proceed in parallel when invoked
// via explicit API."
type slotTask struct {
	Date string
	Hour int
}

// slotBatchProcessor adapts pkg/pipeline.WorkerPool's batch-oriented
// EventProcessor contract to the Window Processor. The pool is built
// for a continuously-flowing event stream (batched on a ticker, stats
// only); here it drives a bounded, known-size set of slot tasks, so
// results are accumulated under a mutex instead of returned inline.
type slotBatchProcessor struct {
	proc *Processor

	mu      sync.Mutex
	results []SlotResult
}

func (b *slotBatchProcessor) Process(ctx context.Context, events []pipeline.Event) error {
	for _, ev := range events {
		date, _ := ev.Metadata["date"].(string)
		hour, _ := ev.Metadata["hour"].(int)
		res, _ := b.proc.Process(ctx, date, hour)
		b.mu.Lock()
		b.results = append(b.results, res)
		b.mu.Unlock()
	}
	return nil
}

// processParallel reprocesses tasks concurrently through a bounded
// worker pool rather than one at a time; each task still goes through
// Process's own per-(date,hour) advisory lock, so overlapping callers
// can never double-process the same slot. The pool has no built-in
// drain-completion signal (it is designed for an unbounded stream), so
// completion here is detected by polling the pool's processed counter
// against the known task count, bounded by a safety deadline.
func (p *Processor) processParallel(ctx context.Context, tasks []slotTask) []SlotResult {
	if len(tasks) == 0 {
		return nil
	}

	batch := &slotBatchProcessor{proc: p}
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := pipeline.NewWorkerPool(4, len(tasks), len(tasks)+1, batch)
	pool.Start(poolCtx)

	for _, t := range tasks {
		ev := pipeline.Event{SourceID: t.Date, Metadata: map[string]interface{}{"date": t.Date, "hour": t.Hour}}
		for !pool.Submit(ev) {
			time.Sleep(time.Millisecond)
		}
	}

	deadline := time.Now().Add(2 * time.Minute)
	for {
		if int(pool.Snapshot().Processed) >= len(tasks) || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	pool.Stop()
	return batch.results
}
