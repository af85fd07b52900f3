package enrich

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stellarlinkco/clawscope/internal/event"
)

// ItemFunc annotates one event in place. A returned error leaves the
// event unenriched and is counted, never raised: the batch continues.
type ItemFunc func(ctx context.Context, e *event.LogEvent) error

// Stats is the final accounting of one enrichment pass.
type Stats struct {
	Targets     int
	Enriched    int
	Failed      int
	Checkpoints int
}

// Runner drives an enrichment pass over selected events with bounded
// concurrency, a fixed inter-request delay for rate limits, and a
// checkpoint save after every batch so an interrupted run loses at most
// one batch of work. There is no file locking; two concurrent passes
// against the same collection are unsupported.
type Runner struct {
	Concurrency     int
	Delay           time.Duration
	CheckpointEvery int

	// Checkpoint persists the collection mid-pass. Called between
	// batches only, never while workers are mutating events.
	Checkpoint func(col *event.Collection) error
}

// Run applies fn to col.Events at the given indices. Indices are
// expected to be prefiltered for idempotence: events already carrying
// the target field are not passed in unless the operator forces a redo.
func (r *Runner) Run(ctx context.Context, col *event.Collection, indices []int, fn ItemFunc) (Stats, error) {
	stats := Stats{Targets: len(indices)}
	if len(indices) == 0 {
		return stats, nil
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	batchSize := r.CheckpointEvery
	if batchSize <= 0 {
		batchSize = 50
	}

	for start := 0; start < len(indices); start += batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + batchSize
		if end > len(indices) {
			end = len(indices)
		}
		batch := indices[start:end]

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			sem = make(chan struct{}, concurrency)
		)
		for _, idx := range batch {
			idx := idx
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				err := fn(ctx, &col.Events[idx])

				mu.Lock()
				if err != nil {
					stats.Failed++
					log.Printf("[enrich] item %s failed: %v", col.Events[idx].ID, err)
				} else {
					stats.Enriched++
				}
				mu.Unlock()

				if r.Delay > 0 {
					time.Sleep(r.Delay)
				}
			}()
		}
		wg.Wait()

		if r.Checkpoint != nil {
			if err := r.Checkpoint(col); err != nil {
				return stats, err
			}
			stats.Checkpoints++
		}
		log.Printf("[enrich] progress %d/%d (failed %d)", end, len(indices), stats.Failed)
	}

	return stats, nil
}

// SelectIndices returns the positions of events that match the target
// predicate and still lack the field being produced (unless force).
func SelectIndices(col *event.Collection, force bool, target func(e *event.LogEvent) bool, has func(e *event.LogEvent) bool) []int {
	var indices []int
	for i := range col.Events {
		e := &col.Events[i]
		if !target(e) {
			continue
		}
		if !force && has(e) {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}
