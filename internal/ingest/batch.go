package ingest

import (
	"context"
	"sync"
	"time"

	"media-vault/internal/logging"
	"media-vault/internal/metrics"
	"media-vault/internal/workers"
)

// IngestMany ingests a batch of source paths and returns one Outcome per
// path, in input order. Paths are processed concurrently across a worker
// pool sized for mixed CPU and IO work; one bad file never aborts the rest
// of the batch.
func (p *Pipeline) IngestMany(ctx context.Context, paths []string) []Outcome {
	if len(paths) == 0 {
		return nil
	}

	start := time.Now()
	metrics.IngestBatchSize.Observe(float64(len(paths)))

	numWorkers := workers.ForMixed(0)
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}
	metrics.IngestWorkers.Set(float64(numWorkers))
	logging.Debug("ingesting %d paths across %d workers", len(paths), numWorkers)

	results := make([]Outcome, len(paths))
	jobs := make(chan int, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = Outcome{Path: paths[i], Status: StatusFailed, Err: ctx.Err(), Error: ctx.Err().Error()}
					continue
				}
				results[i] = p.IngestOne(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var ingested, duplicates, failed int
	for _, r := range results {
		switch r.Status {
		case StatusIngested:
			ingested++
		case StatusDuplicate:
			duplicates++
		case StatusFailed:
			failed++
		}
	}
	logging.Info("batch ingest done in %v: %d ingested, %d duplicates, %d failed",
		time.Since(start).Round(time.Millisecond), ingested, duplicates, failed)

	return results
}
