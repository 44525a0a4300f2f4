// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/router"
)

// MaxDefaultWorkers caps the default worker count.
const MaxDefaultWorkers = 8

// DefaultWorkers returns min(NumCPU, 8).
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxDefaultWorkers)
}

// ParallelProcessor dispatches sources to a worker pool and feeds every
// batch to one aggregator from a single collector loop.
type ParallelProcessor struct {
	workers      int
	capabilities *router.CapabilityRegistry
	observer     *observability.StandardObserver
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalSources   int           `json:"total_sources"`
	ScannedSources int           `json:"scanned_sources"`
	FailedSources  int           `json:"failed_sources"`
	TotalFindings  int           `json:"total_findings"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgSourceTime  time.Duration `json:"avg_source_time_ms"`
}

// NewParallelProcessor creates a processor. workers <= 0 uses
// DefaultWorkers.
func NewParallelProcessor(workers int, capabilities *router.CapabilityRegistry, observer *observability.StandardObserver) *ParallelProcessor {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &ParallelProcessor{workers: workers, capabilities: capabilities, observer: observer}
}

// Workers returns the configured worker count
func (pp *ParallelProcessor) Workers() int {
	return pp.workers
}

// ProgressCallback is called by the collector after each source completes.
type ProgressCallback func(completed, total int, current string)

// ProcessSources scans sources concurrently. Source i is submitted with
// Seq i, so the aggregator orders the report by position in sources. The
// context error is returned when the run is cancelled; sources that never
// started are missing from agg.
func (pp *ParallelProcessor) ProcessSources(ctx context.Context, engine *detector.Engine, sources []router.Source, agg *aggregate.Aggregator, progress ProgressCallback) (*ProcessingStats, error) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if pp.observer != nil {
		finishTiming = pp.observer.StartTiming("parallel_processor", "process_sources", "batch")
	}

	workers := min(pp.workers, max(len(sources), 1))
	pool := NewWorkerPool(workers, engine, pp.capabilities, pp.observer)
	pool.Start(ctx)

	go func() {
		defer pool.Close()
		for i, src := range sources {
			if !pool.Submit(ctx, Job{Seq: i, Source: src}) {
				return
			}
		}
	}()

	stats := &ProcessingStats{TotalSources: len(sources), WorkerCount: workers}
	var sourceTime time.Duration
	completed := 0

	for batch := range pool.Results() {
		completed++
		sourceTime += batch.Duration
		if batch.Err != nil {
			stats.FailedSources++
			pp.logger().Warn("source failed",
				zap.String("source", batch.Source),
				zap.Error(batch.Err))
		} else {
			stats.ScannedSources++
			stats.TotalFindings += len(batch.Findings)
		}

		if err := agg.Submit(batch); err != nil {
			pp.logger().Error("dropping batch", zap.Error(err))
		}
		if progress != nil {
			progress(completed, len(sources), batch.Source)
		}
	}

	stats.TotalDuration = time.Since(start)
	stats.AvgSourceTime = sourceTime / time.Duration(max(completed, 1))

	if finishTiming != nil {
		finishTiming(ctx.Err() == nil, map[string]interface{}{
			"total_sources":   stats.TotalSources,
			"scanned_sources": stats.ScannedSources,
			"failed_sources":  stats.FailedSources,
			"total_findings":  stats.TotalFindings,
			"worker_count":    workers,
			"duration_ms":     stats.TotalDuration.Milliseconds(),
		})
	}

	return stats, ctx.Err()
}

func (pp *ParallelProcessor) logger() *zap.Logger {
	if pp.observer != nil {
		return pp.observer.Logger()
	}
	return observability.L()
}
