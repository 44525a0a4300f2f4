// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/router"
)

// WorkerPool scans sources on a fixed number of goroutines and sends one
// batch per source on its results channel.
type WorkerPool struct {
	workers      int
	jobs         chan Job
	results      chan aggregate.Batch
	wg           sync.WaitGroup
	engine       *detector.Engine
	capabilities *router.CapabilityRegistry
	observer     *observability.StandardObserver
}

// Job is one source with its dispatch position.
type Job struct {
	Seq    int
	Source router.Source
}

// NewWorkerPool creates a worker pool. A nil capability registry lets
// every source run.
func NewWorkerPool(workers int, engine *detector.Engine, capabilities *router.CapabilityRegistry, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers:      workers,
		jobs:         make(chan Job, workers*2),
		results:      make(chan aggregate.Batch, workers*2),
		engine:       engine,
		capabilities: capabilities,
		observer:     observer,
	}
}

// Start launches the workers. Results is closed once every worker has
// returned, which happens after Close and the job queue drains.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
	go func() {
		wp.wg.Wait()
		close(wp.results)
	}()
}

// Submit queues a job. It returns false when ctx ends first.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be submitted.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Results returns the batch channel. The caller must drain it.
func (wp *WorkerPool) Results() <-chan aggregate.Batch {
	return wp.results
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		wp.results <- wp.processJob(ctx, job, id)
	}
}

// processJob scans one source. Every outcome, including a cancelled run
// or a panicking adapter, is turned into a batch.
func (wp *WorkerPool) processJob(ctx context.Context, job Job, workerID int) (batch aggregate.Batch) {
	start := time.Now()
	batch = aggregate.Batch{Seq: job.Seq, Source: job.Source.Name()}

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", batch.Source)
	}

	defer func() {
		if r := recover(); r != nil {
			batch.Findings = nil
			batch.Err = fmt.Errorf("adapter %s panicked: %v", job.Source.Capability(), r)
		}
		batch.Duration = time.Since(start)
		if finishTiming != nil {
			finishTiming(batch.Err == nil, map[string]interface{}{
				"worker_id":     workerID,
				"adapter":       job.Source.Capability(),
				"finding_count": len(batch.Findings),
				"duration_ms":   batch.Duration.Milliseconds(),
			})
		}
	}()

	if err := ctx.Err(); err != nil {
		batch.Err = err
		return batch
	}

	if wp.capabilities != nil {
		if ok, reason := wp.capabilities.Available(job.Source.Capability()); !ok {
			batch.Err = fmt.Errorf("adapter %s is not available: %s", job.Source.Capability(), reason)
			return batch
		}
	}

	batch.Findings, batch.Err = job.Source.Scan(ctx, wp.engine)
	return batch
}
