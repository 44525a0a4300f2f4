// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/cloud"
	"pan-scan/internal/config"
	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/parallel"
	"pan-scan/internal/router"
	"pan-scan/internal/suppressions"
)

// ScanConfig holds configuration for scanning operations.
type ScanConfig struct {
	Config *config.Config
	// Workers overrides the configured worker count when positive
	Workers int
	// SuppressionManager, when non-nil, is applied to the report.
	SuppressionManager *suppressions.SuppressionManager
	// Progress is called after each source completes
	Progress parallel.ProgressCallback
	// OpenStore replaces the cloud clients; tests use it for fakes
	OpenStore cloud.StoreFactory
}

// Scanner runs scans. One Scanner serves one run.
type Scanner struct {
	cfg          *config.Config
	capabilities *router.CapabilityRegistry
	router       *router.FileRouter
	processor    *parallel.ParallelProcessor
	engine       *detector.Engine
	observer     *observability.StandardObserver
	suppressions *suppressions.SuppressionManager
	progress     parallel.ProgressCallback
	openStore    cloud.StoreFactory
	runID        string
}

// NewScanner builds the capability registry and file router for cfg.
// Invalid adapter options are configuration errors.
func NewScanner(sc ScanConfig) (*Scanner, error) {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.Default()
	}

	runID := uuid.NewString()
	level := observability.ObservabilityMetrics
	if cfg.Defaults.Debug {
		level = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(level, observability.L(), runID)

	workers := cfg.Defaults.Workers
	if sc.Workers > 0 {
		workers = sc.Workers
	}

	caps := BuildCapabilities(cfg)
	fr := router.NewFileRouter(caps, observer, cfg.Defaults.MaxFileSize)
	router.RegisterDefaultPreprocessors(fr.Registry())
	if err := fr.InitializePreprocessors(router.PreprocessorOptions{
		CSVDelimiter:   cfg.Sources.CSV.Delimiter,
		TextExtensions: cfg.Sources.Text.Extensions,
		SniffText:      cfg.Sources.Text.Sniff,
		MaxPDFPages:    cfg.Sources.PDF.MaxPages,
	}); err != nil {
		return nil, err
	}

	return &Scanner{
		cfg:          cfg,
		capabilities: caps,
		router:       fr,
		processor:    parallel.NewParallelProcessor(workers, caps, observer),
		engine:       detector.NewEngine(),
		observer:     observer,
		suppressions: sc.SuppressionManager,
		progress:     sc.Progress,
		openStore:    sc.OpenStore,
		runID:        runID,
	}, nil
}

// RunID identifies this run in logs and reports
func (s *Scanner) RunID() string {
	return s.runID
}

// Capabilities returns the adapter registry
func (s *Scanner) Capabilities() *router.CapabilityRegistry {
	return s.capabilities
}

// Run expands targets into sources, scans them concurrently and returns
// the aggregated report with suppressions applied. The returned error is
// a configuration error or a cancelled context; source failures are
// warnings in the report.
func (s *Scanner) Run(ctx context.Context, targets ...Target) (*aggregate.Report, error) {
	startedAt := time.Now()
	logger := s.observer.Logger()

	sources, closers, err := s.plan(ctx, targets)
	if err != nil {
		return nil, err
	}
	defer closeAll(closers)

	logger.Debug("planned scan",
		zap.Int("targets", len(targets)),
		zap.Int("sources", len(sources)),
		zap.Int("file_adapters", s.router.GetPreprocessorCount()),
		zap.Int("workers", s.processor.Workers()))

	agg := aggregate.New()
	stats, err := s.processor.ProcessSources(ctx, s.engine, sources, agg, s.progress)
	if err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	report := agg.Report(s.runID, startedAt)
	if s.suppressions != nil {
		if n := s.suppressions.Apply(report); n > 0 {
			logger.Info("suppressed findings", zap.Int("count", n))
		}
	}

	logger.Info("scan complete",
		zap.Int("sources", stats.TotalSources),
		zap.Int("failed_sources", stats.FailedSources),
		zap.Int("findings", len(report.Entries)),
		zap.Duration("duration", report.Duration))
	logger.Debug("router metrics", zap.Any("metrics", s.router.GetMetrics().GetSummary()))
	return report, nil
}
