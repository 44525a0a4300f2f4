// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"time"

	"pan-scan/internal/detector"
)

// Report is the outcome of one run.
type Report struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	Duration   time.Duration     `json:"duration_ns" yaml:"duration_ns"`
	Sources    int               `json:"sources_scanned" yaml:"sources_scanned"`
	Entries    []Entry           `json:"findings" yaml:"findings"`
	Suppressed []SuppressedEntry `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Warnings   []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Report snapshots the aggregator into a report.
func (a *Aggregator) Report(runID string, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Sources:   a.Sources(),
		Entries:   a.Entries(),
		Warnings:  a.Warnings(),
	}
}

// BrandCounts tallies entries per brand, in classifier rule order. Brands
// with no entries are omitted.
func (r *Report) BrandCounts() []BrandCount {
	counts := make(map[detector.Brand]int)
	for _, e := range r.Entries {
		counts[e.CardBrand]++
	}

	var out []BrandCount
	for _, b := range detector.Brands() {
		if n := counts[b]; n > 0 {
			out = append(out, BrandCount{Brand: b, Count: n})
		}
	}
	return out
}

// BrandCount is one row of the per-brand summary.
type BrandCount struct {
	Brand detector.Brand `json:"brand" yaml:"brand"`
	Count int            `json:"count" yaml:"count"`
}
