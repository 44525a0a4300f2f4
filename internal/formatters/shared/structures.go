// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"maps"
	"time"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/formatters"
)

// Document is the top-level structure for JSON/YAML output
type Document struct {
	RunID      string                      `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time                   `json:"started_at" yaml:"started_at"`
	DurationMS int64                       `json:"duration_ms" yaml:"duration_ms"`
	Summary    Summary                     `json:"summary" yaml:"summary"`
	Findings   []aggregate.Entry           `json:"findings" yaml:"findings"`
	Suppressed []aggregate.SuppressedEntry `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Warnings   []aggregate.Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary holds the report totals
type Summary struct {
	SourcesScanned int                    `json:"sources_scanned" yaml:"sources_scanned"`
	Findings       int                    `json:"findings" yaml:"findings"`
	Suppressed     int                    `json:"suppressed" yaml:"suppressed"`
	FailedSources  int                    `json:"failed_sources" yaml:"failed_sources"`
	ByBrand        []aggregate.BrandCount `json:"by_brand,omitempty" yaml:"by_brand,omitempty"`
}

// NewDocument converts a report into its JSON/YAML form. Context snippets
// are kept only in verbose mode.
func NewDocument(report *aggregate.Report, options formatters.FormatterOptions) Document {
	doc := Document{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Summary: Summary{
			SourcesScanned: report.Sources,
			Findings:       len(report.Entries),
			Suppressed:     len(report.Suppressed),
			FailedSources:  len(report.Warnings),
			ByBrand:        report.BrandCounts(),
		},
		Findings: make([]aggregate.Entry, 0, len(report.Entries)),
		Warnings: report.Warnings,
	}

	for _, e := range report.Entries {
		doc.Findings = append(doc.Findings, trimEntry(e, options.Verbose))
	}
	for _, s := range report.Suppressed {
		s.Entry = trimEntry(s.Entry, options.Verbose)
		doc.Suppressed = append(doc.Suppressed, s)
	}
	return doc
}

func trimEntry(e aggregate.Entry, verbose bool) aggregate.Entry {
	if verbose || e.Location == nil {
		return e
	}
	loc := maps.Clone(e.Location)
	delete(loc, detector.LocContext)
	delete(loc, detector.LocCellContent)
	e.Location = loc
	return e
}
