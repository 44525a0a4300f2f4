// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"pan-scan/internal/detector"
)

// Entry is the report form of a finding. It carries no full card number:
// OriginalFormat is the matched text with the middle digits starred out.
type Entry struct {
	MaskedNumber   string            `json:"masked_number" yaml:"masked_number"`
	CardBrand      detector.Brand    `json:"card_brand" yaml:"card_brand"`
	OriginalFormat string            `json:"original_format" yaml:"original_format"`
	Length         int               `json:"length" yaml:"length"`
	Offset         int               `json:"offset" yaml:"offset"`
	Location       detector.Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// NewEntry converts f into an Entry and wipes the full number f holds.
func NewEntry(f detector.Finding) Entry {
	e := Entry{
		MaskedNumber:   f.MaskedNumber(),
		CardBrand:      f.Brand(),
		OriginalFormat: f.MaskedFormat(),
		Length:         f.Length(),
		Offset:         f.Offset(),
		Location:       f.Location(),
	}
	f.Clear()
	return e
}

// Get returns the location value stored under key.
func (e Entry) Get(key string) (any, bool) {
	v, ok := e.Location[key]
	return v, ok
}

// Source returns the source label, falling back to the file.
func (e Entry) Source() string {
	for _, key := range []string{detector.LocSource, detector.LocFile} {
		if v, ok := e.Location[key]; ok && fmt.Sprint(v) != "" {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// SuppressedEntry is an entry matched by a suppression rule.
type SuppressedEntry struct {
	Entry     Entry      `json:"finding" yaml:"finding"`
	RuleID    string     `json:"suppressed_by" yaml:"suppressed_by"`
	Reason    string     `json:"rule_reason" yaml:"rule_reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Warning records a source that could not be read.
type Warning struct {
	Source  string `json:"source" yaml:"source"`
	Message string `json:"message" yaml:"message"`
}

// Batch is the complete result of one source. Seq is the source's dispatch
// position and fixes where its entries land in the report.
type Batch struct {
	Seq      int
	Source   string
	Findings []detector.Finding
	Err      error
	Duration time.Duration
}

type result struct {
	seq     int
	entries []Entry
	warning *Warning
}

// Aggregator merges per-source batches into one report. Submit may be
// called from many goroutines; the report order depends only on Seq.
type Aggregator struct {
	mu      sync.Mutex
	results []result
	seen    map[int]struct{}
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{seen: make(map[int]struct{})}
}

// Submit records a batch. A batch with an error contributes no entries and
// one warning. Submitting the same Seq twice is an error.
func (a *Aggregator) Submit(b Batch) error {
	r := result{seq: b.Seq}

	if b.Err != nil {
		for _, f := range b.Findings {
			f.Clear()
		}
		r.warning = &Warning{Source: b.Source, Message: b.Err.Error()}
	} else {
		r.entries = make([]Entry, 0, len(b.Findings))
		for _, f := range b.Findings {
			r.entries = append(r.entries, NewEntry(f))
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seen[b.Seq]; dup {
		return fmt.Errorf("batch %d (%s) already submitted", b.Seq, b.Source)
	}
	a.seen[b.Seq] = struct{}{}
	a.results = append(a.results, r)
	return nil
}

// Collect drains batches until the channel is closed. It is the single
// consumer for workers that each send their completed batch on in.
func (a *Aggregator) Collect(in <-chan Batch) error {
	var firstErr error
	for b := range in {
		if err := a.Submit(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Entries returns all entries concatenated in Seq order.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []Entry
	for _, r := range a.sorted() {
		entries = append(entries, r.entries...)
	}
	return entries
}

// Warnings returns failed sources in Seq order.
func (a *Aggregator) Warnings() []Warning {
	a.mu.Lock()
	defer a.mu.Unlock()

	var warnings []Warning
	for _, r := range a.sorted() {
		if r.warning != nil {
			warnings = append(warnings, *r.warning)
		}
	}
	return warnings
}

// Sources returns the number of batches submitted.
func (a *Aggregator) Sources() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

func (a *Aggregator) sorted() []result {
	out := slices.Clone(a.results)
	slices.SortStableFunc(out, func(x, y result) int { return x.seq - y.seq })
	return out
}
