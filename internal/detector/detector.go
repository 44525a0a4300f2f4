// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Engine finds card numbers in text. It holds no mutable state and is safe
// for concurrent use.
type Engine struct{}

// NewEngine returns a detection engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Scan returns every checksum-valid card number in text, in text order.
// Candidates that fail the checksum are dropped silently. Scan never fails:
// text without card numbers yields an empty result.
func (e *Engine) Scan(text string) []Finding {
	var findings []Finding
	for c := range ExtractCandidates(text) {
		digits := stripSeparators(c.Text)
		if !IsValidChecksum(digits) {
			continue
		}
		findings = append(findings, newFinding(c, digits))
	}
	return findings
}

// MaskText returns text with every card number Scan would report replaced
// by its masked form. Adapters use it to build report context.
func (e *Engine) MaskText(text string) string {
	masked, _, _ := e.maskText(text)
	return masked
}

// maskText also reports the byte span of the first masked number in the
// result, or -1, -1 when nothing was masked.
func (e *Engine) maskText(text string) (string, int, int) {
	var b strings.Builder
	last := 0
	first, firstEnd := -1, -1

	for c := range ExtractCandidates(text) {
		digits := stripSeparators(c.Text)
		if !IsValidChecksum(digits) {
			continue
		}
		b.WriteString(text[last:c.start])
		if first < 0 {
			first = b.Len()
		}
		b.WriteString(MaskDigits(digits))
		if firstEnd < 0 {
			firstEnd = b.Len()
		}
		last = c.end
	}

	if first < 0 {
		return text, -1, -1
	}
	b.WriteString(text[last:])
	return b.String(), first, firstEnd
}

// Snippet masks text, trims surrounding whitespace and truncates the result
// to at most limit characters. When the text is too long, the window is
// centred on the first masked number.
func (e *Engine) Snippet(text string, limit int) string {
	masked, first, firstEnd := e.maskText(text)
	lead := len(masked) - len(strings.TrimLeftFunc(masked, unicode.IsSpace))
	masked = strings.TrimSpace(masked)
	if limit <= 0 {
		return masked
	}
	runes := []rune(masked)
	if len(runes) <= limit {
		return masked
	}

	start := 0
	if first >= 0 {
		before := utf8.RuneCountInString(masked[:first-lead])
		center := before + utf8.RuneCountInString(masked[first-lead:firstEnd-lead])/2
		start = max(0, min(center-limit/2, len(runes)-limit))
	}
	return string(runes[start : start+limit])
}

// Snippet lengths for the context location fields.
const (
	ContextLimit     = 100
	CellContentLimit = 50
)

// ScanAt scans text and attaches loc to every finding. If snippetKey is
// LocContext or LocCellContent, the masked snippet of text is stored under
// that key as well.
func (e *Engine) ScanAt(text string, loc Location, snippetKey string) []Finding {
	findings := e.Scan(text)
	if len(findings) == 0 {
		return nil
	}

	enriched := maps.Clone(loc)
	if enriched == nil {
		enriched = Location{}
	}
	switch snippetKey {
	case LocContext:
		enriched[LocContext] = e.Snippet(text, ContextLimit)
	case LocCellContent:
		enriched[LocCellContent] = e.Snippet(text, CellContentLimit)
	}

	for i := range findings {
		findings[i] = findings[i].WithLocation(enriched)
	}
	return findings
}
