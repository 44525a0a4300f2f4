// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"iter"
	"regexp"
	"unicode/utf8"
)

var (
	// basePattern matches four groups of four digits with an optional
	// single space or dash between groups; the last group has four to seven
	// digits (16 to 19 digits in total).
	basePattern = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4,7}\b`)

	// gapPattern matches the 4-6-5 and 4-6-4 groupings of 15 and 14 digit
	// cards and unseparated runs of 13 to 19 digits. It is only applied to
	// text between base matches, so it never consumes digits of a card
	// basePattern would report.
	gapPattern = regexp.MustCompile(`\b(?:\d{4}[\s-]?\d{6}[\s-]?\d{4,5}|\d{13,19})\b`)
)

// Candidate is a substring shaped like a card number. It has not been
// validated.
type Candidate struct {
	Text   string
	Offset int // character offset of the match start within the scanned text

	start, end int // byte span
}

// ExtractCandidates yields card-number shaped substrings of text, left to
// right and non-overlapping. Matching is lazy: each step resumes after the
// previous match.
func ExtractCandidates(text string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		w := candidateWalker{text: text, yield: yield}

		pos := 0
		for pos < len(text) {
			gapEnd, base := len(text), []int(nil)
			if loc := basePattern.FindStringIndex(text[pos:]); loc != nil {
				base = []int{pos + loc[0], pos + loc[1]}
				gapEnd = base[0]
			}

			if !w.emitAll(gapPattern, pos, gapEnd) || base == nil {
				return
			}
			if !w.emit(base[0], base[1]) {
				return
			}
			pos = base[1]
		}
	}
}

// candidateWalker turns byte spans into Candidates, keeping a running rune
// count so offsets are computed in one pass over the text.
type candidateWalker struct {
	text  string
	yield func(Candidate) bool

	pos   int // byte position the rune count refers to
	runes int
}

func (w *candidateWalker) emit(start, end int) bool {
	w.runes += utf8.RuneCountInString(w.text[w.pos:start])
	c := Candidate{
		Text:   w.text[start:end],
		Offset: w.runes,
		start:  start,
		end:    end,
	}
	w.runes += utf8.RuneCountInString(w.text[start:end])
	w.pos = end
	return w.yield(c)
}

// emitAll yields every match of re within text[from:to]. Both ends of the
// span sit next to non-word bytes, so word boundaries inside the span agree
// with those of the full text.
func (w *candidateWalker) emitAll(re *regexp.Regexp, from, to int) bool {
	for from < to {
		loc := re.FindStringIndex(w.text[from:to])
		if loc == nil {
			return true
		}
		if !w.emit(from+loc[0], from+loc[1]) {
			return false
		}
		from += loc[1]
	}
	return true
}

// stripSeparators drops every non-digit byte.
func stripSeparators(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
