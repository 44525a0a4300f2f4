// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/formatters"
)

const ruleWidth = 80

// Formatter implements text-based output formatting
type Formatter struct{}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

type palette struct {
	ok, warn, label, value, dim *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgRed, color.Bold),
		label: color.New(color.FgCyan),
		value: color.New(color.FgWhite, color.Bold),
		dim:   color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.warn, p.label, p.value, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

func (f *Formatter) Format(report *aggregate.Report, options formatters.FormatterOptions) ([]byte, error) {
	p := newPalette(options.NoColor)
	var b bytes.Buffer

	if len(report.Entries) == 0 {
		p.ok.Fprintln(&b, "[OK] No credit card numbers detected.")
	} else {
		p.warn.Fprintf(&b, "[WARNING] %d potential credit card number(s) detected!\n", len(report.Entries))
		b.WriteString("\n" + strings.Repeat("=", ruleWidth) + "\n")
		for i, e := range report.Entries {
			fmt.Fprintf(&b, "\nFinding #%d:\n", i+1)
			f.appendEntry(&b, p, e, options)
		}
		b.WriteString("\n" + strings.Repeat("=", ruleWidth) + "\n")
	}

	if len(report.Suppressed) > 0 {
		fmt.Fprintf(&b, "\n%d finding(s) suppressed.\n", len(report.Suppressed))
		if options.Verbose {
			for _, s := range report.Suppressed {
				p.dim.Fprintf(&b, "  - %s in %s (rule %s: %s)\n", s.Entry.MaskedNumber, sourceOf(s.Entry), s.RuleID, s.Reason)
			}
		}
	}

	if len(report.Warnings) > 0 {
		p.dim.Fprintf(&b, "\nWarnings (%d source(s) could not be scanned):\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  - %s: %s\n", w.Source, w.Message)
		}
	}

	if counts := report.BrandCounts(); len(counts) > 0 {
		b.WriteString("\nSummary by brand:\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "  %-11s %d\n", string(c.Brand)+":", c.Count)
		}
	}

	if options.Verbose {
		fmt.Fprintf(&b, "\nScanned %d source(s) in %s (run %s)\n", report.Sources, report.Duration.Round(time.Millisecond), report.RunID)
	}
	return b.Bytes(), nil
}

func (f *Formatter) appendEntry(b *bytes.Buffer, p palette, e aggregate.Entry, options formatters.FormatterOptions) {
	field := func(name, value string) {
		p.label.Fprintf(b, "  %-9s: ", name)
		p.value.Fprintln(b, value)
	}

	field("Source", sourceOf(e))
	if loc := Location(e); loc != "" {
		field("Location", loc)
	}
	field("Masked", e.MaskedNumber)
	field("Brand", string(e.CardBrand))
	field("Format", e.OriginalFormat)
	field("Length", fmt.Sprintf("%d digits", e.Length))

	if options.Verbose {
		if v, ok := e.Get(detector.LocContext); ok {
			field("Context", fmt.Sprint(v))
		}
		if v, ok := e.Get(detector.LocCellContent); ok {
			field("Cell", fmt.Sprint(v))
		}
	}
}

func sourceOf(e aggregate.Entry) string {
	if s := e.Source(); s != "" {
		return s
	}
	return aggregate.NotApplicable
}

// Location describes where in its source an entry was found. The first
// present key of table, sheet, page, row and line picks the layout.
func Location(e aggregate.Entry) string {
	has := func(key string) bool {
		_, ok := e.Get(key)
		return ok
	}
	switch {
	case has(detector.LocTable):
		return fmt.Sprintf("Table=%s, Column=%s, RowID=%s",
			e.Field(detector.LocTable), e.Field(detector.LocColumn), e.Field(detector.LocRowID))
	case has(detector.LocSheet):
		return fmt.Sprintf("Sheet=%s, Row=%s, Column=%s",
			e.Field(detector.LocSheet), e.Field(detector.LocRow), e.Field(detector.LocColumn))
	case has(detector.LocPage):
		return fmt.Sprintf("Page=%s, Line=%s", e.Field(detector.LocPage), e.Field(detector.LocLine))
	case has(detector.LocRow):
		return fmt.Sprintf("Row=%s, Column=%s", e.Field(detector.LocRow), e.Field(detector.LocColumn))
	case has(detector.LocLine):
		return fmt.Sprintf("Line=%s", e.Field(detector.LocLine))
	case has(detector.LocField):
		return fmt.Sprintf("Field=%s", e.Field(detector.LocField))
	}
	return ""
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
