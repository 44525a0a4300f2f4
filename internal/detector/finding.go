// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"maps"
	"strings"

	"pan-scan/internal/security"
)

// Ellipsis separates the visible head and tail of a masked number.
const Ellipsis = "..."

// Location describes where a finding came from. Adapters fill it; the
// engine never reads it.
type Location map[string]any

// Well-known location keys.
const (
	LocSource      = "source"
	LocFile        = "file"
	LocTable       = "table"
	LocColumn      = "column"
	LocRowID       = "row_id"
	LocSheet       = "sheet"
	LocRow         = "row"
	LocLine        = "line"
	LocPage        = "page"
	LocField       = "field"
	LocContext     = "context"
	LocCellContent = "cell_content"
)

// Finding is one validated card number. It is immutable; the masked number
// is always derived from the digits.
type Finding struct {
	masked       string
	maskedFormat string
	brand        Brand
	offset       int
	length       int
	location     Location

	// full values, held only until Clear
	original *security.SecureString
	digits   *security.SecureString
}

func newFinding(c Candidate, digits string) Finding {
	secret := security.NewSecureString(digits)
	return Finding{
		masked:       secret.Head(6) + Ellipsis + secret.Tail(4),
		maskedFormat: maskFormat(c.Text, len(digits)),
		brand:        Classify(digits),
		offset:       c.Offset,
		length:       len(digits),
		original:     security.NewSecureString(c.Text),
		digits:       secret,
	}
}

// MaskedNumber returns the first six and last four digits joined by "...".
func (f Finding) MaskedNumber() string { return f.masked }

// MaskedFormat returns the matched text with its separators intact and
// every digit between the first six and last four replaced by '*'.
func (f Finding) MaskedFormat() string { return f.maskedFormat }

// Brand is the issuer the digits classify as, or BrandUnknown.
func (f Finding) Brand() Brand { return f.brand }

// Offset is the zero-based character offset within the scanned text unit.
func (f Finding) Offset() int { return f.offset }

// Length is the number of digits in the card number.
func (f Finding) Length() int { return f.length }

// Location returns a copy of the adapter supplied location.
func (f Finding) Location() Location {
	return maps.Clone(f.location)
}

// WithLocation returns a copy of f whose location is f's location merged
// with loc. Keys in loc win.
func (f Finding) WithLocation(loc Location) Finding {
	merged := make(Location, len(f.location)+len(loc))
	maps.Copy(merged, f.location)
	maps.Copy(merged, loc)
	f.location = merged
	return f
}

// Clear wipes the full card number held by f and every copy of f.
func (f Finding) Clear() {
	f.original.Clear()
	f.digits.Clear()
}

// MaskDigits derives the masked form of a digit string. Strings shorter
// than MinDigits are masked entirely.
func MaskDigits(digits string) string {
	if len(digits) < MinDigits {
		return strings.Repeat("*", len(digits))
	}
	return digits[:6] + Ellipsis + digits[len(digits)-4:]
}

// maskFormat replaces digits 7 through n-4 of text with '*', leaving
// separators in place.
func maskFormat(text string, n int) string {
	var b strings.Builder
	b.Grow(len(text))

	idx := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= '0' && c <= '9' {
			if idx >= 6 && idx < n-4 {
				c = '*'
			}
			idx++
		}
		b.WriteByte(c)
	}
	return b.String()
}
