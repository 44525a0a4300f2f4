// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownCards = []struct {
	number string
	brand  Brand
}{
	{"4532015112830366", BrandVisa},
	{"5425233430109903", BrandMastercard},
	{"378282246310005", BrandAmex},
	{"6011111111111117", BrandDiscover},
	{"3530111333300000", BrandJCB},
	{"30569309025904", BrandDiners},
}

func TestIsValidChecksum_KnownCards(t *testing.T) {
	for _, tc := range knownCards {
		t.Run(string(tc.brand), func(t *testing.T) {
			assert.True(t, IsValidChecksum(tc.number))
		})
	}
}

func TestIsValidChecksum_LastDigitFlipped(t *testing.T) {
	for _, tc := range knownCards {
		t.Run(string(tc.brand), func(t *testing.T) {
			last := tc.number[len(tc.number)-1]
			flipped := tc.number[:len(tc.number)-1] + string('0'+(last-'0'+1)%10)
			assert.False(t, IsValidChecksum(flipped), "flipped %s should fail", flipped)
		})
	}

	assert.False(t, IsValidChecksum("4532015112830367"))
}

func TestIsValidChecksum_CheckDigitOffByOne(t *testing.T) {
	// Doubled digits of 4532148803436467 sum to 73.
	assert.False(t, IsValidChecksum("4532148803436467"))
	assert.Empty(t, NewEngine().Scan("card 4532 1488 0343 6467 on file"))
}

func TestIsValidChecksum_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		digits string
	}{
		{"empty", ""},
		{"twelve digits", "123456789012"},
		{"twenty digits", "45320151128303660000"},
		{"separator left in", "4532-0151-1283-0366"},
		{"letters", "4532015112830abc"},
		{"unicode digits", "４５３２０１５１１２８３０３６６"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsValidChecksum(tt.digits))
		})
	}
}

func TestIsValidChecksum_Deterministic(t *testing.T) {
	for _, tc := range knownCards {
		first := IsValidChecksum(tc.number)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, IsValidChecksum(tc.number))
		}
	}
}

func TestClassify(t *testing.T) {
	for _, tc := range knownCards {
		t.Run(tc.number, func(t *testing.T) {
			assert.Equal(t, tc.brand, Classify(tc.number))
		})
	}

	tests := []struct {
		name   string
		digits string
		want   Brand
	}{
		{"visa 13 digits", "4222222222222", BrandVisa},
		{"mastercard 2-series", "2221000000000009", BrandMastercard},
		{"amex 34", "340000000000009", BrandAmex},
		{"discover 65", "6500000000000002", BrandDiscover},
		{"diners 36", "36148900647913", BrandDiners},
		{"diners 38", "38520000023237", BrandDiners},
		{"jcb 2131", "213100000000003", BrandJCB},
		{"jcb 1800", "180000000000002", BrandJCB},
		{"visa 19 digits is unknown", "4111111111111111110", BrandUnknown},
		{"maestro range is unknown", "6759649826438453", BrandUnknown},
		{"mastercard wrong length", "54252334301099", BrandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.digits))
		})
	}
}

func TestBrands_RuleOrder(t *testing.T) {
	want := []Brand{BrandVisa, BrandMastercard, BrandAmex, BrandDiscover, BrandDiners, BrandJCB, BrandUnknown}
	if diff := cmp.Diff(want, Brands()); diff != "" {
		t.Errorf("Brands() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Candidate
	}{
		{
			name: "dashed",
			text: "Customer card: 4532-0151-1283-0366 was charged",
			want: []Candidate{{Text: "4532-0151-1283-0366", Offset: 15}},
		},
		{
			name: "spaced and plain",
			text: "a 4532 0151 1283 0366 b 5425233430109903",
			want: []Candidate{
				{Text: "4532 0151 1283 0366", Offset: 2},
				{Text: "5425233430109903", Offset: 24},
			},
		},
		{
			name: "amex grouping",
			text: "amex 3782 822463 10005",
			want: []Candidate{{Text: "3782 822463 10005", Offset: 5}},
		},
		{
			name: "too short",
			text: "No cards here, just numbers: 123456789012",
			want: nil,
		},
		{
			name: "embedded in longer digit run",
			text: "id 99453201511283036699",
			want: nil,
		},
		{
			name: "glued to letters",
			text: "x4532015112830366",
			want: nil,
		},
		{
			name: "grouped card after a four-six digit prefix",
			text: "ref 1234 567890 4532 0151 1283 0366",
			want: []Candidate{{Text: "4532 0151 1283 0366", Offset: 16}},
		},
		{
			name: "dashed card after an order number",
			text: "Order 2024 000123 4532-0151-1283-0366",
			want: []Candidate{{Text: "4532-0151-1283-0366", Offset: 18}},
		},
		{
			name: "amex grouping before a grouped card",
			text: "3782 822463 10005 4532 0151 1283 0366",
			want: []Candidate{
				{Text: "3782 822463 10005", Offset: 0},
				{Text: "4532 0151 1283 0366", Offset: 18},
			},
		},
		{
			name: "character offset after multibyte text",
			text: "€€ 4532015112830366",
			want: []Candidate{{Text: "4532015112830366", Offset: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Candidate
			for c := range ExtractCandidates(tt.text) {
				got = append(got, c)
			}
			if diff := cmp.Diff(tt.want, got, cmp.Comparer(func(a, b Candidate) bool {
				return a.Text == b.Text && a.Offset == b.Offset
			})); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractCandidates_StopsEarly(t *testing.T) {
	text := "4532015112830366 5425233430109903 378282246310005"
	count := 0
	for range ExtractCandidates(text) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestScan_SingleDashedCard(t *testing.T) {
	findings := NewEngine().Scan("Customer card: 4532-0151-1283-0366 was charged $100")

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "453201...0366", f.MaskedNumber())
	assert.Equal(t, BrandVisa, f.Brand())
	assert.Equal(t, 15, f.Offset())
	assert.Equal(t, 16, f.Length())
	assert.Equal(t, "4532-01**-****-0366", f.MaskedFormat())
}

func TestScan_GroupedCardAfterReferenceNumber(t *testing.T) {
	findings := NewEngine().Scan("ref 1234 567890 4532 0151 1283 0366")

	require.Len(t, findings, 1)
	assert.Equal(t, "453201...0366", findings[0].MaskedNumber())
	assert.Equal(t, 16, findings[0].Offset())
}

func TestScan_MultipleLinesInOrder(t *testing.T) {
	text := `
Transaction log:
Card 1: 4532015112830366
Card 2: 5425233430109903
Card 3: 378282246310005
`
	findings := NewEngine().Scan(text)

	require.Len(t, findings, 3)
	var brands []Brand
	for _, f := range findings {
		brands = append(brands, f.Brand())
	}
	assert.Equal(t, []Brand{BrandVisa, BrandMastercard, BrandAmex}, brands)
	assert.Less(t, findings[0].Offset(), findings[1].Offset())
	assert.Less(t, findings[1].Offset(), findings[2].Offset())
}

func TestScan_NoFindings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"short number", "No cards here, just numbers: 123456789012"},
		{"empty", ""},
		{"bad checksum", "card 4532015112830367"},
		{"binary noise", "\x00\xff\xfe 4532\x00015112830366"},
		{"invalid utf8", string([]byte{0xc3, 0x28, 0xa0, 0xa1})},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, engine.Scan(tt.text))
		})
	}
}

func TestScan_KnownCardsEachFound(t *testing.T) {
	engine := NewEngine()
	for _, tc := range knownCards {
		t.Run(string(tc.brand), func(t *testing.T) {
			findings := engine.Scan("value=" + tc.number + ";")
			require.Len(t, findings, 1)
			assert.Equal(t, tc.brand, findings[0].Brand())
			assert.Equal(t, len(tc.number), findings[0].Length())
		})
	}
}

func TestScan_Idempotent(t *testing.T) {
	text := "4532015112830366, 5425233430109903 and 3782-822463-10005"
	engine := NewEngine()

	first := engine.Scan(text)
	second := engine.Scan(text)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].MaskedNumber(), second[i].MaskedNumber())
		assert.Equal(t, first[i].Offset(), second[i].Offset())
		assert.Equal(t, first[i].Brand(), second[i].Brand())
	}
}

func TestScan_FindingInvariants(t *testing.T) {
	text := "4532 0151 1283 0366 / 6011-1111-1111-1117 / 30569309025904 / 3530111333300000"
	for _, f := range NewEngine().Scan(text) {
		digits := f.digits.String()
		original := f.original.String()

		assert.True(t, IsValidChecksum(digits))
		assert.Equal(t, digits, stripSeparators(original))
		assert.Equal(t, len(digits), f.Length())
		assert.Equal(t, digits[:6]+Ellipsis+digits[len(digits)-4:], f.MaskedNumber())
		assert.NotContains(t, f.MaskedNumber(), digits[6:len(digits)-4])

		visible := strings.Count(f.MaskedFormat(), "*")
		assert.Equal(t, len(digits)-10, visible)
	}
}

func TestFinding_WithLocationDoesNotMutate(t *testing.T) {
	findings := NewEngine().Scan("4532015112830366")
	require.Len(t, findings, 1)

	base := findings[0].WithLocation(Location{LocFile: "a.txt", LocLine: 1})
	enriched := base.WithLocation(Location{LocLine: 7})

	assert.Equal(t, Location{LocFile: "a.txt", LocLine: 1}, base.Location())
	assert.Equal(t, Location{LocFile: "a.txt", LocLine: 7}, enriched.Location())

	loc := enriched.Location()
	loc[LocLine] = 99
	assert.Equal(t, 7, enriched.Location()[LocLine])
}

func TestFinding_Clear(t *testing.T) {
	findings := NewEngine().Scan("4532015112830366")
	require.Len(t, findings, 1)

	copyOf := findings[0]
	findings[0].Clear()

	assert.True(t, copyOf.digits.Cleared())
	assert.True(t, copyOf.original.Cleared())
	assert.Equal(t, "453201...0366", copyOf.MaskedNumber())
}

func TestMaskText(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"no cards", "nothing here 123456789012", "nothing here 123456789012"},
		{"one card", "paid with 4532-0151-1283-0366 today", "paid with 453201...0366 today"},
		{"invalid left alone", "ref 4532015112830367", "ref 4532015112830367"},
		{"two cards", "378282246310005,6011111111111117", "378282...0005,601111...1117"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.MaskText(tt.text))
		})
	}
}

func TestSnippet(t *testing.T) {
	engine := NewEngine()

	assert.Equal(t, "card 453201...0366", engine.Snippet("   card 4532015112830366  \n", 100))
	assert.Equal(t, "card 4532", engine.Snippet("card 4532 and more", 9))
	assert.Equal(t, "ñññ", engine.Snippet("ñññññ", 3))
}

func TestSnippet_WindowFollowsCard(t *testing.T) {
	engine := NewEngine()

	tail := engine.Snippet("   "+strings.Repeat("x", 60)+" 4532015112830366", 20)
	assert.Equal(t, "xxxxxx 453201...0366", tail)

	long := strings.Repeat("x", 120) + " 4532015112830366 " + strings.Repeat("y", 120)
	middle := engine.Snippet(long, ContextLimit)
	assert.Len(t, middle, ContextLimit)
	assert.Contains(t, middle, "453201...0366")
	assert.True(t, strings.HasPrefix(middle, "x"))
	assert.True(t, strings.HasSuffix(middle, "y"))
}

func TestMaskDigits_Short(t *testing.T) {
	assert.Equal(t, "****", MaskDigits("1234"))
}

func TestScanAt_AttachesLocationAndSnippet(t *testing.T) {
	e := NewEngine()
	loc := Location{LocFile: "orders.csv", LocRow: 4, LocColumn: 2}

	findings := e.ScanAt("  4532015112830366  ", loc, LocCellContent)
	require.Len(t, findings, 1)

	got := findings[0].Location()
	assert.Equal(t, "orders.csv", got[LocFile])
	assert.Equal(t, 4, got[LocRow])
	assert.Equal(t, "453201...0366", got[LocCellContent])
	_, hasContext := got[LocContext]
	assert.False(t, hasContext)

	_, leaked := loc[LocCellContent]
	assert.False(t, leaked, "caller's location must not be modified")
}

func TestScanAt_NoFindings(t *testing.T) {
	assert.Nil(t, NewEngine().ScanAt("nothing here", Location{LocLine: 1}, LocContext))
}

func TestScanAt_ContextTruncated(t *testing.T) {
	text := strings.Repeat("x", 120) + " 4532015112830366"
	findings := NewEngine().ScanAt(text, nil, LocContext)
	require.Len(t, findings, 1)
	snippet := findings[0].Location()[LocContext].(string)
	assert.Len(t, snippet, ContextLimit)
	assert.True(t, strings.HasSuffix(snippet, " 453201...0366"))
}

func TestScanAt_CellContentKeepsLateCard(t *testing.T) {
	text := "note: " + strings.Repeat("n", 70) + " 4532-0151-1283-0366"
	findings := NewEngine().ScanAt(text, nil, LocCellContent)
	require.Len(t, findings, 1)
	cell := findings[0].Location()[LocCellContent].(string)
	assert.Len(t, cell, CellContentLimit)
	assert.Contains(t, cell, "453201...0366")
}
