// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"fmt"
	"strconv"

	"pan-scan/internal/detector"
)

// NotApplicable marks a column the entry's source does not populate.
const NotApplicable = "N/A"

// LocationColumns is the superset of location keys any adapter populates,
// in report column order.
var LocationColumns = []string{
	detector.LocSource,
	detector.LocFile,
	detector.LocTable,
	detector.LocColumn,
	detector.LocRowID,
	detector.LocSheet,
	detector.LocRow,
	detector.LocLine,
	detector.LocPage,
	detector.LocField,
}

// TrailingColumns follow the finding columns; they hold masked text.
var TrailingColumns = []string{
	detector.LocContext,
	detector.LocCellContent,
}

// Columns returns the tabular header.
func Columns() []string {
	cols := make([]string, 0, len(LocationColumns)+5+len(TrailingColumns))
	cols = append(cols, LocationColumns...)
	cols = append(cols, "masked_number", "card_brand", "original_format", "length", "offset")
	return append(cols, TrailingColumns...)
}

// Row flattens e into Columns() order.
func (e Entry) Row() []string {
	row := make([]string, 0, len(Columns()))
	for _, key := range LocationColumns {
		row = append(row, e.Field(key))
	}
	row = append(row,
		e.MaskedNumber,
		string(e.CardBrand),
		e.OriginalFormat,
		strconv.Itoa(e.Length),
		strconv.Itoa(e.Offset),
	)
	for _, key := range TrailingColumns {
		row = append(row, e.Field(key))
	}
	return row
}

// Field renders the location value under key, or NotApplicable.
func (e Entry) Field(key string) string {
	v, ok := e.Location[key]
	if !ok || v == nil {
		return NotApplicable
	}
	s := fmt.Sprint(v)
	if s == "" {
		return NotApplicable
	}
	return s
}

// Rows serializes entries into header plus one row per entry.
func Rows(entries []Entry) [][]string {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, Columns())
	for _, e := range entries {
		rows = append(rows, e.Row())
	}
	return rows
}
