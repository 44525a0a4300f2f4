// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parquet

import (
	"bytes"
	"fmt"

	"github.com/segmentio/parquet-go"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/detector"
	"pan-scan/internal/formatters"
)

// Row is the persisted form of one finding. Location columns a source
// does not populate hold aggregate.NotApplicable, as in CSV output.
type Row struct {
	RunID          string `parquet:"run_id"`
	Source         string `parquet:"source"`
	File           string `parquet:"file"`
	Table          string `parquet:"table"`
	Column         string `parquet:"column"`
	RowID          string `parquet:"row_id"`
	Sheet          string `parquet:"sheet"`
	Row            string `parquet:"row"`
	Line           string `parquet:"line"`
	Page           string `parquet:"page"`
	Field          string `parquet:"field"`
	MaskedNumber   string `parquet:"masked_number"`
	CardBrand      string `parquet:"card_brand"`
	OriginalFormat string `parquet:"original_format"`
	Length         int32  `parquet:"length"`
	Offset         int64  `parquet:"offset"`
	Context        string `parquet:"context"`
	CellContent    string `parquet:"cell_content"`
}

// NewRow flattens e for the run runID.
func NewRow(runID string, e aggregate.Entry) Row {
	return Row{
		RunID:          runID,
		Source:         e.Field(detector.LocSource),
		File:           e.Field(detector.LocFile),
		Table:          e.Field(detector.LocTable),
		Column:         e.Field(detector.LocColumn),
		RowID:          e.Field(detector.LocRowID),
		Sheet:          e.Field(detector.LocSheet),
		Row:            e.Field(detector.LocRow),
		Line:           e.Field(detector.LocLine),
		Page:           e.Field(detector.LocPage),
		Field:          e.Field(detector.LocField),
		MaskedNumber:   e.MaskedNumber,
		CardBrand:      string(e.CardBrand),
		OriginalFormat: e.OriginalFormat,
		Length:         int32(e.Length),
		Offset:         int64(e.Offset),
		Context:        e.Field(detector.LocContext),
		CellContent:    e.Field(detector.LocCellContent),
	}
}

// Formatter writes active findings as a Parquet file
type Formatter struct{}

// NewFormatter creates a new Parquet formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "parquet"
}

func (f *Formatter) Description() string {
	return "Columnar Parquet file for analytics tooling"
}

func (f *Formatter) FileExtension() string {
	return ".parquet"
}

func (f *Formatter) Format(report *aggregate.Report, _ formatters.FormatterOptions) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, parquet.SchemaOf(Row{}))
	for _, e := range report.Entries {
		if err := w.Write(NewRow(report.RunID, e)); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return buf.Bytes(), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
