// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// CSVPreprocessor emits one unit per non-empty cell of a delimited file
type CSVPreprocessor struct {
	observer  *observability.StandardObserver
	delimiter rune
}

// NewCSVPreprocessor creates a CSV preprocessor. An empty delimiter means
// comma. .tsv files always use tab.
func NewCSVPreprocessor(delimiter string) (*CSVPreprocessor, error) {
	d := ','
	if delimiter != "" {
		if delimiter == `\t` {
			delimiter = "\t"
		}
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("invalid CSV delimiter %q: must be a single character other than quote or newline", delimiter)
		}
		d = r
	}
	return &CSVPreprocessor{delimiter: d}, nil
}

// SetObserver sets the observability component
func (cp *CSVPreprocessor) SetObserver(observer *observability.StandardObserver) {
	cp.observer = observer
}

// GetName returns the name of this preprocessor
func (cp *CSVPreprocessor) GetName() string {
	return "csv"
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (cp *CSVPreprocessor) GetSupportedExtensions() []string {
	return []string{".csv", ".tsv"}
}

// CanProcess checks if this preprocessor can handle the given file
func (cp *CSVPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, cp.GetSupportedExtensions())
}

// Process emits each cell with its 1-based row and column. The header row
// is scanned like any other.
func (cp *CSVPreprocessor) Process(ctx context.Context, filePath string, emit EmitFunc) error {
	finishTiming, finishStep := startTiming(cp.observer, "csv_preprocessor", filePath)

	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		finishStep(false, fmt.Sprintf("failed to open file: %v", err))
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = cp.delimiterFor(filePath)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	rows, cells := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error(), "rows": rows})
			finishStep(false, err.Error())
			return NewProcessingError(filePath, "csv", "malformed CSV", err)
		}
		rows++
		if rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		for col, cell := range record {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			cells++
			unit := Unit{
				Text:       cell,
				Location:   fileLocation(filePath, detector.LocRow, rows, detector.LocColumn, col+1),
				SnippetKey: detector.LocCellContent,
			}
			if err := emit(unit); err != nil {
				return err
			}
		}
	}

	finishTiming(true, map[string]interface{}{"rows": rows, "cells": cells})
	finishStep(true, fmt.Sprintf("read %d rows, %d cells", rows, cells))
	return nil
}

func (cp *CSVPreprocessor) delimiterFor(filePath string) rune {
	if strings.EqualFold(filepath.Ext(filePath), ".tsv") {
		return '\t'
	}
	return cp.delimiter
}
