// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// ExcelPreprocessor emits one unit per non-empty worksheet cell
type ExcelPreprocessor struct {
	observer *observability.StandardObserver
}

// NewExcelPreprocessor creates a spreadsheet preprocessor
func NewExcelPreprocessor() *ExcelPreprocessor {
	return &ExcelPreprocessor{}
}

// SetObserver sets the observability component
func (ep *ExcelPreprocessor) SetObserver(observer *observability.StandardObserver) {
	ep.observer = observer
}

// GetName returns the name of this preprocessor
func (ep *ExcelPreprocessor) GetName() string {
	return "excel"
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (ep *ExcelPreprocessor) GetSupportedExtensions() []string {
	return []string{".xlsx", ".xlsm", ".xltx", ".xltm"}
}

// CanProcess checks if this preprocessor can handle the given file
func (ep *ExcelPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, ep.GetSupportedExtensions())
}

// Process walks every sheet in workbook order, streaming rows.
func (ep *ExcelPreprocessor) Process(ctx context.Context, filePath string, emit EmitFunc) error {
	finishTiming, finishStep := startTiming(ep.observer, "excel_preprocessor", filePath)

	f, err := excelize.OpenFile(filepath.Clean(filePath))
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		finishStep(false, fmt.Sprintf("error opening workbook: %v", err))
		return NewProcessingError(filePath, "excel", "error opening workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	cells := 0
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := ep.processSheet(f, filePath, sheet, emit)
		cells += n
		if err != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error(), "sheet": sheet})
			finishStep(false, err.Error())
			return err
		}
	}

	finishTiming(true, map[string]interface{}{"sheets": len(sheets), "cells": cells})
	finishStep(true, fmt.Sprintf("read %d sheets, %d cells", len(sheets), cells))
	return nil
}

func (ep *ExcelPreprocessor) processSheet(f *excelize.File, filePath, sheet string, emit EmitFunc) (int, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	cells, rowNum := 0, 0
	for rows.Next() {
		rowNum++
		columns, err := rows.Columns()
		if err != nil {
			return cells, fmt.Errorf("failed to read sheet %q row %d: %w", sheet, rowNum, err)
		}
		for col, value := range columns {
			if strings.TrimSpace(value) == "" {
				continue
			}
			cells++
			unit := Unit{
				Text: value,
				Location: fileLocation(filePath,
					detector.LocSheet, sheet,
					detector.LocRow, rowNum,
					detector.LocColumn, col+1),
				SnippetKey: detector.LocCellContent,
			}
			if err := emit(unit); err != nil {
				return cells, err
			}
		}
	}
	return cells, rows.Error()
}
