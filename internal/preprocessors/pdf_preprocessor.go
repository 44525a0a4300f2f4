// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// PDFPreprocessor emits one unit per line of page text, followed by one unit
// per document information field.
type PDFPreprocessor struct {
	observer *observability.StandardObserver
	maxPages int
}

// NewPDFPreprocessor creates a PDF preprocessor. maxPages <= 0 reads every page.
func NewPDFPreprocessor(maxPages int) *PDFPreprocessor {
	return &PDFPreprocessor{maxPages: maxPages}
}

// SetObserver sets the observability component
func (pp *PDFPreprocessor) SetObserver(observer *observability.StandardObserver) {
	pp.observer = observer
}

// GetName returns the name of this preprocessor
func (pp *PDFPreprocessor) GetName() string {
	return "pdf"
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (pp *PDFPreprocessor) GetSupportedExtensions() []string {
	return []string{".pdf"}
}

// CanProcess checks if this preprocessor can handle the given file
func (pp *PDFPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, pp.GetSupportedExtensions())
}

// Process extracts page text with ledongthuc/pdf and the info dictionary
// with pdfcpu. A page that cannot be decoded is skipped; a document that
// cannot be opened fails.
func (pp *PDFPreprocessor) Process(ctx context.Context, filePath string, emit EmitFunc) error {
	finishTiming, finishStep := startTiming(pp.observer, "pdf_preprocessor", filePath)

	f, r, err := pdf.Open(filepath.Clean(filePath))
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		finishStep(false, fmt.Sprintf("error opening PDF: %v", err))
		return NewProcessingError(filePath, "pdf", "error opening PDF", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	if pp.maxPages > 0 && pageCount > pp.maxPages {
		pageCount = pp.maxPages
	}

	failedPages := 0
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			failedPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			failedPages++
			continue
		}

		for i, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			unit := Unit{
				Text:       line,
				Location:   fileLocation(filePath, detector.LocPage, pageNum, detector.LocLine, i+1),
				SnippetKey: detector.LocContext,
			}
			if err := emit(unit); err != nil {
				return err
			}
		}
	}

	fields := pp.infoFields(filePath)
	for _, field := range fields {
		unit := Unit{
			Text:     field.value,
			Location: fileLocation(filePath, detector.LocField, field.name),
		}
		if err := emit(unit); err != nil {
			return err
		}
	}

	finishTiming(true, map[string]interface{}{
		"page_count":   pageCount,
		"failed_pages": failedPages,
		"info_fields":  len(fields),
	})
	finishStep(true, fmt.Sprintf("read %d pages (%d failed), %d info fields", pageCount, failedPages, len(fields)))
	return nil
}

type infoField struct {
	name  string
	value string
}

// infoFields reads the document information dictionary. Documents pdfcpu
// cannot validate simply contribute no fields.
func (pp *PDFPreprocessor) infoFields(filePath string) []infoField {
	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		if pp.observer != nil && pp.observer.DebugObserver != nil {
			pp.observer.DebugObserver.LogDetail("pdf_preprocessor", fmt.Sprintf("no info dictionary for %s: %v", filepath.Base(filePath), err))
		}
		return nil
	}

	candidates := []infoField{
		{"Title", pdfCtx.Title},
		{"Author", pdfCtx.Author},
		{"Subject", pdfCtx.Subject},
		{"Keywords", pdfCtx.Keywords},
		{"Creator", pdfCtx.Creator},
		{"Producer", pdfCtx.Producer},
	}

	var fields []infoField
	for _, c := range candidates {
		if strings.TrimSpace(c.value) != "" {
			fields = append(fields, c)
		}
	}
	return fields
}
