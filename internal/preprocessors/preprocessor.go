// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// Unit is one piece of extracted text together with where it came from.
// SnippetKey names the location field (context or cell_content) that
// should carry the masked text of the unit when it holds a card number.
type Unit struct {
	Text       string
	Location   detector.Location
	SnippetKey string
}

// EmitFunc receives units as a preprocessor extracts them. Returning an
// error stops extraction and is returned from Process.
type EmitFunc func(Unit) error

// Preprocessor interface defines methods for extracting text from files
type Preprocessor interface {
	// CanProcess checks if this preprocessor can handle the given file
	CanProcess(filePath string) bool

	// Process streams the text units of the file to emit, in document order
	Process(ctx context.Context, filePath string, emit EmitFunc) error

	// GetName returns the name of this preprocessor
	GetName() string

	// GetSupportedExtensions returns the file extensions this preprocessor supports
	GetSupportedExtensions() []string

	// SetObserver sets the observability component
	SetObserver(observer *observability.StandardObserver)
}

// PreprocessorManager keeps preprocessors in registration order
type PreprocessorManager struct {
	preprocessors []Preprocessor
}

// NewPreprocessorManager creates a new preprocessor manager
func NewPreprocessorManager() *PreprocessorManager {
	return &PreprocessorManager{
		preprocessors: make([]Preprocessor, 0),
	}
}

// RegisterPreprocessor adds a preprocessor to the manager
func (pm *PreprocessorManager) RegisterPreprocessor(p Preprocessor) {
	pm.preprocessors = append(pm.preprocessors, p)
}

// GetPreprocessor returns the first registered preprocessor that can
// handle the file, or nil if none can.
func (pm *PreprocessorManager) GetPreprocessor(filePath string) Preprocessor {
	for _, p := range pm.preprocessors {
		if p.CanProcess(filePath) {
			return p
		}
	}
	return nil
}

// GetAvailablePreprocessors returns all registered preprocessors
func (pm *PreprocessorManager) GetAvailablePreprocessors() []Preprocessor {
	return pm.preprocessors
}

// SupportedExtensions returns the union of the registered extensions, sorted.
func (pm *PreprocessorManager) SupportedExtensions() []string {
	var exts []string
	for _, p := range pm.preprocessors {
		for _, ext := range p.GetSupportedExtensions() {
			if !slices.Contains(exts, ext) {
				exts = append(exts, ext)
			}
		}
	}
	slices.Sort(exts)
	return exts
}

func hasExtension(filePath string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(filePath)))
}

// fileLocation starts a location map for a unit of filePath.
func fileLocation(filePath string, kv ...any) detector.Location {
	loc := detector.Location{detector.LocFile: filePath}
	for i := 0; i+1 < len(kv); i += 2 {
		loc[kv[i].(string)] = kv[i+1]
	}
	return loc
}

// startTiming returns completion callbacks that are safe to call when no
// observer is attached.
func startTiming(observer *observability.StandardObserver, component, filePath string) (func(bool, map[string]interface{}), func(bool, string)) {
	finishTiming := func(bool, map[string]interface{}) {}
	finishStep := func(bool, string) {}
	if observer != nil {
		finishTiming = observer.StartTiming(component, "process_file", filePath)
		if observer.DebugObserver != nil {
			finishStep = observer.DebugObserver.StartStep(component, "process_file", filePath)
		}
	}
	return finishTiming, finishStep
}
