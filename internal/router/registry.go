// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"

	"pan-scan/internal/preprocessors"
)

// PreprocessorOptions configures the built-in preprocessors
type PreprocessorOptions struct {
	CSVDelimiter   string
	TextExtensions []string
	SniffText      bool
	MaxPDFPages    int
}

// PreprocessorFactory creates a preprocessor from options
type PreprocessorFactory func(opts PreprocessorOptions) (preprocessors.Preprocessor, error)

// PreprocessorRegistry keeps preprocessor factories in registration order.
// Earlier registrations win when two preprocessors accept the same file.
type PreprocessorRegistry struct {
	factories map[string]PreprocessorFactory
	order     []string
}

// NewPreprocessorRegistry creates a new preprocessor registry
func NewPreprocessorRegistry() *PreprocessorRegistry {
	return &PreprocessorRegistry{
		factories: make(map[string]PreprocessorFactory),
	}
}

// Register adds a preprocessor factory to the registry
func (r *PreprocessorRegistry) Register(name string, factory PreprocessorFactory) {
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// Create creates a preprocessor instance by name
func (r *PreprocessorRegistry) Create(name string, opts PreprocessorOptions) (preprocessors.Preprocessor, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("no preprocessor registered as %q", name)
	}
	return factory(opts)
}

// GetRegisteredNames returns all registered preprocessor names in order
func (r *PreprocessorRegistry) GetRegisteredNames() []string {
	return append([]string(nil), r.order...)
}

// RegisterDefaultPreprocessors registers the built-in file adapters.
// Binary formats come before plain text so that sniffing only applies to
// files no other preprocessor claims.
func RegisterDefaultPreprocessors(r *PreprocessorRegistry) {
	r.Register("csv", func(opts PreprocessorOptions) (preprocessors.Preprocessor, error) {
		return preprocessors.NewCSVPreprocessor(opts.CSVDelimiter)
	})
	r.Register("pdf", func(opts PreprocessorOptions) (preprocessors.Preprocessor, error) {
		return preprocessors.NewPDFPreprocessor(opts.MaxPDFPages), nil
	})
	r.Register("excel", func(PreprocessorOptions) (preprocessors.Preprocessor, error) {
		return preprocessors.NewExcelPreprocessor(), nil
	})
	r.Register("image", func(PreprocessorOptions) (preprocessors.Preprocessor, error) {
		return preprocessors.NewImageMetadataPreprocessor(), nil
	})
	r.Register("plaintext", func(opts PreprocessorOptions) (preprocessors.Preprocessor, error) {
		return preprocessors.NewPlainTextPreprocessor(opts.TextExtensions, opts.SniffText), nil
	})
}
