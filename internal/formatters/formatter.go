// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"pan-scan/internal/aggregate"
)

// FormatterOptions controls report detail.
type FormatterOptions struct {
	// Verbose adds masked context snippets and lists suppressed findings.
	Verbose bool
	NoColor bool
}

// Formatter renders an aggregated report. Output may be binary (parquet),
// so formatters return bytes rather than strings.
type Formatter interface {
	Format(report *aggregate.Report, options FormatterOptions) ([]byte, error)

	// Name is the value accepted by --format.
	Name() string
	Description() string
	// FileExtension includes the leading dot.
	FileExtension() string
}

// Registry maps format names to formatters. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds formatter, replacing any formatter with the same name.
func (r *Registry) Register(formatter Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[formatter.Name()] = formatter
}

func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Export formats report with the named formatter. A nil report is
// rendered as an empty one.
func (r *Registry) Export(format string, report *aggregate.Report, options FormatterOptions) ([]byte, error) {
	formatter, exists := r.Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(r.List(), ", "))
	}
	if report == nil {
		report = &aggregate.Report{}
	}
	return formatter.Format(report, options)
}

// FormatInfo describes a registered formatter for `pan-scan formats`.
type FormatInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Extension   string `json:"extension" yaml:"extension"`
	MimeType    string `json:"mime_type" yaml:"mime_type"`
}

// DefaultRegistry is filled by the init functions of the formatter
// subpackages.
var DefaultRegistry = NewRegistry()

func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

func List() []string {
	return DefaultRegistry.List()
}

func Export(format string, report *aggregate.Report, options FormatterOptions) ([]byte, error) {
	return DefaultRegistry.Export(format, report, options)
}

var mimeTypes = map[string]string{
	"json":    "application/json",
	"csv":     "text/csv",
	"yaml":    "application/x-yaml",
	"text":    "text/plain",
	"parquet": "application/vnd.apache.parquet",
}

// GetFormatInfo describes the named formatter; the zero value when it is
// not registered.
func GetFormatInfo(name string) FormatInfo {
	formatter, exists := Get(name)
	if !exists {
		return FormatInfo{}
	}

	mime, ok := mimeTypes[name]
	if !ok {
		mime = "application/octet-stream"
	}
	return FormatInfo{
		Name:        formatter.Name(),
		Description: formatter.Description(),
		Extension:   formatter.FileExtension(),
		MimeType:    mime,
	}
}

// GetSupportedFormats describes every registered formatter, sorted by name.
func GetSupportedFormats() []FormatInfo {
	names := List()
	formats := make([]FormatInfo, 0, len(names))
	for _, name := range names {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}
