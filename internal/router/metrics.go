// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"maps"
	"sync"
)

// RouterMetrics counts routed files by preprocessor, extension and failure
type RouterMetrics struct {
	mu             sync.Mutex
	filesProcessed map[string]int64
	errorCounts    map[string]int64
	fileTypeCounts map[string]int64
}

// NewRouterMetrics creates a new metrics collector
func NewRouterMetrics() *RouterMetrics {
	return &RouterMetrics{
		filesProcessed: make(map[string]int64),
		errorCounts:    make(map[string]int64),
		fileTypeCounts: make(map[string]int64),
	}
}

// RecordProcessing records a successfully processed file
func (m *RouterMetrics) RecordProcessing(preprocessor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filesProcessed[preprocessor]++
}

// RecordError records error metrics
func (m *RouterMetrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCounts[errorType]++
}

// RecordFileType records file type metrics
func (m *RouterMetrics) RecordFileType(fileExt string) {
	if fileExt == "" {
		fileExt = "(none)"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileTypeCounts[fileExt]++
}

// GetSummary returns a snapshot of the counters
func (m *RouterMetrics) GetSummary() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"files_processed":  maps.Clone(m.filesProcessed),
		"error_counts":     maps.Clone(m.errorCounts),
		"file_type_counts": maps.Clone(m.fileTypeCounts),
	}
}
