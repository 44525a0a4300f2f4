// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DebugObserver provides step-by-step debugging at debug level. Nested
// steps are indented.
type DebugObserver struct {
	parent *StandardObserver
	mu     sync.Mutex
	indent int
}

func newDebugObserver(parent *StandardObserver) *DebugObserver {
	return &DebugObserver{parent: parent}
}

// StartStep begins a processing step.
func (d *DebugObserver) StartStep(component, step, target string) func(success bool, details string) {
	start := time.Now()

	d.mu.Lock()
	prefix := strings.Repeat("  ", d.indent)
	d.indent++
	d.mu.Unlock()

	d.parent.logger.Debug(prefix+"start "+component+": "+step, zap.String("target", target))

	return func(success bool, details string) {
		d.mu.Lock()
		d.indent--
		d.mu.Unlock()

		outcome := "done "
		if !success {
			outcome = "failed "
		}
		d.parent.logger.Debug(prefix+outcome+component+": "+step,
			zap.String("target", target),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("details", details),
		)
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.parent.logger.Debug("  → " + component + ": " + detail)
}
