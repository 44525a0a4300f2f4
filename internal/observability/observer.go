// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"go.uber.org/zap"
)

// StandardObserver records component timings and outcomes as structured log
// entries.
type StandardObserver struct {
	level         ObservabilityLevel
	logger        *zap.Logger
	runID         string
	DebugObserver *DebugObserver // set when level is ObservabilityDebug
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates an observer that tags every entry with runID.
func NewStandardObserver(level ObservabilityLevel, logger *zap.Logger, runID string) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &StandardObserver{
		level:  level,
		logger: logger.With(zap.String("run_id", runID)),
		runID:  runID,
	}
	if level == ObservabilityDebug {
		o.DebugObserver = newDebugObserver(o)
	}
	return o
}

// RunID returns the identifier shared by all entries of this run.
func (o *StandardObserver) RunID() string {
	return o.runID
}

// Logger returns the run-scoped logger.
func (o *StandardObserver) Logger() *zap.Logger {
	return o.logger
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, target string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Target:     target,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data. Failures are logged at warn level
// whenever observability is on; successes only at debug level.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	fields := []zap.Field{
		zap.String("component", data.Component),
		zap.String("operation", data.Operation),
		zap.Bool("success", data.Success),
	}
	if data.Target != "" {
		fields = append(fields, zap.String("target", data.Target))
	}
	if data.DurationMs > 0 {
		fields = append(fields, zap.Int64("duration_ms", data.DurationMs))
	}
	if data.FindingCount > 0 {
		fields = append(fields, zap.Int("finding_count", data.FindingCount))
	}
	if len(data.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", data.Metadata))
	}

	if !data.Success {
		if data.Error != "" {
			fields = append(fields, zap.String("error", data.Error))
		}
		o.logger.Warn("operation failed", fields...)
		return
	}

	if o.level == ObservabilityDebug {
		o.logger.Debug("operation completed", fields...)
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component    string
	Operation    string
	Target       string
	DurationMs   int64
	Success      bool
	Error        string
	FindingCount int
	Metadata     map[string]interface{}
}
