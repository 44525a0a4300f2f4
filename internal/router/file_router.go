// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/preprocessors"
	"pan-scan/internal/resilience"
)

// ErrUnsupported is returned for files no available preprocessor accepts.
var ErrUnsupported = errors.New("unsupported file type")

// FileRouter picks a preprocessor for each file and scans the units it
// extracts.
type FileRouter struct {
	registry     *PreprocessorRegistry
	capabilities *CapabilityRegistry
	manager      *preprocessors.PreprocessorManager
	byName       map[string]preprocessors.Preprocessor
	blocked      map[string]string // extension -> unavailable adapter
	metrics      *RouterMetrics
	observer     *observability.StandardObserver
	maxFileSize  int64
}

// NewFileRouter creates a file router. A nil capability registry treats
// every preprocessor as available.
func NewFileRouter(capabilities *CapabilityRegistry, observer *observability.StandardObserver, maxFileSize int64) *FileRouter {
	if maxFileSize <= 0 {
		maxFileSize = preprocessors.DefaultMaxFileSize
	}
	return &FileRouter{
		registry:     NewPreprocessorRegistry(),
		capabilities: capabilities,
		manager:      preprocessors.NewPreprocessorManager(),
		byName:       make(map[string]preprocessors.Preprocessor),
		blocked:      make(map[string]string),
		metrics:      NewRouterMetrics(),
		observer:     observer,
		maxFileSize:  maxFileSize,
	}
}

// Registry exposes the factory registry for registration
func (fr *FileRouter) Registry() *PreprocessorRegistry {
	return fr.registry
}

// InitializePreprocessors creates every registered preprocessor whose
// capability is available. Unavailable ones are left out and their
// extensions blocked, so their files are skipped rather than sniffed as
// text.
func (fr *FileRouter) InitializePreprocessors(opts PreprocessorOptions) error {
	for _, name := range fr.registry.GetRegisteredNames() {
		if !fr.available(name) {
			fr.block(name, opts)
			continue
		}
		p, err := fr.registry.Create(name, opts)
		if err != nil {
			return resilience.NewConfigError("preprocessor %s: %v", name, err)
		}
		p.SetObserver(fr.observer)
		fr.manager.RegisterPreprocessor(p)
		fr.byName[name] = p
	}
	return nil
}

func (fr *FileRouter) block(name string, opts PreprocessorOptions) {
	p, err := fr.registry.Create(name, opts)
	if err != nil {
		return
	}
	for _, ext := range p.GetSupportedExtensions() {
		fr.blocked[ext] = name
	}
}

// route returns the preprocessor for filePath. Files whose extension
// belongs to an unavailable adapter get none, with that adapter's name.
func (fr *FileRouter) route(filePath string) (preprocessors.Preprocessor, string) {
	ext := strings.ToLower(filepath.Ext(filePath))
	p := fr.manager.GetPreprocessor(filePath)
	if adapter, blocked := fr.blocked[ext]; blocked && (p == nil || !slices.Contains(p.GetSupportedExtensions(), ext)) {
		return nil, adapter
	}
	return p, ""
}

func (fr *FileRouter) available(name string) bool {
	if fr.capabilities == nil {
		return true
	}
	ok, _ := fr.capabilities.Available(name)
	return ok
}

// Preprocessor returns the named preprocessor, or a configuration error
// when it is unknown or unavailable.
func (fr *FileRouter) Preprocessor(name string) (preprocessors.Preprocessor, error) {
	if fr.capabilities != nil {
		if err := fr.capabilities.Require(name); err != nil {
			return nil, err
		}
	}
	p, ok := fr.byName[name]
	if !ok {
		return nil, resilience.NewConfigError("no preprocessor named %q", name)
	}
	return p, nil
}

// SupportedExtensions lists the extensions of the available preprocessors
func (fr *FileRouter) SupportedExtensions() []string {
	return fr.manager.SupportedExtensions()
}

// CanProcessFile reports whether some available preprocessor accepts the
// file, with a reason for the debug log.
func (fr *FileRouter) CanProcessFile(filePath string) (bool, string) {
	p, blockedBy := fr.route(filePath)
	if p != nil {
		return true, p.GetName()
	}
	if blockedBy != "" {
		_, reason := fr.capabilities.Available(blockedBy)
		return false, fmt.Sprintf("adapter %s is not available: %s", blockedBy, reason)
	}
	return false, "no available preprocessor for " + strings.ToLower(filepath.Ext(filePath))
}

// ScanFile routes filePath to a preprocessor (the named one when as is
// set) and scans every unit it extracts. displayPath replaces the file
// location of each finding when set, so downloaded objects report their
// original URI.
func (fr *FileRouter) ScanFile(ctx context.Context, engine *detector.Engine, filePath, as, displayPath string) (findings []detector.Finding, err error) {
	finishTiming := func(bool, map[string]interface{}) {}
	if fr.observer != nil {
		finishTiming = fr.observer.StartTiming("router", "scan_file", filePath)
	}

	var p preprocessors.Preprocessor
	if as != "" {
		if p, err = fr.Preprocessor(as); err != nil {
			return nil, err
		}
	} else if p, _ = fr.route(filePath); p == nil {
		fr.metrics.RecordError("unsupported")
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filePath)
	}

	if err := preprocessors.ValidateFileSize(filePath, fr.maxFileSize); err != nil {
		fr.metrics.RecordError("file_size")
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	fr.metrics.RecordFileType(strings.ToLower(filepath.Ext(filePath)))

	defer func() {
		// a malformed document must not take the run down
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("preprocessor panic in %s: %v", p.GetName(), r)
		}
		if err != nil {
			fr.metrics.RecordError(p.GetName())
		} else {
			fr.metrics.RecordProcessing(p.GetName())
		}
		finishTiming(err == nil, map[string]interface{}{
			"preprocessor":  p.GetName(),
			"finding_count": len(findings),
		})
	}()

	err = p.Process(ctx, filePath, func(u preprocessors.Unit) error {
		if displayPath != "" {
			u.Location[detector.LocFile] = displayPath
		}
		findings = append(findings, engine.ScanAt(u.Text, u.Location, u.SnippetKey)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// GetMetrics returns current router metrics
func (fr *FileRouter) GetMetrics() *RouterMetrics {
	return fr.metrics
}

// GetPreprocessorCount returns the number of available preprocessors
func (fr *FileRouter) GetPreprocessorCount() int {
	return len(fr.manager.GetAvailablePreprocessors())
}
