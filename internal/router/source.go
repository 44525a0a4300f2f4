// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
)

// Source is one unit of scanning work: a file, a database table or a
// cloud object. A Source reads its data, runs the engine and returns
// findings with their locations attached.
type Source interface {
	// Name labels the source in warnings and logs
	Name() string

	// Capability names the adapter the source needs
	Capability() string

	// Scan reads the source. An error means the source contributed nothing.
	Scan(ctx context.Context, engine *detector.Engine) ([]detector.Finding, error)
}

// FileSource scans one local file
type FileSource struct {
	Router *FileRouter
	Path   string
	// As forces a preprocessor by name; empty routes by extension
	As string
	// Display replaces the path in reported locations
	Display string
	// Adapter is the capability reported for this source; defaults to As
	Adapter string
}

// Name returns the displayed path
func (s *FileSource) Name() string {
	if s.Display != "" {
		return s.Display
	}
	return s.Path
}

// Capability returns the adapter this file needs
func (s *FileSource) Capability() string {
	if s.Adapter != "" {
		return s.Adapter
	}
	if s.As != "" {
		return s.As
	}
	if p, _ := s.Router.route(s.Path); p != nil {
		return p.GetName()
	}
	return ""
}

// Scan routes the file and scans it
func (s *FileSource) Scan(ctx context.Context, engine *detector.Engine) ([]detector.Finding, error) {
	return s.Router.ScanFile(ctx, engine, s.Path, s.As, s.Display)
}

// NewFileSource validates that path is a readable regular file and returns
// a source for it. A missing path is a configuration error.
func (fr *FileRouter) NewFileSource(path, as string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, resilience.NewConfigError("cannot scan %s: %v", path, err)
	}
	if info.IsDir() {
		return nil, resilience.NewConfigError("%s is a directory; use the dir command", path)
	}
	if as != "" {
		if _, err := fr.Preprocessor(as); err != nil {
			return nil, err
		}
	} else if ok, reason := fr.CanProcessFile(path); !ok {
		return nil, resilience.NewConfigError("cannot scan %s: %s", path, reason)
	}
	return &FileSource{Router: fr, Path: path, As: as}, nil
}

// WalkDirectory returns a source for every file under root that an
// available preprocessor accepts, in lexical order. Other files are
// skipped with a debug log; unreadable entries become warnings through
// their source.
func (fr *FileRouter) WalkDirectory(ctx context.Context, root string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, resilience.NewConfigError("cannot scan %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, resilience.NewConfigError("%s is not a directory", root)
	}

	logger := observability.L()
	if fr.observer != nil {
		logger = fr.observer.Logger()
	}

	var sources []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// unreadable directory: keep walking the rest
			logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, reason := fr.CanProcessFile(path); !ok {
			logger.Debug("skipping file", zap.String("path", path), zap.String("reason", reason))
			return nil
		}
		sources = append(sources, &FileSource{Router: fr, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return sources, nil
}

// failedSource stands in for a source that could not be set up, such as
// an unreachable database. Scanning it reports the setup error.
type failedSource struct {
	name       string
	capability string
	err        error
}

// NewFailedSource returns a source whose Scan always fails with err.
func NewFailedSource(name, capability string, err error) Source {
	return &failedSource{name: name, capability: capability, err: err}
}

func (s *failedSource) Name() string       { return s.name }
func (s *failedSource) Capability() string { return s.capability }

func (s *failedSource) Scan(context.Context, *detector.Engine) ([]detector.Finding, error) {
	return nil, s.err
}
