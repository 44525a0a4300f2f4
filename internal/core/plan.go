// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"pan-scan/internal/cloud"
	"pan-scan/internal/database"
	"pan-scan/internal/router"
)

// Target kinds.
const (
	TargetFile     = "file"
	TargetDir      = "dir"
	TargetDatabase = "database"
	TargetCloud    = "cloud"
)

// Target is one thing the user asked to scan. It expands into one or more
// sources: a directory into its files, a database into its tables, a
// bucket into its objects.
type Target struct {
	Kind string
	// Path of a file or directory
	Path string
	// As forces a file adapter by name
	As string
	// Database connection parameters
	Database database.Config
	// URI of a bucket prefix
	URI   string
	Cloud cloud.Settings
}

// planned is the expansion of one target.
type planned struct {
	sources []router.Source
	closer  io.Closer
}

// plan expands targets concurrently. Sources keep the order of their
// targets, and within a target the order the adapter lists them. A
// configuration error in any target aborts the whole plan.
func (s *Scanner) plan(ctx context.Context, targets []Target) ([]router.Source, []io.Closer, error) {
	results := make([]planned, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.processor.Workers())
	for i, t := range targets {
		g.Go(func() error {
			p, err := s.expand(gctx, t)
			if err != nil {
				return err
			}
			results[i] = p
			return nil
		})
	}
	err := g.Wait()

	var sources []router.Source
	var closers []io.Closer
	for _, p := range results {
		sources = append(sources, p.sources...)
		if p.closer != nil {
			closers = append(closers, p.closer)
		}
	}
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	return sources, closers, nil
}

func (s *Scanner) expand(ctx context.Context, t Target) (planned, error) {
	switch t.Kind {
	case TargetFile:
		src, err := s.router.NewFileSource(t.Path, t.As)
		if err != nil {
			return planned{}, err
		}
		return planned{sources: []router.Source{src}}, nil

	case TargetDir:
		sources, err := s.router.WalkDirectory(ctx, t.Path)
		return planned{sources: sources}, err

	case TargetDatabase:
		dbc := s.databaseConfig(t.Database)
		if err := s.capabilities.Require(dbc.Kind); err != nil {
			return planned{}, err
		}
		sources, closer, err := database.Plan(ctx, dbc, s.observer, s.processor.Workers())
		return planned{sources: sources, closer: closer}, err

	case TargetCloud:
		uri, err := cloud.ParseURI(t.URI)
		if err != nil {
			return planned{}, err
		}
		if err := s.capabilities.Require(uri.Capability()); err != nil {
			return planned{}, err
		}
		sources, closer, err := cloud.Plan(ctx, t.URI, s.cloudSettings(uri, t.Cloud), s.openStore, s.router, s.observer)
		return planned{sources: sources, closer: closer}, err

	default:
		return planned{}, fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

// databaseConfig fills parameters the caller left unset from the
// adapter's config section.
func (s *Scanner) databaseConfig(dbc database.Config) database.Config {
	src := s.cfg.Sources.SQLite
	switch dbc.Kind {
	case database.KindPostgres:
		src = s.cfg.Sources.Postgres
	case database.KindMySQL:
		src = s.cfg.Sources.MySQL
	}
	if dbc.RowLimit == 0 {
		dbc.RowLimit = src.RowLimit
	}
	if dbc.Timeout == 0 {
		dbc.Timeout = src.Timeout
	}
	if dbc.Schema == "" && dbc.Kind == database.KindPostgres {
		dbc.Schema = src.Schema
	}
	if dbc.SSLMode == "" && dbc.Kind == database.KindPostgres {
		dbc.SSLMode = src.SSLMode
	}
	return dbc
}

func (s *Scanner) cloudSettings(uri cloud.URI, settings cloud.Settings) cloud.Settings {
	src := s.cfg.Sources.S3
	switch uri.Capability() {
	case cloud.CapabilityGCS:
		src = s.cfg.Sources.GCS
	case cloud.CapabilityAzure:
		src = s.cfg.Sources.Azure
	}
	if settings.Region == "" {
		settings.Region = src.Region
	}
	if settings.Options.RequestsPerSecond == 0 {
		settings.Options.RequestsPerSecond = src.RequestsPerSecond
	}
	if settings.Options.MaxFileSize == 0 {
		settings.Options.MaxFileSize = s.cfg.Defaults.MaxFileSize
	}
	return settings
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
