// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"io"

	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
	"pan-scan/internal/router"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Plan opens the database and returns one source per table together with
// the closer for the connection pool. Configuration errors are returned;
// a database that cannot be reached becomes a single failed source so the
// run reports it as a warning.
func Plan(ctx context.Context, cfg Config, observer *observability.StandardObserver, maxConns int) ([]router.Source, io.Closer, error) {
	s, err := Open(ctx, cfg, observer, maxConns)
	if err != nil {
		if resilience.IsConfigError(err) {
			return nil, nil, err
		}
		cfg = cfg.WithDefaults()
		return []router.Source{router.NewFailedSource(cfg.Label(), cfg.Kind, err)}, nopCloser{}, nil
	}

	sources, err := s.Sources(ctx)
	if err != nil {
		return []router.Source{router.NewFailedSource(s.Label(), cfg.Kind, err)}, s, nil
	}
	return sources, s, nil
}
