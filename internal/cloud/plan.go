// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"io"
	"os"

	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
	"pan-scan/internal/router"
)

// Settings carries the provider parameters for Plan.
type Settings struct {
	Region           string
	ConnectionString string
	Options          Options
}

// StoreFactory opens the store for a parsed URI.
type StoreFactory func(ctx context.Context, uri URI, settings Settings) (ObjectStore, error)

// OpenStore opens the provider client that matches the URI scheme. The
// Azure connection string falls back to AZURE_STORAGE_CONNECTION_STRING.
func OpenStore(ctx context.Context, uri URI, settings Settings) (ObjectStore, error) {
	switch uri.Scheme {
	case "s3":
		return NewS3Store(ctx, uri.Bucket, settings.Region)
	case "gs":
		return NewGCSStore(ctx, uri.Bucket)
	default:
		cs := settings.ConnectionString
		if cs == "" {
			cs = os.Getenv(AzureConnectionStringEnv)
		}
		return NewAzureStore(uri.Bucket, cs)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Plan parses rawURI, opens the store with open and lists the sources.
// Configuration errors are returned. Client or listing failures become a
// single failed source for the URI.
func Plan(ctx context.Context, rawURI string, settings Settings, open StoreFactory, fr *router.FileRouter, observer *observability.StandardObserver) ([]router.Source, io.Closer, error) {
	uri, err := ParseURI(rawURI)
	if err != nil {
		return nil, nil, err
	}
	if open == nil {
		open = OpenStore
	}

	store, err := open(ctx, uri, settings)
	if err != nil {
		if resilience.IsConfigError(err) {
			return nil, nil, err
		}
		return []router.Source{router.NewFailedSource(uri.String(), uri.Capability(), err)}, nopCloser{}, nil
	}

	b := NewBucketScanner(store, uri, fr, settings.Options, observer)
	sources, err := b.Sources(ctx)
	if err != nil {
		return []router.Source{router.NewFailedSource(uri.String(), uri.Capability(), err)}, b, nil
	}
	return sources, b, nil
}
