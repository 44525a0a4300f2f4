// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore reads a Google Cloud Storage bucket with application default
// credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates the storage client.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// List iterates the bucket's objects under prefix.
func (g *GCSStore) List(ctx context.Context, prefix string, fn func(Object) error) error {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list gs://%s/%s: %w", g.bucket, prefix, err)
		}
		if err := fn(Object{Key: attrs.Name, Size: attrs.Size}); err != nil {
			return err
		}
	}
}

// Download copies the object into w.
func (g *GCSStore) Download(ctx context.Context, key string, w io.Writer) error {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open gs://%s/%s: %w", g.bucket, key, err)
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("read gs://%s/%s: %w", g.bucket, key, err)
	}
	return nil
}

// Close closes the storage client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
