// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"io"
)

// Object is one listed object.
type Object struct {
	Key  string
	Size int64
}

// ObjectStore lists and reads the objects of one bucket or container.
type ObjectStore interface {
	// List calls fn for every object whose key starts with prefix. Listing
	// stops at the first error fn returns.
	List(ctx context.Context, prefix string, fn func(Object) error) error

	// Download writes the object's content to w.
	Download(ctx context.Context, key string, w io.Writer) error

	// Close releases the client.
	Close() error
}
