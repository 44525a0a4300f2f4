// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"pan-scan/internal/resilience"
)

// AzureConnectionStringEnv is read when no connection string is given.
const AzureConnectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"

// AzureStore reads an Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects with a storage account connection string. A
// missing or unparsable connection string is a configuration error.
func NewAzureStore(container, connectionString string) (*AzureStore, error) {
	if connectionString == "" {
		return nil, resilience.NewConfigError("azure requires --connection-string or %s", AzureConnectionStringEnv)
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, resilience.NewConfigError("invalid Azure connection string: %v", err)
	}
	return &AzureStore{client: client, container: container}, nil
}

// List pages through the container's flat blob listing.
func (a *AzureStore) List(ctx context.Context, prefix string, fn func(Object) error) error {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	pager := a.client.NewListBlobsFlatPager(a.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list azure://%s/%s: %w", a.container, prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := Object{Key: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				obj.Size = *item.Properties.ContentLength
			}
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// Download streams the blob into w.
func (a *AzureStore) Download(ctx context.Context, key string, w io.Writer) error {
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return fmt.Errorf("get azure://%s/%s: %w", a.container, key, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read azure://%s/%s: %w", a.container, key, err)
	}
	return nil
}

// Close is a no-op.
func (a *AzureStore) Close() error { return nil }
