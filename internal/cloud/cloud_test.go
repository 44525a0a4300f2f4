// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pan-scan/internal/detector"
	"pan-scan/internal/preprocessors"
	"pan-scan/internal/resilience"
	"pan-scan/internal/router"
)

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string]string
	sizes      map[string]int64
	listErr    error
	failOnce   map[string]error
	downloaded []string
	closed     bool
}

func (f *fakeStore) List(_ context.Context, prefix string, fn func(Object) error) error {
	if f.listErr != nil {
		return f.listErr
	}
	for key, body := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		size := int64(len(body))
		if s, ok := f.sizes[key]; ok {
			size = s
		}
		if err := fn(Object{Key: key, Size: size}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Download(_ context.Context, key string, w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOnce[key]; ok {
		delete(f.failOnce, key)
		return err
	}
	f.downloaded = append(f.downloaded, key)
	_, err := io.WriteString(w, f.objects[key])
	return err
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func newRouter(t *testing.T) *router.FileRouter {
	t.Helper()
	fr := router.NewFileRouter(nil, nil, 0)
	router.RegisterDefaultPreprocessors(fr.Registry())
	require.NoError(t, fr.InitializePreprocessors(router.PreprocessorOptions{}))
	return fr
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		raw        string
		want       URI
		capability string
	}{
		{"s3://billing/exports/2024/", URI{Scheme: "s3", Bucket: "billing", Prefix: "exports/2024/"}, CapabilityS3},
		{"gs://archive", URI{Scheme: "gs", Bucket: "archive"}, CapabilityGCS},
		{"AZURE://logs/app", URI{Scheme: "azure", Bucket: "logs", Prefix: "app"}, CapabilityAzure},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURI(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.capability, got.Capability())
		})
	}

	for _, raw := range []string{"", "billing/exports", "ftp://host/x", "s3:///nobucket", "s3://user@bucket/x", "gs://b/x?y=1", "%zz"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, err := ParseURI(raw)
			require.Error(t, err)
			assert.True(t, resilience.IsConfigError(err))
		})
	}
}

func TestURI_Object(t *testing.T) {
	u := URI{Scheme: "gs", Bucket: "archive", Prefix: "2024/"}
	assert.Equal(t, "gs://archive/2024/cards.csv", u.Object("2024/cards.csv"))
	assert.Equal(t, "gs://archive/2024/", u.String())
}

func TestBucketScanner_ScansObjects(t *testing.T) {
	store := &fakeStore{objects: map[string]string{
		"exports/cards.csv": "name,pan\nalice,4532015112830366\n",
		"exports/notes.txt": "nothing here\n",
		"exports/photo.bin": "\x00\x01",
		"exports/sub/":      "",
		"other/ignored.txt": "4532015112830366\n",
	}}
	uri, err := ParseURI("s3://billing/exports/")
	require.NoError(t, err)

	b := NewBucketScanner(store, uri, newRouter(t), Options{RequestsPerSecond: 1000, TempDir: t.TempDir()}, nil)
	sources, err := b.Sources(context.Background())
	require.NoError(t, err)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
		assert.Equal(t, CapabilityS3, s.Capability())
	}
	assert.Equal(t, []string{"s3://billing/exports/cards.csv", "s3://billing/exports/notes.txt"}, names)

	findings, err := sources[0].Scan(context.Background(), detector.NewEngine())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	loc := findings[0].Location()
	assert.Equal(t, "s3://billing/exports/cards.csv", loc[detector.LocFile])
	assert.Equal(t, 2, loc[detector.LocRow])
	assert.Equal(t, 2, loc[detector.LocColumn])

	dir, err := b.downloadDir()
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "downloads are removed after scanning")

	require.NoError(t, b.Close())
	assert.True(t, store.closed)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestBucketScanner_OversizedObjectIsWarning(t *testing.T) {
	store := &fakeStore{
		objects: map[string]string{"big.txt": "x"},
		sizes:   map[string]int64{"big.txt": 1 << 40},
	}
	b := NewBucketScanner(store, URI{Scheme: "gs", Bucket: "b"}, newRouter(t), Options{MaxFileSize: 1024}, nil)
	defer b.Close()

	sources, err := b.Sources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)

	_, err = sources[0].Scan(context.Background(), detector.NewEngine())
	assert.ErrorIs(t, err, preprocessors.ErrFileTooLarge)
	assert.Empty(t, store.downloaded)
}

func TestObjectSource_RetriesTransientDownload(t *testing.T) {
	store := &fakeStore{
		objects:  map[string]string{"a.txt": "card 5425233430109903\n"},
		failOnce: map[string]error{"a.txt": errors.New("connection reset by peer")},
	}
	b := NewBucketScanner(store, URI{Scheme: "azure", Bucket: "c"}, newRouter(t), Options{TempDir: t.TempDir()}, nil)
	defer b.Close()

	sources, err := b.Sources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)

	findings, err := sources[0].Scan(context.Background(), detector.NewEngine())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, detector.BrandMastercard, findings[0].Brand())
	assert.Equal(t, []string{"a.txt"}, store.downloaded)
}

func TestObjectSource_PermanentDownloadFailure(t *testing.T) {
	store := &fakeStore{
		objects:  map[string]string{"a.txt": "x"},
		failOnce: map[string]error{"a.txt": errors.New("AccessDenied: access denied")},
	}
	b := NewBucketScanner(store, URI{Scheme: "s3", Bucket: "b"}, newRouter(t), Options{TempDir: t.TempDir()}, nil)
	defer b.Close()

	sources, err := b.Sources(context.Background())
	require.NoError(t, err)
	_, err = sources[0].Scan(context.Background(), detector.NewEngine())
	assert.ErrorContains(t, err, "access denied")
}

func TestPlan(t *testing.T) {
	fr := newRouter(t)

	_, _, err := Plan(context.Background(), "ftp://x", Settings{}, nil, fr, nil)
	assert.True(t, resilience.IsConfigError(err))

	failing := func(context.Context, URI, Settings) (ObjectStore, error) {
		return &fakeStore{listErr: errors.New("AccessDenied")}, nil
	}
	sources, closer, err := Plan(context.Background(), "s3://locked", Settings{}, failing, fr, nil)
	require.NoError(t, err)
	defer closer.Close()
	require.Len(t, sources, 1)
	assert.Equal(t, "s3://locked/", sources[0].Name())
	_, err = sources[0].Scan(context.Background(), detector.NewEngine())
	assert.Error(t, err)

	broken := func(context.Context, URI, Settings) (ObjectStore, error) {
		return nil, errors.New("no credentials")
	}
	sources, _, err = Plan(context.Background(), "gs://bucket", Settings{}, broken, fr, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, CapabilityGCS, sources[0].Capability())
}

func TestOpenStore_AzureRequiresConnectionString(t *testing.T) {
	t.Setenv(AzureConnectionStringEnv, "")
	_, err := OpenStore(context.Background(), URI{Scheme: "azure", Bucket: "c"}, Settings{})
	require.Error(t, err)
	assert.True(t, resilience.IsConfigError(err))

	_, err = OpenStore(context.Background(), URI{Scheme: "azure", Bucket: "c"}, Settings{ConnectionString: "not a connection string"})
	assert.True(t, resilience.IsConfigError(err))
}
