// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"context"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/preprocessors"
	"pan-scan/internal/resilience"
	"pan-scan/internal/router"
)

// DefaultRequestsPerSecond paces list and download calls.
const DefaultRequestsPerSecond = 10

// Options configures a bucket scan.
type Options struct {
	// RequestsPerSecond limits API calls; zero uses the default.
	RequestsPerSecond float64
	// MaxFileSize skips larger objects without downloading them.
	MaxFileSize int64
	// TempDir is the parent of the private download directory.
	TempDir string
}

// BucketScanner turns the objects under a URI into sources. Each source
// downloads its object into a private directory and routes it through the
// file router.
type BucketScanner struct {
	store    ObjectStore
	uri      URI
	router   *router.FileRouter
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	observer *observability.StandardObserver
	opts     Options

	dirOnce sync.Once
	dir     string
	dirErr  error
}

// NewBucketScanner wraps store. The scanner owns store and closes it.
func NewBucketScanner(store ObjectStore, uri URI, fr *router.FileRouter, opts Options, observer *observability.StandardObserver) *BucketScanner {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = preprocessors.DefaultMaxFileSize
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &BucketScanner{
		store:    store,
		uri:      uri,
		router:   fr,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		retry:    resilience.NewRetryManager().GetConfig(resilience.PolicyCloud),
		observer: observer,
		opts:     opts,
	}
}

func (b *BucketScanner) logger() *zap.Logger {
	if b.observer != nil {
		return b.observer.Logger()
	}
	return observability.L()
}

// Sources lists the objects under the prefix and returns a source for
// each one with a scannable extension, in key order. Objects above the
// size limit become failed sources so they are reported as warnings.
func (b *BucketScanner) Sources(ctx context.Context) ([]router.Source, error) {
	extensions := b.router.SupportedExtensions()

	objects, err := resilience.RetryWithResult(ctx, b.retry, func(ctx context.Context) ([]Object, error) {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var objs []Object
		err := b.store.List(ctx, b.uri.Prefix, func(o Object) error {
			objs = append(objs, o)
			return nil
		})
		return objs, err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.uri, err)
	}

	slices.SortFunc(objects, func(a, b Object) int { return strings.Compare(a.Key, b.Key) })

	var sources []router.Source
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		ext := strings.ToLower(path.Ext(obj.Key))
		if !slices.Contains(extensions, ext) {
			b.logger().Debug("skipping object", zap.String("uri", b.uri.Object(obj.Key)), zap.String("reason", "unsupported extension"))
			continue
		}
		if obj.Size > b.opts.MaxFileSize {
			err := fmt.Errorf("%w: %d bytes exceeds limit of %d", preprocessors.ErrFileTooLarge, obj.Size, b.opts.MaxFileSize)
			sources = append(sources, router.NewFailedSource(b.uri.Object(obj.Key), b.uri.Capability(), err))
			continue
		}
		sources = append(sources, &ObjectSource{bucket: b, object: obj})
	}

	b.logger().Debug("listed objects",
		zap.String("uri", b.uri.String()),
		zap.Int("objects", len(objects)),
		zap.Int("scannable", len(sources)))
	return sources, nil
}

// downloadDir creates the private download directory on first use
func (b *BucketScanner) downloadDir() (string, error) {
	b.dirOnce.Do(func() {
		b.dir, b.dirErr = os.MkdirTemp(b.opts.TempDir, "pan-scan-*")
	})
	return b.dir, b.dirErr
}

// Close removes the download directory and closes the store.
func (b *BucketScanner) Close() error {
	var removeErr error
	if b.dir != "" {
		removeErr = os.RemoveAll(b.dir)
	}
	if err := b.store.Close(); err != nil {
		return err
	}
	return removeErr
}

// ObjectSource scans one object.
type ObjectSource struct {
	bucket *BucketScanner
	object Object
}

// Name returns the object URI
func (o *ObjectSource) Name() string {
	return o.bucket.uri.Object(o.object.Key)
}

// Capability returns the cloud adapter name
func (o *ObjectSource) Capability() string {
	return o.bucket.uri.Capability()
}

// Scan downloads the object, scans the local copy and removes it. File
// locations report the object URI.
func (o *ObjectSource) Scan(ctx context.Context, engine *detector.Engine) ([]detector.Finding, error) {
	b := o.bucket
	finishTiming := func(bool, map[string]interface{}) {}
	if b.observer != nil {
		finishTiming = b.observer.StartTiming("cloud", "scan_object", o.Name())
	}

	local, err := o.download(ctx)
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	defer os.Remove(local)

	findings, err := b.router.ScanFile(ctx, engine, local, "", o.Name())
	finishTiming(err == nil, map[string]interface{}{"size": o.object.Size, "finding_count": len(findings)})
	return findings, err
}

func (o *ObjectSource) download(ctx context.Context) (string, error) {
	b := o.bucket
	dir, err := b.downloadDir()
	if err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	// the extension picks the preprocessor
	pattern := "object-*" + strings.ToLower(path.Ext(o.object.Key))

	return resilience.RetryWithResult(ctx, b.retry, func(ctx context.Context) (string, error) {
		if err := b.limiter.Wait(ctx); err != nil {
			return "", err
		}
		f, err := os.CreateTemp(dir, pattern)
		if err != nil {
			return "", resilience.NewPermanentError("create download file", err)
		}
		if err := b.store.Download(ctx, o.object.Key, f); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", err
		}
		return f.Name(), nil
	})
}
