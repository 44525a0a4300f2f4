// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloud

import (
	"net/url"
	"strings"

	"pan-scan/internal/resilience"
)

// Capability names of the cloud adapters.
const (
	CapabilityS3    = "s3"
	CapabilityGCS   = "gcs"
	CapabilityAzure = "azure"
)

var schemeCapability = map[string]string{
	"s3":    CapabilityS3,
	"gs":    CapabilityGCS,
	"azure": CapabilityAzure,
}

// URI addresses objects under a prefix: s3://bucket/prefix,
// gs://bucket/prefix or azure://container/prefix.
type URI struct {
	Scheme string
	Bucket string
	Prefix string
}

// ParseURI parses a bucket URI. Anything malformed is a configuration error.
func ParseURI(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, resilience.NewConfigError("malformed storage URI %q: %v", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if _, ok := schemeCapability[scheme]; !ok {
		return URI{}, resilience.NewConfigError("storage URI %q must start with s3://, gs:// or azure://", raw)
	}
	if u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return URI{}, resilience.NewConfigError("malformed storage URI %q: want %s://<bucket>/<prefix>", raw, scheme)
	}
	return URI{Scheme: scheme, Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
}

// Capability returns the adapter capability for the URI's scheme.
func (u URI) Capability() string {
	return schemeCapability[u.Scheme]
}

// Object returns the URI of one object key in the same bucket.
func (u URI) Object(key string) string {
	return u.Scheme + "://" + u.Bucket + "/" + key
}

func (u URI) String() string {
	return u.Object(u.Prefix)
}
