// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"pan-scan/internal/cloud"
	"pan-scan/internal/config"
	"pan-scan/internal/database"
	"pan-scan/internal/router"
)

// BuildCapabilities registers every adapter with its probe. File and cloud
// adapters depend on their config switch; database adapters additionally
// need their driver linked into the binary.
func BuildCapabilities(cfg *config.Config) *router.CapabilityRegistry {
	s := cfg.Sources
	r := router.NewCapabilityRegistry()

	for _, c := range []struct {
		name, desc string
		enabled    bool
	}{
		{"csv", "Delimited text, one unit per cell", s.CSV.Enabled},
		{"pdf", "PDF page text and document info", s.PDF.Enabled},
		{"excel", "Excel workbooks, one unit per cell", s.Excel.Enabled},
		{"image", "JPEG/TIFF EXIF text tags", s.Image.Enabled},
		{"plaintext", "Text files, one unit per line", s.Text.Enabled},
	} {
		r.Register(router.Capability{Name: c.name, Kind: router.KindFile, Description: c.desc, Probe: router.Enabled(c.enabled)})
	}

	for _, c := range []struct {
		name, desc string
		enabled    bool
	}{
		{database.KindSQLite, "SQLite database files", s.SQLite.Enabled},
		{database.KindPostgres, "PostgreSQL servers", s.Postgres.Enabled},
		{database.KindMySQL, "MySQL and MariaDB servers", s.MySQL.Enabled},
	} {
		r.Register(router.Capability{
			Name:        c.name,
			Kind:        router.KindDatabase,
			Description: c.desc,
			Probe:       router.AllOf(router.DriverLinked(c.name), router.Enabled(c.enabled)),
		})
	}

	for _, c := range []struct {
		name, desc string
		enabled    bool
	}{
		{cloud.CapabilityS3, "Amazon S3 buckets", s.S3.Enabled},
		{cloud.CapabilityGCS, "Google Cloud Storage buckets", s.GCS.Enabled},
		{cloud.CapabilityAzure, "Azure Blob Storage containers", s.Azure.Enabled},
	} {
		r.Register(router.Capability{Name: c.name, Kind: router.KindCloud, Description: c.desc, Probe: router.Enabled(c.enabled)})
	}

	return r
}
