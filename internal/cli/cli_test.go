// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/cloud"
	"pan-scan/internal/formatters"
	"pan-scan/internal/observability"
	"pan-scan/internal/paths"
	"pan-scan/internal/router"
	"pan-scan/internal/version"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.ConfigDirEnv, filepath.Join(dir, "config"))
	for _, env := range []string{"PANSCAN_FORMAT", "PANSCAN_OUTPUT", "PANSCAN_PROFILE", "PANSCAN_CONFIG", "PANSCAN_WORKERS"} {
		t.Setenv(env, "")
	}
	return dir
}

func runWith(t *testing.T, ctx context.Context, opts Options, args ...string) result {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	var stdout, stderr bytes.Buffer
	opts.Stdout, opts.Stderr = &stdout, &stderr
	code := Execute(ctx, args, opts)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	return runWith(t, context.Background(), Options{}, args...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExecute_FileWithFindings(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "notes.txt", "nothing here\ncard 4532-0151-1283-0366 on file\n")

	r := run(t, "file", path, "--no-color")
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "[WARNING] 1 potential credit card number(s) detected!"))
	assert.Contains(t, r.stdout, "Location : Line=2")
	assert.Contains(t, r.stdout, "Masked   : 453201...0366")
	assert.NotContains(t, r.stdout, "4532015112830366")
	assert.NotContains(t, r.stdout, "4532-0151-1283-0366")
}

func TestExecute_NoFindings(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "clean.txt", "order 1234 shipped\n")

	r := run(t, "file", path)
	assert.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "[OK] No credit card numbers detected.\n", r.stdout)
}

func TestExecute_DirJSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "data/a.txt", "4532015112830366\n")
	writeFile(t, dir, "data/b.csv", "name,pan\nbob,378282246310005\n")
	writeFile(t, dir, "data/c.bin", "\x00\x01\x02")

	r := run(t, "dir", filepath.Join(dir, "data"), "--format", "json")
	require.Equal(t, ExitFindings, r.code, r.stderr)

	var doc struct {
		Findings []aggregate.Entry `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, "453201...0366", doc.Findings[0].MaskedNumber)
	assert.Equal(t, "378282...0005", doc.Findings[1].MaskedNumber)
}

func TestExecute_ConfigErrors(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "off.yaml", "sources:\n  pdf:\n    enabled: false\n")
	writeFile(t, dir, "doc.pdf", "%PDF-1.4")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"file", filepath.Join(dir, "nope.txt")}, "cannot scan"},
		{"unknown format", []string{"file", path, "--format", "xml"}, "unsupported format"},
		{"unknown profile", []string{"file", path, "--profile", "nightly"}, `profile "nightly" not found`},
		{"bad delimiter", []string{"csv", path, "--delimiter", "ab"}, "delimiter"},
		{"postgres without host", []string{"postgres", "--database", "shop"}, "host"},
		{"wrong scheme", []string{"s3", "gs://bucket/x"}, "s3 expects a s3:// URI"},
		{"disabled adapter", []string{"pdf", filepath.Join(dir, "doc.pdf"), "--config", filepath.Join(dir, "off.yaml")}, "pdf"},
		{"missing config file", []string{"file", path, "--config", filepath.Join(dir, "absent.yaml")}, "config"},
		{"unknown flag", []string{"file", path, "--bogus"}, "unknown flag"},
		{"missing argument", []string{"sqlite"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.args...)
			assert.Equal(t, ExitConfig, r.code)
			assert.Contains(t, r.stderr, tt.want)
			assert.Empty(t, r.stdout)
		})
	}
}

func TestExecute_Precedence(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "4532015112830366\n")
	cfg := writeFile(t, dir, "pan-scan.yaml", `defaults:
  format: yaml
profiles:
  sheet:
    format: csv
`)

	r := run(t, "file", path, "--config", cfg)
	assert.Contains(t, r.stdout, "run_id:", "config file format")

	r = run(t, "file", path, "--config", cfg, "--profile", "sheet")
	assert.True(t, strings.HasPrefix(r.stdout, "source,file,"), "profile beats config file")

	t.Setenv("PANSCAN_FORMAT", "json")
	r = run(t, "file", path, "--config", cfg, "--profile", "sheet")
	assert.True(t, strings.HasPrefix(r.stdout, "{"), "environment beats profile")

	r = run(t, "file", path, "--config", cfg, "--profile", "sheet", "--format", "text", "--no-color")
	assert.True(t, strings.HasPrefix(r.stdout, "[WARNING]"), "flag beats environment")
}

func TestExecute_BuiltinCIProfile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "4532015112830366\n")

	r := run(t, "file", path, "--profile", "ci")
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.True(t, json.Valid([]byte(r.stdout)))
}

func TestExecute_OutputFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "4532015112830366\n")
	out := filepath.Join(dir, "report.parquet")

	r := run(t, "file", path, "--format", "parquet", "--output", out)
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.Empty(t, r.stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExecute_CSVDelimiter(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "export.txt", "name;pan\nalice;4532015112830366\n")

	r := run(t, "csv", path, "--delimiter", ";", "--no-color")
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Location : Row=2, Column=2")
}

func TestExecute_SQLite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "shop.db")
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE orders (id INTEGER PRIMARY KEY, pan TEXT)`)
	db.MustExec(`INSERT INTO orders (pan) VALUES ('4532015112830366'), ('5425233430109903')`)
	require.NoError(t, db.Close())

	r := run(t, "sqlite", path, "--row-limit", "1", "--no-color")
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.Contains(t, r.stdout, "[WARNING] 1 potential credit card number(s) detected!")
	assert.Contains(t, r.stdout, "Location : Table=orders, Column=pan, RowID=1")
}

type memStore struct {
	objects map[string]string
}

func (m memStore) List(_ context.Context, prefix string, fn func(cloud.Object) error) error {
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			if err := fn(cloud.Object{Key: k, Size: int64(len(v))}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m memStore) Download(_ context.Context, key string, w io.Writer) error {
	_, err := io.WriteString(w, m.objects[key])
	return err
}

func (memStore) Close() error { return nil }

func TestExecute_Cloud(t *testing.T) {
	isolate(t)
	var gotRegion string
	open := func(_ context.Context, uri cloud.URI, s cloud.Settings) (cloud.ObjectStore, error) {
		gotRegion = s.Region
		return memStore{objects: map[string]string{"exports/cards.txt": "visa 4532015112830366\n"}}, nil
	}

	r := runWith(t, context.Background(), Options{OpenStore: open}, "s3", "s3://billing/exports/", "--region", "eu-west-1", "--no-color")
	require.Equal(t, ExitFindings, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Source   : s3://billing/exports/cards.txt")
	assert.Equal(t, "eu-west-1", gotRegion)
}

func TestExecute_Interrupted(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "4532015112830366\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := runWith(t, ctx, Options{}, "file", path)
	assert.Equal(t, ExitFailure, r.code)
	assert.Contains(t, r.stderr, "scan interrupted")
	assert.Empty(t, r.stdout)
}

func TestExecute_Suppressions(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "a.txt", "4532015112830366\n")
	rules := filepath.Join(dir, "rules.yaml")

	r := run(t, "suppress", "add", "453201...0366", "--reason", "test card", "--suppressions", rules)
	require.Equal(t, ExitOK, r.code, r.stderr)
	require.Contains(t, r.stdout, "Added suppression rule ")
	id := strings.TrimSpace(strings.TrimPrefix(r.stdout, "Added suppression rule "))

	r = run(t, "suppress", "list", "--suppressions", rules)
	assert.Contains(t, r.stdout, "ID: "+id+" (active)")
	assert.Contains(t, r.stdout, "Reason: test card")

	r = run(t, "file", path, "--suppressions", rules, "--no-color")
	assert.Equal(t, ExitOK, r.code, "suppressed findings do not fail the run")
	assert.Contains(t, r.stdout, "[OK] No credit card numbers detected.")
	assert.Contains(t, r.stdout, "1 finding(s) suppressed.")

	r = run(t, "file", path, "--suppressions", rules, "--no-suppressions")
	assert.Equal(t, ExitFindings, r.code)

	r = run(t, "suppress", "add", "4532015112830366", "--reason", "x", "--suppressions", rules)
	assert.Equal(t, ExitConfig, r.code, "full numbers are rejected")

	r = run(t, "suppress", "remove", id, "--suppressions", rules)
	require.Equal(t, ExitOK, r.code, r.stderr)
	r = run(t, "file", path, "--suppressions", rules)
	assert.Equal(t, ExitFindings, r.code)
}

func TestExecute_Capabilities(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, dir, "c.yaml", "sources:\n  excel:\n    enabled: false\n")

	r := run(t, "capabilities", "--format", "json", "--config", cfg)
	require.Equal(t, ExitOK, r.code, r.stderr)

	var statuses []router.CapabilityStatus
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &statuses))
	byName := make(map[string]router.CapabilityStatus)
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.True(t, byName["csv"].Available)
	assert.False(t, byName["excel"].Available)
	assert.Contains(t, byName, "azure")

	r = run(t, "capabilities", "--no-color")
	assert.Contains(t, r.stdout, "ADAPTER")
	assert.Contains(t, r.stdout, "plaintext")
}

func TestExecute_Version(t *testing.T) {
	r := run(t, "version", "--short")
	assert.Equal(t, ExitOK, r.code)
	assert.Equal(t, version.Short()+"\n", r.stdout)

	r = run(t, "--version")
	assert.Equal(t, version.Short()+"\n", r.stdout)
}

func TestExecute_Formats(t *testing.T) {
	isolate(t)

	r := run(t, "formats", "--format", "json")
	require.Equal(t, ExitOK, r.code, r.stderr)
	var infos []formatters.FormatInfo
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &infos))
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"csv", "json", "parquet", "text", "yaml"}, names)

	r = run(t, "formats")
	assert.Contains(t, r.stdout, "FORMAT")
	assert.Contains(t, r.stdout, "application/vnd.apache.parquet")
}

func TestTruncateLeft(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"/very/long/path/file.txt", 12, ".../file.txt"},
		{"abcdef", 2, "ef"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateLeft(tt.in, tt.width))
	}
}
