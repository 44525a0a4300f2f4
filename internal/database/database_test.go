// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pan-scan/internal/detector"
	"pan-scan/internal/resilience"
)

func newSQLiteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sqlx.Open(KindSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT, note TEXT)`)
	db.MustExec(`CREATE TABLE "odd ""name""" (payload TEXT)`)
	db.MustExec(`CREATE TABLE empty (x TEXT)`)
	db.MustExec(`INSERT INTO customers (id, name, note) VALUES
		(1, 'alice', 'card 4532-0151-1283-0366 on file'),
		(2, 'bob', NULL),
		(3, 'carol', '5425233430109903')`)
	db.MustExec(`INSERT INTO "odd ""name""" (payload) VALUES ('378282246310005')`)
	return path
}

func scanAll(t *testing.T, cfg Config) []detector.Finding {
	t.Helper()
	ctx := context.Background()
	sources, closer, err := Plan(ctx, cfg, nil, 2)
	require.NoError(t, err)
	defer closer.Close()

	engine := detector.NewEngine()
	var findings []detector.Finding
	for _, src := range sources {
		assert.Equal(t, KindSQLite, src.Capability())
		f, err := src.Scan(ctx, engine)
		require.NoError(t, err, src.Name())
		findings = append(findings, f...)
	}
	return findings
}

func TestSQLite_ScansEveryTable(t *testing.T) {
	path := newSQLiteFixture(t)
	findings := scanAll(t, Config{Kind: KindSQLite, Path: path})
	require.Len(t, findings, 3)

	first := findings[0].Location()
	assert.Equal(t, "sqlite:"+path, first[detector.LocSource])
	assert.Equal(t, "customers", first[detector.LocTable])
	assert.Equal(t, "note", first[detector.LocColumn])
	assert.EqualValues(t, 1, first[detector.LocRowID])
	assert.Equal(t, "card 453201...0366 on file", first[detector.LocCellContent])

	assert.EqualValues(t, 3, findings[1].Location()[detector.LocRowID])
	assert.Equal(t, detector.BrandMastercard, findings[1].Brand())

	assert.Equal(t, `odd "name"`, findings[2].Location()[detector.LocTable])
	assert.Equal(t, detector.BrandAmex, findings[2].Brand())
}

func TestSQLite_RowLimit(t *testing.T) {
	path := newSQLiteFixture(t)
	findings := scanAll(t, Config{Kind: KindSQLite, Path: path, RowLimit: 1})
	require.Len(t, findings, 2, "only the first row of each table")
}

func TestSQLite_SourceNames(t *testing.T) {
	path := newSQLiteFixture(t)
	sources, closer, err := Plan(context.Background(), Config{Kind: KindSQLite, Path: path}, nil, 1)
	require.NoError(t, err)
	defer closer.Close()

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"sqlite:" + path + "/customers",
		"sqlite:" + path + "/empty",
		"sqlite:" + path + `/odd "name"`,
	}, names)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"sqlite without path", Config{Kind: KindSQLite}},
		{"sqlite missing file", Config{Kind: KindSQLite, Path: "/nonexistent/x.db"}},
		{"postgres without host", Config{Kind: KindPostgres, Database: "d", User: "u", Password: "p"}},
		{"mysql without password", Config{Kind: KindMySQL, Host: "h", Database: "d", User: "u"}},
		{"mysql with foreign schema", Config{Kind: KindMySQL, Host: "h", Database: "d", User: "u", Password: "p", Schema: "other"}},
		{"negative row limit", Config{Kind: KindPostgres, Host: "h", Database: "d", User: "u", Password: "p", RowLimit: -1}},
		{"unknown kind", Config{Kind: "oracle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.WithDefaults().Validate()
			require.Error(t, err)
			assert.True(t, resilience.IsConfigError(err))
		})
	}

	ok := Config{Kind: KindPostgres, Host: "db", Database: "shop", User: "scan", Password: "secret"}.WithDefaults()
	assert.NoError(t, ok.Validate())
	assert.Equal(t, 5432, ok.Port)
	assert.Equal(t, "public", ok.Schema)
	assert.Equal(t, DefaultRowLimit, ok.RowLimit)
	assert.Equal(t, "postgres:db/shop", ok.Label())
}

func TestPlan_ConfigErrorAborts(t *testing.T) {
	_, _, err := Plan(context.Background(), Config{Kind: KindPostgres, Host: "db"}, nil, 1)
	assert.True(t, resilience.IsConfigError(err))
}

func TestPlan_UnreachableBecomesFailedSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Kind: KindPostgres, Host: "127.0.0.1", Port: 1, Database: "d", User: "u", Password: "p", Timeout: time.Second}
	sources, closer, err := Plan(ctx, cfg, nil, 1)
	require.NoError(t, err)
	defer closer.Close()

	require.Len(t, sources, 1)
	assert.Equal(t, "postgres:127.0.0.1/d", sources[0].Name())
	_, scanErr := sources[0].Scan(context.Background(), detector.NewEngine())
	assert.Error(t, scanErr)
}

func TestDialectQueries(t *testing.T) {
	pg := postgresDialect{}
	cfg := Config{Kind: KindPostgres, Schema: "billing"}
	assert.Equal(t, `SELECT ctid::text, "pan", "a""b" FROM "billing"."cards" LIMIT $1`,
		pg.selectRows(cfg, "cards", []string{"pan", `a"b`}))
	assert.Equal(t, "billing.cards", pg.tableLabel(cfg, "cards"))

	my := mysqlDialect{}
	assert.Equal(t, "SELECT `pan` FROM `card``s` LIMIT ?", my.selectRows(Config{}, "card`s", []string{"pan"}))
	assert.False(t, my.hasRowID())

	dsn, err := pg.dsn(Config{Host: "db", Port: 5432, Database: "shop", User: "o'neil", Password: `p\w`, SSLMode: "disable", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `host='db' port=5432 dbname='shop' user='o\'neil' password='p\\w' sslmode='disable' connect_timeout=5`, dsn)
}

func TestCellString(t *testing.T) {
	for _, tt := range []struct {
		in   any
		want string
		ok   bool
	}{
		{nil, "", false},
		{"", "", false},
		{[]byte("abc"), "abc", true},
		{int64(4532015112830366), "4532015112830366", true},
		{float64(12.5), "12.5", true},
		{true, "true", true},
	} {
		got, ok := cellString(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ok, ok)
	}
}
