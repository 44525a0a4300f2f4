// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !no_sqlite

package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	registerDialect(KindSQLite, sqliteDialect{})
}

type sqliteDialect struct{}

// dsn opens the file read-only.
func (sqliteDialect) dsn(cfg Config) (string, error) {
	u := url.URL{Scheme: "file", Opaque: cfg.Path}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.Timeout.Milliseconds()))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// tables lists every user table; SQLite columns are dynamically typed so
// all of them are scanned.
func (sqliteDialect) tables(ctx context.Context, db *sqlx.DB, _ Config) ([]tableColumns, error) {
	var names []string
	err := db.SelectContext(ctx, &names,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var tables []tableColumns
	for _, name := range names {
		var columns []string
		err := db.SelectContext(ctx, &columns,
			`SELECT name FROM pragma_table_info(?) ORDER BY cid`, name)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", name, err)
		}
		if len(columns) > 0 {
			tables = append(tables, tableColumns{Name: name, Columns: columns})
		}
	}
	return tables, nil
}

func (sqliteDialect) selectRows(_ Config, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c, `"`)
	}
	return fmt.Sprintf(`SELECT rowid, %s FROM %s LIMIT ?`, strings.Join(quoted, ", "), quoteIdent(table, `"`))
}

func (sqliteDialect) hasRowID() bool { return true }

func (sqliteDialect) tableLabel(_ Config, table string) string { return table }
