// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// tableColumns is a table and the columns worth scanning, in column order.
type tableColumns struct {
	Name    string
	Columns []string
}

// dialect hides the per-database SQL.
type dialect interface {
	// dsn builds the driver connection string
	dsn(cfg Config) (string, error)

	// tables lists scannable tables with their text-like columns
	tables(ctx context.Context, db *sqlx.DB, cfg Config) ([]tableColumns, error)

	// selectRows returns a query whose result is the optional row id
	// followed by the given columns, limited to one bind parameter
	selectRows(cfg Config, table string, columns []string) string

	// hasRowID reports whether selectRows returns a leading row id column
	hasRowID() bool

	// tableLabel is the table name as reported
	tableLabel(cfg Config, table string) string
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]dialect{}
)

// registerDialect is called from the build-tagged driver files.
func registerDialect(kind string, d dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[kind] = d
}

func lookupDialect(kind string) (dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[kind]
	return d, ok
}

// quoteIdent quotes an identifier with q, doubling embedded quotes.
func quoteIdent(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// groupColumns folds (table, column) rows into tables in first-seen order.
func groupColumns(rows []columnRow) []tableColumns {
	var tables []tableColumns
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.Table]
		if !ok {
			i = len(tables)
			index[r.Table] = i
			tables = append(tables, tableColumns{Name: r.Table})
		}
		tables[i].Columns = append(tables[i].Columns, r.Column)
	}
	return tables
}

type columnRow struct {
	Table  string `db:"table_name"`
	Column string `db:"column_name"`
}
