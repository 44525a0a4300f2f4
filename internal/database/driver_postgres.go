// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !no_postgres

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func init() {
	registerDialect(KindPostgres, postgresDialect{})
}

type postgresDialect struct{}

// pqValue quotes a keyword/value connection parameter.
func pqValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (postgresDialect) dsn(cfg Config) (string, error) {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		pqValue(cfg.Host), cfg.Port, pqValue(cfg.Database), pqValue(cfg.User), pqValue(cfg.Password),
		pqValue(cfg.SSLMode), int(cfg.Timeout.Seconds())), nil
}

func (postgresDialect) tables(ctx context.Context, db *sqlx.DB, cfg Config) ([]tableColumns, error) {
	var rows []columnRow
	err := db.SelectContext(ctx, &rows, db.Rebind(`
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND data_type IN ('character varying', 'text', 'character', 'varchar', 'name')
		ORDER BY table_name, ordinal_position`), cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("list text columns in schema %s: %w", cfg.Schema, err)
	}
	return groupColumns(rows), nil
}

func (postgresDialect) selectRows(cfg Config, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c, `"`)
	}
	return fmt.Sprintf(`SELECT ctid::text, %s FROM %s.%s LIMIT $1`,
		strings.Join(quoted, ", "), quoteIdent(cfg.Schema, `"`), quoteIdent(table, `"`))
}

func (postgresDialect) hasRowID() bool { return true }

func (postgresDialect) tableLabel(cfg Config, table string) string {
	return cfg.Schema + "." + table
}
