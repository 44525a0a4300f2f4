// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !no_mysql

package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

func init() {
	registerDialect(KindMySQL, mysqlDialect{})
}

type mysqlDialect struct{}

func (mysqlDialect) dsn(cfg Config) (string, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.Timeout = cfg.Timeout
	mc.ReadTimeout = cfg.Timeout
	return mc.FormatDSN(), nil
}

// tables lists text-like columns of the connected database. Rows have no
// stable identifier, so the row id is the 1-based position in the result.
func (mysqlDialect) tables(ctx context.Context, db *sqlx.DB, cfg Config) ([]tableColumns, error) {
	var rows []columnRow
	err := db.SelectContext(ctx, &rows, `
		SELECT TABLE_NAME AS table_name, COLUMN_NAME AS column_name
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ?
		  AND DATA_TYPE IN ('varchar', 'text', 'char', 'longtext', 'mediumtext', 'tinytext')
		ORDER BY TABLE_NAME, ORDINAL_POSITION`, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("list text columns in %s: %w", cfg.Database, err)
	}
	return groupColumns(rows), nil
}

func (mysqlDialect) selectRows(_ Config, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c, "`")
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT ?", strings.Join(quoted, ", "), quoteIdent(table, "`"))
}

func (mysqlDialect) hasRowID() bool { return false }

func (mysqlDialect) tableLabel(_ Config, table string) string { return table }
