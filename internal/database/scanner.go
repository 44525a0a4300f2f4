// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
	"pan-scan/internal/resilience"
	"pan-scan/internal/router"
)

// Scanner holds one open database and hands out a source per table.
type Scanner struct {
	cfg      Config
	db       *sqlx.DB
	dialect  dialect
	observer *observability.StandardObserver
	retry    *resilience.RetryManager
}

// Open validates cfg and connects. Invalid parameters and drivers missing
// from the binary are configuration errors; connection failures are not.
func Open(ctx context.Context, cfg Config, observer *observability.StandardObserver, maxConns int) (*Scanner, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, ok := lookupDialect(cfg.Kind)
	if !ok {
		return nil, resilience.NewConfigError("%s support is not compiled into this binary", cfg.Kind)
	}
	dsn, err := d.dsn(cfg)
	if err != nil {
		return nil, resilience.NewConfigError("%s connection parameters: %v", cfg.Kind, err)
	}

	retry := resilience.NewRetryManager()
	db, err := resilience.RetryWithResult(ctx, retry.GetConfig(resilience.PolicyDatabase), func(ctx context.Context) (*sqlx.DB, error) {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return sqlx.ConnectContext(connectCtx, cfg.Kind, dsn)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Label(), err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	return &Scanner{cfg: cfg, db: db, dialect: d, observer: observer, retry: retry}, nil
}

// Label names the database in reports
func (s *Scanner) Label() string {
	return s.cfg.Label()
}

// Close closes the connection pool. Call it after every table source has
// finished.
func (s *Scanner) Close() error {
	return s.db.Close()
}

// Sources enumerates the tables to scan, one source per table.
func (s *Scanner) Sources(ctx context.Context) ([]router.Source, error) {
	tables, err := resilience.RetryWithResult(ctx, s.retry.GetConfig(resilience.PolicyDatabase), func(ctx context.Context) ([]tableColumns, error) {
		return s.dialect.tables(ctx, s.db, s.cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate tables of %s: %w", s.Label(), err)
	}

	s.logger().Debug("enumerated tables", zap.String("database", s.Label()), zap.Int("tables", len(tables)))

	sources := make([]router.Source, 0, len(tables))
	for _, t := range tables {
		sources = append(sources, &TableSource{scanner: s, table: t})
	}
	return sources, nil
}

func (s *Scanner) logger() *zap.Logger {
	if s.observer != nil {
		return s.observer.Logger()
	}
	return observability.L()
}

// TableSource scans the text columns of one table, up to the row limit.
type TableSource struct {
	scanner *Scanner
	table   tableColumns
}

// Name returns <database label>/<table>
func (t *TableSource) Name() string {
	return t.scanner.Label() + "/" + t.label()
}

// Capability is the database kind
func (t *TableSource) Capability() string {
	return t.scanner.cfg.Kind
}

func (t *TableSource) label() string {
	return t.scanner.dialect.tableLabel(t.scanner.cfg, t.table.Name)
}

// Scan reads the table. A transient failure restarts the table from the
// first row; partial results are never returned.
func (t *TableSource) Scan(ctx context.Context, engine *detector.Engine) ([]detector.Finding, error) {
	finishTiming := func(bool, map[string]interface{}) {}
	if t.scanner.observer != nil {
		finishTiming = t.scanner.observer.StartTiming("database", "scan_table", t.Name())
	}

	policy := t.scanner.retry.GetConfig(resilience.PolicyDatabase)
	rows := 0
	findings, err := resilience.RetryWithResult(ctx, policy, func(ctx context.Context) ([]detector.Finding, error) {
		var f []detector.Finding
		var err error
		f, rows, err = t.scanOnce(ctx, engine)
		return f, err
	})
	finishTiming(err == nil, map[string]interface{}{"rows": rows, "finding_count": len(findings)})
	if err != nil {
		return nil, fmt.Errorf("scan table %s: %w", t.label(), err)
	}
	return findings, nil
}

func (t *TableSource) scanOnce(ctx context.Context, engine *detector.Engine) ([]detector.Finding, int, error) {
	s := t.scanner
	query := s.dialect.selectRows(s.cfg, t.table.Name, t.table.Columns)

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout(s.cfg))
	defer cancel()

	rows, err := s.db.QueryxContext(queryCtx, query, s.cfg.RowLimit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	offset := 0
	if s.dialect.hasRowID() {
		offset = 1
	}

	var findings []detector.Finding
	rowNum := 0
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, rowNum, err
		}
		rowNum++

		var rowID any = rowNum
		if offset == 1 {
			rowID = rowIDValue(values[0])
		}

		for i, column := range t.table.Columns {
			if offset+i >= len(values) {
				break
			}
			text, ok := cellString(values[offset+i])
			if !ok {
				continue
			}
			loc := detector.Location{
				detector.LocSource: s.Label(),
				detector.LocTable:  t.label(),
				detector.LocColumn: column,
				detector.LocRowID:  rowID,
			}
			findings = append(findings, engine.ScanAt(text, loc, detector.LocCellContent)...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, rowNum, err
	}
	return findings, rowNum, nil
}

// queryTimeout allows a table scan more time than a connection attempt.
func queryTimeout(cfg Config) time.Duration {
	return 10 * cfg.Timeout
}

// cellString converts a scanned value to text. NULLs are skipped.
func cellString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case []byte:
		return string(val), len(val) > 0
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case time.Time:
		return "", false
	default:
		return fmt.Sprint(val), true
	}
}

func rowIDValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case nil:
		return nil
	default:
		return val
	}
}
