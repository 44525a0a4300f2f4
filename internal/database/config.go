// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"fmt"
	"os"
	"time"

	"pan-scan/internal/resilience"
)

// Database kinds. Each is also the database/sql driver name and the
// capability name.
const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
)

// DefaultRowLimit caps the rows read from each table.
const DefaultRowLimit = 10000

// Config holds connection parameters for one database.
type Config struct {
	Kind     string
	Path     string // sqlite only
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Schema   string // postgres only
	SSLMode  string // postgres only
	RowLimit int
	Timeout  time.Duration
}

// WithDefaults fills unset optional parameters.
func (c Config) WithDefaults() Config {
	if c.RowLimit == 0 {
		c.RowLimit = DefaultRowLimit
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	switch c.Kind {
	case KindPostgres:
		if c.Port == 0 {
			c.Port = 5432
		}
		if c.Schema == "" {
			c.Schema = "public"
		}
		if c.SSLMode == "" {
			c.SSLMode = "prefer"
		}
	case KindMySQL:
		if c.Port == 0 {
			c.Port = 3306
		}
	}
	return c
}

// Validate reports missing or contradictory parameters as configuration
// errors.
func (c Config) Validate() error {
	if c.RowLimit < 0 {
		return resilience.NewConfigError("row limit must be positive, got %d", c.RowLimit)
	}

	switch c.Kind {
	case KindSQLite:
		if c.Path == "" {
			return resilience.NewConfigError("sqlite requires a database file path")
		}
		info, err := os.Stat(c.Path)
		if err != nil {
			return resilience.NewConfigError("sqlite database %s: %v", c.Path, err)
		}
		if info.IsDir() {
			return resilience.NewConfigError("sqlite database %s is a directory", c.Path)
		}
		if c.Host != "" {
			return resilience.NewConfigError("sqlite does not take --host")
		}
	case KindPostgres, KindMySQL:
		var missing []string
		for _, p := range []struct{ flag, value string }{
			{"--host", c.Host},
			{"--database", c.Database},
			{"--user", c.User},
			{"--password", c.Password},
		} {
			if p.value == "" {
				missing = append(missing, p.flag)
			}
		}
		if len(missing) > 0 {
			return resilience.NewConfigError("%s requires %v", c.Kind, missing)
		}
		if c.Port < 0 || c.Port > 65535 {
			return resilience.NewConfigError("invalid port %d", c.Port)
		}
		if c.Kind == KindMySQL && c.Schema != "" && c.Schema != c.Database {
			return resilience.NewConfigError("mysql scans the --database schema; --schema is not supported")
		}
	default:
		return resilience.NewConfigError("unknown database kind %q", c.Kind)
	}
	return nil
}

// Label names the database in reports: sqlite:<path>, postgres:<host>/<db>
// or mysql:<host>/<db>.
func (c Config) Label() string {
	if c.Kind == KindSQLite {
		return fmt.Sprintf("%s:%s", c.Kind, c.Path)
	}
	return fmt.Sprintf("%s:%s/%s", c.Kind, c.Host, c.Database)
}
