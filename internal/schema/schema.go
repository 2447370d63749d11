/*
 * Copyright 2025 Fintechops Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package schema builds TableContexts from a live database schema. Dialect
// handlers are registered by the driver subpackages and selected by name.
// Sample values are masked before they leave this package, so downstream
// consumers can treat them as already masked.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/fintechops/datadict/internal/generator"
)

// Config holds database connection configuration for a schema import.
type Config struct {
	Dialect     string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SampleLimit int // distinct sample values fetched per column
}

// ColumnInfo holds the introspected shape of one column.
type ColumnInfo struct {
	Name        string
	DataType    string
	Nullable    bool
	Constraints []string
}

// DialectHandler is implemented per database dialect.
type DialectHandler interface {
	CreatePool(cfg Config) (*sql.DB, error)
	ListTables(ctx context.Context, pool *sql.DB) ([]string, error)
	ListColumns(ctx context.Context, pool *sql.DB, table string) ([]ColumnInfo, error)
	SampleValues(ctx context.Context, pool *sql.DB, table, column string, limit int) ([]string, error)
}

var (
	mu              sync.RWMutex
	dialectHandlers = make(map[string]DialectHandler)
)

// RegisterDialectHandler registers a handler under a dialect name. Called
// from driver subpackage init functions.
func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	dialectHandlers[dialect] = handler
}

func getDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		supported := make([]string, 0, len(dialectHandlers))
		for d := range dialectHandlers {
			supported = append(supported, d)
		}
		return nil, fmt.Errorf("unsupported database dialect: %s (supported: %s)", dialect, strings.Join(supported, ", "))
	}
	return handler, nil
}

// DB is a pooled connection plus its dialect handler.
type DB struct {
	pool    *sql.DB
	handler DialectHandler
	cfg     Config
}

// New connects to the configured database.
func New(cfg Config) (*DB, error) {
	handler, err := getDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	pool, err := handler.CreatePool(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Dialect, err)
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 5
	}
	return &DB{pool: pool, handler: handler, cfg: cfg}, nil
}

// NewWithPool wraps an existing pool; used by tests to inject sqlmock.
func NewWithPool(pool *sql.DB, dialect string, cfg Config) (*DB, error) {
	handler, err := getDialectHandler(dialect)
	if err != nil {
		return nil, err
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 5
	}
	return &DB{pool: pool, handler: handler, cfg: cfg}, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if db.pool != nil {
		return db.pool.Close()
	}
	return nil
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.PingContext(ctx)
}

// ListTables lists importable tables.
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	return db.handler.ListTables(ctx, db.pool)
}

// ImportTable introspects one table into a TableContext, with masked sample
// values. Sampling failures on individual columns degrade to no samples
// rather than failing the import.
func (db *DB) ImportTable(ctx context.Context, table string) (generator.TableContext, error) {
	columns, err := db.handler.ListColumns(ctx, db.pool, table)
	if err != nil {
		return generator.TableContext{}, fmt.Errorf("list columns for table %q: %w", table, err)
	}
	if len(columns) == 0 {
		return generator.TableContext{}, fmt.Errorf("table %q not found or has no columns", table)
	}

	tc := generator.TableContext{TableName: table}
	for _, col := range columns {
		values, err := db.handler.SampleValues(ctx, db.pool, table, col.Name, db.cfg.SampleLimit)
		if err != nil {
			values = nil
		}
		masked := make([]string, len(values))
		for i, v := range values {
			masked[i] = MaskValue(v)
		}
		tc.Columns = append(tc.Columns, generator.ColumnMetadata{
			ColumnName:   col.Name,
			DataType:     col.DataType,
			Nullable:     col.Nullable,
			Constraints:  col.Constraints,
			SampleValues: masked,
		})
	}
	return tc, nil
}

// MaskValue replaces letters with 'x' and digits with '9', keeping length
// and punctuation so value shapes stay recognizable to the PII detector.
func MaskValue(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return '9'
		case r >= 'a' && r <= 'z':
			return 'x'
		case r >= 'A' && r <= 'Z':
			return 'X'
		default:
			return r
		}
	}, value)
}
