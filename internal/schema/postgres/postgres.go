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
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/fintechops/datadict/internal/schema"
)

type postgresHandler struct{}

var _ schema.DialectHandler = (*postgresHandler)(nil)

func init() {
	schema.RegisterDialectHandler("postgres", postgresHandler{})
}

func (h postgresHandler) CreatePool(cfg schema.Config) (*sql.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	return pool, nil
}

func (h postgresHandler) ListTables(ctx context.Context, pool *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	return collectStrings(ctx, pool, query)
}

func (h postgresHandler) ListColumns(ctx context.Context, pool *sql.DB, table string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`
	rows, err := pool.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col := schema.ColumnInfo{
			Name:     name,
			DataType: dataType,
			Nullable: strings.EqualFold(isNullable, "YES"),
		}
		if !col.Nullable {
			col.Constraints = append(col.Constraints, "not_null")
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}

	constraints, err := h.keyConstraints(ctx, pool, table)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i].Constraints = append(columns[i].Constraints, constraints[columns[i].Name]...)
	}
	return columns, nil
}

// keyConstraints maps column name to primary_key/unique/foreign_key markers.
func (h postgresHandler) keyConstraints(ctx context.Context, pool *sql.DB, table string) (map[string][]string, error) {
	query := `
		SELECT kcu.column_name, tc.constraint_type
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = 'public' AND tc.table_name = $1`
	rows, err := pool.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var column, constraintType string
		if err := rows.Scan(&column, &constraintType); err != nil {
			return nil, fmt.Errorf("scan constraint row: %w", err)
		}
		switch strings.ToUpper(constraintType) {
		case "PRIMARY KEY":
			out[column] = append(out[column], "primary_key")
		case "UNIQUE":
			out[column] = append(out[column], "unique")
		case "FOREIGN KEY":
			out[column] = append(out[column], "foreign_key")
		}
	}
	return out, rows.Err()
}

func (h postgresHandler) SampleValues(ctx context.Context, pool *sql.DB, table, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s::text
		FROM %s
		WHERE %s IS NOT NULL
		LIMIT %d`,
		pq.QuoteIdentifier(column), pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), limit)
	return collectStrings(ctx, pool, query)
}

func collectStrings(ctx context.Context, pool *sql.DB, query string) ([]string, error) {
	rows, err := pool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
