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
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/fintechops/datadict/internal/schema"
)

type sqlServerHandler struct{}

var _ schema.DialectHandler = (*sqlServerHandler)(nil)

func init() {
	schema.RegisterDialectHandler("sqlserver", sqlServerHandler{})
}

func (h sqlServerHandler) CreatePool(cfg schema.Config) (*sql.DB, error) {
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: url.Values{"database": {cfg.DBName}}.Encode(),
	}
	pool, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	return pool, nil
}

func (h sqlServerHandler) ListTables(ctx context.Context, pool *sql.DB) ([]string, error) {
	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'dbo'
		ORDER BY TABLE_NAME`
	return collectStrings(ctx, pool, query)
}

func (h sqlServerHandler) ListColumns(ctx context.Context, pool *sql.DB, table string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = 'dbo' AND TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`
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

func (h sqlServerHandler) keyConstraints(ctx context.Context, pool *sql.DB, table string) (map[string][]string, error) {
	query := `
		SELECT kcu.COLUMN_NAME, tc.CONSTRAINT_TYPE
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		 AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.TABLE_SCHEMA = 'dbo' AND tc.TABLE_NAME = @p1`
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

func (h sqlServerHandler) SampleValues(ctx context.Context, pool *sql.DB, table, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT TOP (%d) CAST(%s AS NVARCHAR(4000))
		FROM %s
		WHERE %s IS NOT NULL`,
		limit, quoteIdentifier(column), quoteIdentifier(table), quoteIdentifier(column))
	return collectStrings(ctx, pool, query)
}

func quoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
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
