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
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/fintechops/datadict/internal/schema"
)

type mysqlHandler struct{}

var _ schema.DialectHandler = (*mysqlHandler)(nil)

func init() {
	schema.RegisterDialectHandler("mysql", mysqlHandler{})
}

func (h mysqlHandler) CreatePool(cfg schema.Config) (*sql.DB, error) {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.DBName

	pool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	return pool, nil
}

func (h mysqlHandler) ListTables(ctx context.Context, pool *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	return collectStrings(ctx, pool, query)
}

func (h mysqlHandler) ListColumns(ctx context.Context, pool *sql.DB, table string) ([]schema.ColumnInfo, error) {
	query := `
		SELECT column_name, data_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
	rows, err := pool.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	for rows.Next() {
		var name, dataType, isNullable, columnKey string
		if err := rows.Scan(&name, &dataType, &isNullable, &columnKey); err != nil {
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
		// column_key folds the key constraints into the column listing.
		switch strings.ToUpper(columnKey) {
		case "PRI":
			col.Constraints = append(col.Constraints, "primary_key")
		case "UNI":
			col.Constraints = append(col.Constraints, "unique")
		case "MUL":
			col.Constraints = append(col.Constraints, "foreign_key")
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (h mysqlHandler) SampleValues(ctx context.Context, pool *sql.DB, table, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT CAST(%s AS CHAR) FROM %s WHERE %s IS NOT NULL LIMIT %d",
		quoteIdentifier(column), quoteIdentifier(table), quoteIdentifier(column), limit)
	return collectStrings(ctx, pool, query)
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
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
