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

// Package batch implements the CSV flow: rows of at least table_name and
// column_name come in, the same rows plus a column_description go out.
// Rows are processed independently; a bad row is flagged in place and never
// aborts the batch.
package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fintechops/datadict/internal/generator"
)

// Required CSV headers.
const (
	HeaderTable  = "table_name"
	HeaderColumn = "column_name"
)

// Optional CSV headers. List-valued fields use ';' as the separator.
const (
	headerDataType    = "data_type"
	headerNullable    = "nullable"
	headerConstraints = "constraints"
	headerSamples     = "sample_values"
	headerDescription = "column_description"
	headerError       = "error"
)

// Row is one parsed input row.
type Row struct {
	Fields map[string]string
	Column generator.ColumnMetadata
	Table  string
}

// RowResult is the outcome for one input row: a description, or the error
// that row produced.
type RowResult struct {
	Row         Row
	Description string
	Err         error
}

// Output is the processed batch.
type Output struct {
	Header  []string
	Results []RowResult
	// Strategy is the strategy that served the first table group. Later
	// groups may fall back independently; that surfaces through Degraded,
	// not through a per-group strategy.
	Strategy string
	Degraded bool
}

// Errors counts the rows that failed.
func (o *Output) Errors() int {
	n := 0
	for _, r := range o.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Process reads a CSV from r and generates a description per row through
// the chain. Rows sharing a table are generated together so an external
// provider sees the whole table at once. A missing header or empty file is
// a batch-level error; everything row-level is reported per row.
func Process(ctx context.Context, r io.Reader, chain *generator.Chain) (*Output, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("CSV has no header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}
	// Strip a UTF-8 BOM sneaking into the first header.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	if _, ok := index[HeaderTable]; !ok {
		return nil, fmt.Errorf("CSV must have headers: %s, %s", HeaderTable, HeaderColumn)
	}
	if _, ok := index[HeaderColumn]; !ok {
		return nil, fmt.Errorf("CSV must have headers: %s, %s", HeaderTable, HeaderColumn)
	}

	var results []RowResult
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		results = append(results, RowResult{Row: parseRow(header, record)})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	out := &Output{Header: outputHeader(header), Results: results}
	generate(ctx, chain, out)
	return out, nil
}

func parseRow(header []string, record []string) Row {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(record) {
			fields[h] = strings.TrimSpace(record[i])
		}
	}

	col := generator.ColumnMetadata{
		ColumnName:   fields[HeaderColumn],
		DataType:     fields[headerDataType],
		Constraints:  splitList(fields[headerConstraints]),
		SampleValues: splitList(fields[headerSamples]),
	}
	if v, ok := fields[headerNullable]; ok && v != "" {
		if nullable, err := strconv.ParseBool(v); err == nil {
			col.Nullable = nullable
		}
	}
	return Row{Fields: fields, Column: col, Table: fields[HeaderTable]}
}

// generate groups valid rows by table, runs the chain once per table and
// maps the descriptions back onto the rows.
func generate(ctx context.Context, chain *generator.Chain, out *Output) {
	type tableGroup struct {
		tc   generator.TableContext
		rows []int // indexes into out.Results
		seen map[string]bool
	}

	var order []string
	groups := make(map[string]*tableGroup)
	for i := range out.Results {
		row := &out.Results[i]
		if row.Row.Table == "" {
			row.Err = &generator.ErrInvalidInput{Msg: "table_name is required"}
			continue
		}
		if row.Row.Column.ColumnName == "" {
			row.Err = &generator.ErrInvalidInput{Msg: "column_name is required"}
			continue
		}

		g, ok := groups[row.Row.Table]
		if !ok {
			g = &tableGroup{
				tc:   generator.TableContext{TableName: row.Row.Table},
				seen: make(map[string]bool),
			}
			groups[row.Row.Table] = g
			order = append(order, row.Row.Table)
		}
		if !g.seen[row.Row.Column.ColumnName] {
			g.seen[row.Row.Column.ColumnName] = true
			g.tc.Columns = append(g.tc.Columns, row.Row.Column)
		}
		g.rows = append(g.rows, i)
	}

	for _, table := range order {
		g := groups[table]
		result, err := chain.GenerateTable(ctx, g.tc)
		if err != nil {
			for _, i := range g.rows {
				out.Results[i].Err = err
			}
			continue
		}
		if out.Strategy == "" {
			out.Strategy = result.Strategy
		} else if result.Strategy != out.Strategy {
			out.Degraded = true
		}
		out.Degraded = out.Degraded || result.Degraded

		byColumn := make(map[string]string, len(result.Payload.Columns))
		for _, col := range result.Payload.Columns {
			byColumn[col.ColumnName] = col.Description
		}
		for _, i := range g.rows {
			out.Results[i].Description = byColumn[out.Results[i].Row.Column.ColumnName]
		}
	}
}

// outputHeader keeps the input columns (minus any stale description/error
// columns) and appends column_description and error.
func outputHeader(header []string) []string {
	out := make([]string, 0, len(header)+2)
	for _, h := range header {
		if h == headerDescription || h == headerError {
			continue
		}
		out = append(out, h)
	}
	return append(out, headerDescription, headerError)
}

// WriteCSV writes the augmented rows. Failed rows keep their input fields
// and carry the error message in the error column.
func (o *Output) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(o.Header); err != nil {
		return err
	}
	for _, r := range o.Results {
		record := make([]string, len(o.Header))
		for i, h := range o.Header {
			switch h {
			case headerDescription:
				record[i] = r.Description
			case headerError:
				if r.Err != nil {
					record[i] = r.Err.Error()
				}
			default:
				record[i] = r.Row.Fields[h]
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
