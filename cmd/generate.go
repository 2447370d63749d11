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
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/batch"
	"github.com/fintechops/datadict/internal/schema"
	_ "github.com/fintechops/datadict/internal/schema/mysql"
	_ "github.com/fintechops/datadict/internal/schema/postgres"
	_ "github.com/fintechops/datadict/internal/schema/sqlserver"
)

var (
	inputFile    string
	outputFile   string
	contextFiles string

	// Database connection flags
	dialect     string
	host        string
	port        int
	username    string
	password    string
	dbName      string
	tableName   string
	sampleLimit int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate descriptions for a CSV of columns or a live database table",
	Long: `Generates column descriptions either from a CSV file with table_name and
column_name headers, or by introspecting one table of a live database.
CSV rows are processed independently; a bad row is flagged in the output
instead of aborting the batch. Sample values read from a database are
masked before any further processing. With --dialect but no --table, the
importable tables are listed instead.`,
	Example: `  datadict generate --input columns.csv --out described.csv
  datadict generate --dialect postgres --host localhost --port 5432 \
      --username user --password pass --database bank --table customer_account
  datadict generate --dialect postgres --host localhost --port 5432 \
      --username user --password pass --database bank`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	extra, err := readContextFiles(contextFiles)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd.Context(), extra)
	if err != nil {
		return err
	}
	defer rt.close()

	switch {
	case inputFile != "":
		return generateFromCSV(cmd, rt)
	case dialect != "":
		return generateFromDatabase(cmd, rt)
	default:
		return fmt.Errorf("either --input or --dialect is required")
	}
}

func generateFromCSV(cmd *cobra.Command, rt *runtime) error {
	in, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer in.Close()

	out, err := batch.Process(cmd.Context(), in, rt.chain)
	if err != nil {
		return err
	}

	w, closeW, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeW()

	if err := out.WriteCSV(w); err != nil {
		return fmt.Errorf("write output CSV: %w", err)
	}

	rt.logger.Info("batch complete",
		zap.Int("rows", len(out.Results)),
		zap.Int("errors", out.Errors()),
		zap.String("strategy", out.Strategy),
		zap.Bool("degraded", out.Degraded))
	return nil
}

func generateFromDatabase(cmd *cobra.Command, rt *runtime) error {
	db, err := schema.New(schema.Config{
		Dialect:     dialect,
		Host:        host,
		Port:        port,
		User:        username,
		Password:    password,
		DBName:      dbName,
		SampleLimit: sampleLimit,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("connect to %s database: %w", dialect, err)
	}

	if tableName == "" {
		return listTables(ctx, db)
	}

	tc, err := db.ImportTable(ctx, tableName)
	if err != nil {
		return err
	}

	result, err := rt.chain.GenerateTable(ctx, tc)
	if err != nil {
		return err
	}

	w, closeW, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeW()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Payload)
}

func listTables(ctx context.Context, db *schema.DB) error {
	tables, err := db.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return fmt.Errorf("no importable tables found in database %q", dbName)
	}

	w, closeW, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeW()

	for _, t := range tables {
		fmt.Fprintln(w, t)
	}
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// readContextFiles combines the named files into one context string passed
// to LLM prompts.
func readContextFiles(filePaths string) (string, error) {
	if filePaths == "" {
		return "", nil
	}

	var combined strings.Builder
	for _, path := range strings.Split(filePaths, ",") {
		path = strings.TrimSpace(path)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read context file %q: %w", path, err)
		}
		combined.WriteString("\n-- Context from file: " + path + " --\n")
		combined.Write(content)
	}
	return combined.String(), nil
}

func init() {
	generateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "CSV file with table_name and column_name headers")
	generateCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output file path (defaults to stdout)")
	generateCmd.Flags().StringVar(&contextFiles, "context", "", "Comma-separated list of context files passed to LLM prompts")

	generateCmd.Flags().StringVar(&dialect, "dialect", "", "Database dialect (postgres, mysql, sqlserver)")
	generateCmd.Flags().StringVar(&host, "host", "", "Database host")
	generateCmd.Flags().IntVar(&port, "port", 0, "Database port")
	generateCmd.Flags().StringVar(&username, "username", "", "Database username")
	generateCmd.Flags().StringVar(&password, "password", "", "Database password")
	generateCmd.Flags().StringVar(&dbName, "database", "", "Database name")
	generateCmd.Flags().StringVar(&tableName, "table", "", "Table to import and describe (omit to list tables)")
	generateCmd.Flags().IntVar(&sampleLimit, "sample-limit", 5, "Distinct sample values fetched per column")
}
