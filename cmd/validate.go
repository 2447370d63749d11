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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/validator"
)

var payloadFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a generated payload against the configured thresholds",
	Long: `Reads a generated payload JSON file, checks every column description and
confidence against the configured thresholds and reports the aggregate
PII risk. Exits non-zero when validation fails.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if payloadFile == "" {
		return fmt.Errorf("--payload is required")
	}

	data, err := os.ReadFile(payloadFile)
	if err != nil {
		return fmt.Errorf("read payload file: %w", err)
	}
	var payload generator.GeneratedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	verdict := validator.Validate(&payload, cfg.Thresholds)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		return err
	}

	if !verdict.Passed {
		return fmt.Errorf("validation failed: %s", verdict.Summary)
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVarP(&payloadFile, "payload", "p", "", "Generated payload JSON file to validate")
}
