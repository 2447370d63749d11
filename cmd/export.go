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
	"github.com/spf13/cobra"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/review"
)

var exportOutFile string

var exportDictionaryCmd = &cobra.Command{
	Use:   "export-dictionary",
	Short: "Export the approved dictionary entries as CSV",
	RunE:  runExportDictionary,
}

func runExportDictionary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store := review.NewStore(cfg.Store.ReviewsPath, cfg.Store.DictionaryPath)

	w, closeW, err := openOutput(exportOutFile)
	if err != nil {
		return err
	}
	defer closeW()

	return store.ExportCSV(w)
}

func init() {
	exportDictionaryCmd.Flags().StringVarP(&exportOutFile, "out", "o", "", "Output file path (defaults to stdout)")
}
