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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fintechops/datadict/internal/review"
	"github.com/fintechops/datadict/internal/samples"
	"github.com/fintechops/datadict/internal/server"
)

var (
	serveAddr   string
	samplesPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP server exposing description generation, CSV batch
processing, validation, review submission and dictionary export.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.close()

	loader, err := samples.Load(samplesPath)
	if err != nil {
		return err
	}

	addr := rt.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store := review.NewStore(rt.cfg.Store.ReviewsPath, rt.cfg.Store.DictionaryPath)
	srv := server.New(rt.logger, rt.chain, rt.cfg.Thresholds, store, loader, addr)
	return srv.Start(ctx)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides DATADICT_ADDR, default :8080)")
	serveCmd.Flags().StringVar(&samplesPath, "samples", "", "Path to a demo samples JSON file overriding the embedded set")
}
