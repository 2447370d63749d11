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

// Package server exposes the generation, validation, review and demo
// operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/review"
	"github.com/fintechops/datadict/internal/samples"
)

// Server wires the generation chain, validator thresholds, review store and
// demo samples behind the HTTP API.
type Server struct {
	logger     *zap.Logger
	chain      *generator.Chain
	thresholds config.Thresholds
	store      *review.Store
	samples    *samples.Loader
	addr       string
}

func New(logger *zap.Logger, chain *generator.Chain, thresholds config.Thresholds, store *review.Store, loader *samples.Loader, addr string) *Server {
	return &Server{
		logger:     logger.Named("server"),
		chain:      chain,
		thresholds: thresholds,
		store:      store,
		samples:    loader,
		addr:       addr,
	}
}

// Handler builds the route table. Method-qualified patterns give us 405s for
// free on the wrong verb.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/descriptions/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/descriptions/generate-csv", s.handleGenerateCSV)
	mux.HandleFunc("POST /v1/descriptions/validate", s.handleValidate)
	mux.HandleFunc("POST /v1/reviews/submit", s.handleReviewSubmit)
	mux.HandleFunc("GET /v1/reviews", s.handleReviews)
	mux.HandleFunc("GET /v1/dictionary", s.handleDictionary)
	mux.HandleFunc("GET /v1/dictionary/export.csv", s.handleDictionaryExport)
	mux.HandleFunc("GET /v1/demo/samples", s.handleSamples)
	mux.HandleFunc("GET /v1/demo/sample", s.handleSample)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return s.logRequests(c.Handler(mux))
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
