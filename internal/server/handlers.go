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
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/batch"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/review"
	"github.com/fintechops/datadict/internal/validator"
)

// Response headers reporting which generation path served the request.
const (
	headerLLMProvider = "x-llm-provider"
	headerLLMModel    = "x-llm-model"
	headerLLMUsed     = "x-llm-used"
)

const maxUploadBytes = 10 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"strategies": s.chain.Strategies(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var tc generator.TableContext
	if err := json.NewDecoder(r.Body).Decode(&tc); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}

	result, err := s.chain.GenerateTable(r.Context(), tc)
	if err != nil {
		s.writeError(w, statusForGenerateError(err), err)
		return
	}

	setStrategyHeaders(w, result)
	s.writeJSON(w, http.StatusOK, result.Payload)
}

func (s *Server) handleGenerateCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("form field %q is required: %w", "file", err))
		return
	}
	defer file.Close()

	out, err := batch.Process(r.Context(), file, s.chain)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	setStrategyHeaders(w, &generator.Result{Strategy: out.Strategy, Degraded: out.Degraded})
	w.Header().Set("x-row-errors", strconv.Itoa(out.Errors()))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="descriptions.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := out.WriteCSV(w); err != nil {
		s.logger.Error("write csv response", zap.Error(err))
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var payload generator.GeneratedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}
	if strings.TrimSpace(payload.TableName) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("table_name is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, validator.Validate(&payload, s.thresholds))
}

func (s *Server) handleReviewSubmit(w http.ResponseWriter, r *http.Request) {
	var req review.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}

	summary, err := s.store.Save(req)
	if err != nil {
		if errors.Is(err, review.ErrInvalidRequest) {
			s.writeError(w, http.StatusBadRequest, err)
		} else {
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Reviews()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []review.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Dictionary()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []review.DictionaryEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDictionaryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dictionary.csv"`)
	if err := s.store.ExportCSV(w); err != nil {
		s.logger.Error("export dictionary csv", zap.Error(err))
	}
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.samples.List())
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	tc, err := s.samples.Get(r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tc)
}

// setStrategyHeaders reports the serving strategy. LLM strategies are named
// provider:model; the rule engine has no provider part.
func setStrategyHeaders(w http.ResponseWriter, result *generator.Result) {
	provider, model, external := "rules", result.Strategy, false
	if p, m, ok := strings.Cut(result.Strategy, ":"); ok {
		provider, model, external = p, m, true
	}
	w.Header().Set(headerLLMProvider, provider)
	w.Header().Set(headerLLMModel, model)
	w.Header().Set(headerLLMUsed, strconv.FormatBool(external))
}

func statusForGenerateError(err error) int {
	var invalid *generator.ErrInvalidInput
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
