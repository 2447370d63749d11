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

// Package llm implements the external generator: LLM providers that share
// the rule engine's output contract. Description text is delegated to the
// remote model; PII detection, confidence and review flags stay local, so
// sensitivity never depends on an external service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/generator"
)

// errMalformed marks provider output that parsed but does not satisfy the
// contract. Not retryable: the model will keep producing the same shape.
var errMalformed = errors.New("malformed provider response")

// DescriptionRequest is the provider-facing view of a generation request.
type DescriptionRequest struct {
	TableName    string         `json:"table_name"`
	TableContext string         `json:"table_context,omitempty"`
	Extra        string         `json:"additional_context,omitempty"`
	Columns      []ColumnPrompt `json:"columns"`
}

// ColumnPrompt carries one column's metadata plus the dictionary-resolved
// reading of its name.
type ColumnPrompt struct {
	ColumnName   string   `json:"column_name"`
	ResolvedName string   `json:"resolved_name"`
	DataType     string   `json:"data_type,omitempty"`
	Nullable     bool     `json:"nullable"`
	Constraints  []string `json:"constraints,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// DescriptionResponse is what a provider must return.
type DescriptionResponse struct {
	TableDescription string       `json:"table_description"`
	Columns          []ColumnText `json:"columns"`
}

// ColumnText is the generated text for one column.
type ColumnText struct {
	ColumnName      string `json:"column_name"`
	Description     string `json:"column_description"`
	BusinessMeaning string `json:"business_meaning"`
}

// Provider is a remote description generator.
type Provider interface {
	Name() string
	Model() string
	GenerateDescriptions(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error)
}

// Strategy adapts a Provider to the generator.Strategy contract. It runs the
// rule engine first for PII findings, confidence and review flags, then
// overlays the provider's description text.
type Strategy struct {
	provider Provider
	rules    *generator.RuleEngine
	resolve  func(name string) string
	timeout  time.Duration
	retry    RetryOptions
	extra    string
	logger   *zap.Logger
}

// NewStrategy builds an external generation strategy. resolve renders an
// identifier as readable words (dictionary.Humanize); extra is optional
// free-text context forwarded to the provider.
func NewStrategy(provider Provider, rules *generator.RuleEngine, resolve func(string) string, timeout time.Duration, extra string, logger *zap.Logger) *Strategy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Strategy{
		provider: provider,
		rules:    rules,
		resolve:  resolve,
		timeout:  timeout,
		retry:    DefaultRetryOptions,
		extra:    extra,
		logger:   logger.Named("llm"),
	}
}

// Name implements generator.Strategy.
func (s *Strategy) Name() string {
	return fmt.Sprintf("%s:%s", s.provider.Name(), s.provider.Model())
}

// GenerateTable implements generator.Strategy. Any provider failure is
// returned as ErrExternalGenerator so the chain can fall back; invalid input
// is detected by the rule engine before the remote call and aborts.
func (s *Strategy) GenerateTable(ctx context.Context, tc generator.TableContext) (*generator.GeneratedPayload, error) {
	base, err := s.rules.GenerateTable(ctx, tc)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := s.buildRequest(tc)
	start := time.Now()
	resp, err := withRetry(callCtx, s.retry, s.logger, func(ctx context.Context) (*DescriptionResponse, error) {
		return s.provider.GenerateDescriptions(ctx, req)
	})
	if err != nil {
		return nil, &generator.ErrExternalGenerator{Provider: s.provider.Name(), Err: err}
	}
	s.logger.Info("external generation completed",
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.provider.Model()),
		zap.String("table", tc.TableName),
		zap.Duration("elapsed", time.Since(start)))

	merged, err := merge(base, resp)
	if err != nil {
		return nil, &generator.ErrExternalGenerator{Provider: s.provider.Name(), Err: err}
	}
	merged.ModelVersion = fmt.Sprintf("%s-generated", s.provider.Model())
	return merged, nil
}

func (s *Strategy) buildRequest(tc generator.TableContext) DescriptionRequest {
	req := DescriptionRequest{
		TableName:    tc.TableName,
		TableContext: tc.TableContext,
		Extra:        s.extra,
		Columns:      make([]ColumnPrompt, len(tc.Columns)),
	}
	for i, col := range tc.Columns {
		req.Columns[i] = ColumnPrompt{
			ColumnName:   col.ColumnName,
			ResolvedName: s.resolve(col.ColumnName),
			DataType:     col.DataType,
			Nullable:     col.Nullable,
			Constraints:  col.Constraints,
			SampleValues: col.SampleValues,
		}
	}
	return req
}

// merge overlays provider text onto the locally generated payload. Every
// input column must come back with a non-empty description, otherwise the
// response is malformed.
func merge(base *generator.GeneratedPayload, resp *DescriptionResponse) (*generator.GeneratedPayload, error) {
	if strings.TrimSpace(resp.TableDescription) == "" {
		return nil, fmt.Errorf("%w: empty table_description", errMalformed)
	}
	byName := make(map[string]ColumnText, len(resp.Columns))
	for _, c := range resp.Columns {
		byName[c.ColumnName] = c
	}

	out := *base
	out.TableDescription = strings.TrimSpace(resp.TableDescription)
	out.Columns = make([]generator.GeneratedColumn, len(base.Columns))
	for i, col := range base.Columns {
		text, ok := byName[col.ColumnName]
		if !ok || strings.TrimSpace(text.Description) == "" {
			return nil, fmt.Errorf("%w: missing description for column %q", errMalformed, col.ColumnName)
		}
		col.Description = strings.TrimSpace(text.Description)
		if meaning := strings.TrimSpace(text.BusinessMeaning); meaning != "" && len(col.PIIFindings) == 0 {
			col.BusinessMeaning = meaning
		}
		out.Columns[i] = col
	}
	return &out, nil
}
