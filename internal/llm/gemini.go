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
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiProvider generates descriptions through the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini provider: API key is missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}
	return &GeminiProvider{client: client, model: model, logger: logger.Named("gemini")}, nil
}

// Close cleans up the underlying Gemini client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks whether the configured key is functional by listing
// one model.
func (p *GeminiProvider) IsAPIKeyValid(ctx context.Context) error {
	it := p.client.ListModels(ctx)
	if _, err := it.Next(); err != nil {
		return classifyKeyError(err)
	}
	return nil
}

// classifyKeyError distinguishes a rejected key from other API failures.
func classifyKeyError(err error) error {
	if st, ok := status.FromError(err); ok {
		if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
			return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
		}
	}
	return fmt.Errorf("verify Gemini API key: %w", err)
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) GenerateDescriptions(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	prompt := fmt.Sprintf(`
	You are a banking data dictionary expert. Generate business descriptions for the table and columns below.

	********** Table Metadata **********
	%s
	********** End Table Metadata **********

	**Instructions:**
	1. Produce a JSON object with keys table_description and columns.
	2. Each column entry must include column_name, column_description and business_meaning (concise, business-facing, max 50 words each).
	3. Keep column order and names exactly as provided.
	4. Output ONLY the JSON object within <result></result> tags, no markdown.

	Begin analysis and provide the JSON:
	`, string(payload))

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(2048)
	model.SetTopP(0.9)
	model.SetTopK(40)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	text, err := firstTextPart(resp)
	if err != nil {
		return nil, err
	}
	body, found := extractContentBetween(text, "<result>", "</result>")
	if !found {
		return nil, fmt.Errorf("%w: result tags not found", errMalformed)
	}
	return parseDescriptionJSON(body)
}

// firstTextPart extracts the first text part from a Gemini response.
func firstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("%w: empty response, finish reason %s", errMalformed, finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("%w: unexpected response part type %T", errMalformed, part)
	}
	return string(text), nil
}

// extractContentBetween extracts content between start and end tags.
func extractContentBetween(text, startTag, endTag string) (string, bool) {
	startIndex := strings.Index(text, startTag)
	if startIndex == -1 {
		return "", false
	}
	startIndex += len(startTag)
	endIndex := strings.Index(text[startIndex:], endTag)
	if endIndex == -1 {
		return "", false
	}
	return strings.TrimSpace(text[startIndex : startIndex+endIndex]), true
}
