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

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const openAISystemPrompt = "You are a banking data dictionary expert. " +
	"Given a table and its columns, return strict JSON with keys table_description and columns. " +
	"Each column must include column_name, column_description and business_meaning. " +
	"Descriptions are concise, business-facing, 1-2 sentences, using banking terminology. " +
	"Output only valid JSON, no markdown."

// OpenAIConfig configures the OpenAI-compatible provider. BaseURL may point
// at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIProvider generates descriptions through an OpenAI-compatible chat
// completion endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create OpenAI provider: API key is missing")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("cannot create OpenAI provider: model is missing")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("openai"),
	}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) GenerateDescriptions(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	p.logger.Debug("LLM request",
		zap.String("model", p.model),
		zap.String("table", req.TableName),
		zap.Int("columns", len(req.Columns)))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", errMalformed)
	}

	return parseDescriptionJSON(resp.Choices[0].Message.Content)
}

// parseDescriptionJSON decodes a provider response, tolerating markdown code
// fences around the JSON body.
func parseDescriptionJSON(content string) (*DescriptionResponse, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var out DescriptionResponse
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(out.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns in response", errMalformed)
	}
	return &out, nil
}
