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
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Generator  GeneratorConfig
	Thresholds Thresholds
	LLM        LLMConfig
	Store      StoreConfig
	TermsPath  string // optional override for the embedded banking terms file
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// GeneratorConfig holds the tunable constants of the rule-based generator.
// The confidence formula is floor + coverage*(ceiling-floor); see the
// generator package for how coverage is computed.
type GeneratorConfig struct {
	CoverageFloor     float64 // confidence when no name token resolves
	CoverageCeiling   float64 // confidence when every name token resolves
	PIIPenalty        float64 // subtracted once per PII finding
	MinConfidence     float64 // hard floor after penalties
	ReviewThreshold   float64 // below this, needs_review is set
	SensitivityLimit  float64 // a finding above this forces needs_review
	AggregatePIILimit int     // more total findings than this marks the payload
	MaxSampleValues   int     // sample values rendered into a description
}

// Thresholds is the validator configuration. It is passed into Validate by
// the caller so test suites can probe boundary values directly.
type Thresholds struct {
	MinConfidence         float64
	HighRiskPIIConfidence float64
	HighRiskPIICount      int
}

// LLMConfig selects and configures the external generator providers.
// Empty API keys mean the provider is skipped, never an error.
type LLMConfig struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
}

// StoreConfig holds paths for the append-only review and dictionary logs.
type StoreConfig struct {
	ReviewsPath    string
	DictionaryPath string
}

// DefaultThresholds are the documented validator defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:         0.75,
		HighRiskPIIConfidence: 0.85,
		HighRiskPIICount:      3,
	}
}

// DefaultGenerator are the documented generator defaults.
func DefaultGenerator() GeneratorConfig {
	return GeneratorConfig{
		CoverageFloor:     0.40,
		CoverageCeiling:   0.95,
		PIIPenalty:        0.05,
		MinConfidence:     0.20,
		ReviewThreshold:   0.75,
		SensitivityLimit:  0.80,
		AggregatePIILimit: 3,
		MaxSampleValues:   5,
	}
}

// Load reads configuration from an optional datadict.yaml in the working
// directory and from environment variables. Env names are kept compatible
// with the previous deployment (OPENAI_API_KEY, CONFIDENCE_THRESHOLD, ...).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("datadict")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("reviews_path", "reviews.jsonl")
	v.SetDefault("dictionary_path", "dictionary.jsonl")
	v.SetDefault("terms_path", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("gemini_model", "gemini-1.5-flash-latest")
	v.SetDefault("llm_timeout", "30s")
	v.SetDefault("confidence_threshold", 0.75)
	v.SetDefault("high_risk_pii_confidence", 0.85)
	v.SetDefault("high_risk_pii_count", 3)
	v.SetDefault("max_sample_values", 5)

	v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("openai_base_url", "OPENAI_BASE_URL")
	v.BindEnv("openai_model", "OPENAI_MODEL")
	v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	v.BindEnv("gemini_model", "GEMINI_MODEL")
	v.BindEnv("confidence_threshold", "CONFIDENCE_THRESHOLD")
	v.BindEnv("max_sample_values", "MAX_SAMPLE_VALUES")
	v.BindEnv("server.addr", "DATADICT_ADDR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	gen := DefaultGenerator()
	gen.ReviewThreshold = v.GetFloat64("confidence_threshold")
	gen.MaxSampleValues = v.GetInt("max_sample_values")

	thresholds := DefaultThresholds()
	thresholds.MinConfidence = v.GetFloat64("confidence_threshold")
	thresholds.HighRiskPIIConfidence = v.GetFloat64("high_risk_pii_confidence")
	thresholds.HighRiskPIICount = v.GetInt("high_risk_pii_count")

	return &Config{
		Server:     ServerConfig{Addr: v.GetString("server.addr")},
		Generator:  gen,
		Thresholds: thresholds,
		LLM: LLMConfig{
			OpenAIAPIKey:  v.GetString("openai_api_key"),
			OpenAIBaseURL: v.GetString("openai_base_url"),
			OpenAIModel:   v.GetString("openai_model"),
			GeminiAPIKey:  v.GetString("gemini_api_key"),
			GeminiModel:   v.GetString("gemini_model"),
			Timeout:       v.GetDuration("llm_timeout"),
		},
		Store: StoreConfig{
			ReviewsPath:    v.GetString("reviews_path"),
			DictionaryPath: v.GetString("dictionary_path"),
		},
		TermsPath: v.GetString("terms_path"),
	}, nil
}
