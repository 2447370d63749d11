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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/llm"
	"github.com/fintechops/datadict/internal/pii"
)

var (
	verbose   bool
	termsPath string
)

var rootCmd = &cobra.Command{
	Use:   "datadict",
	Short: "A tool to generate and review banking data dictionary descriptions",
	Long: `datadict generates business descriptions for database tables and columns,
flags potential PII, validates the results against confidence thresholds and
collects reviewer decisions into an approved data dictionary.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// runtime bundles the dependencies shared by the subcommands.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	dict    *dictionary.Dictionary
	rules   *generator.RuleEngine
	chain   *generator.Chain
	closers []func()
}

// newRuntime loads configuration and assembles the generation chain. LLM
// providers are optional: a missing API key skips the provider, a provider
// that fails to construct or verify its key is logged and skipped. The rule
// engine always
// terminates the chain. extraContext is forwarded to LLM prompts.
func newRuntime(ctx context.Context, extraContext string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if termsPath != "" {
		cfg.TermsPath = termsPath
	}
	dict, err := dictionary.Load(cfg.TermsPath)
	if err != nil {
		return nil, fmt.Errorf("load banking terms: %w", err)
	}

	detector := pii.NewDetector(dict)
	rules := generator.NewRuleEngine(dict, detector, cfg.Generator)

	rt := &runtime{cfg: cfg, logger: logger, dict: dict, rules: rules}

	var strategies []generator.Strategy
	if cfg.LLM.OpenAIAPIKey != "" {
		provider, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAIAPIKey,
			BaseURL: cfg.LLM.OpenAIBaseURL,
			Model:   cfg.LLM.OpenAIModel,
		}, logger)
		if err != nil {
			logger.Warn("skipping OpenAI provider", zap.Error(err))
		} else {
			strategies = append(strategies, llm.NewStrategy(provider, rules, dict.Humanize, cfg.LLM.Timeout, extraContext, logger))
		}
	}
	if cfg.LLM.GeminiAPIKey != "" {
		provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey: cfg.LLM.GeminiAPIKey,
			Model:  cfg.LLM.GeminiModel,
		}, logger)
		if err == nil {
			err = provider.IsAPIKeyValid(ctx)
			if err != nil {
				_ = provider.Close()
			}
		}
		if err != nil {
			logger.Warn("skipping Gemini provider", zap.Error(err))
		} else {
			rt.closers = append(rt.closers, func() { provider.Close() })
			strategies = append(strategies, llm.NewStrategy(provider, rules, dict.Humanize, cfg.LLM.Timeout, extraContext, logger))
		}
	}
	strategies = append(strategies, rules)

	rt.chain = generator.NewChain(logger, strategies...)
	logger.Info("generation chain assembled", zap.Strings("strategies", rt.chain.Strategies()))
	return rt, nil
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		c()
	}
	_ = rt.logger.Sync()
}

func buildLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&termsPath, "terms", "", "Path to a banking terms YAML file overriding the embedded set")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportDictionaryCmd)
}
