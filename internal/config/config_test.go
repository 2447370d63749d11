package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "reviews.jsonl", cfg.Store.ReviewsPath)
	assert.Equal(t, "dictionary.jsonl", cfg.Store.DictionaryPath)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAIModel)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.LLM.GeminiModel)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0.75, cfg.Thresholds.MinConfidence)
	assert.Equal(t, 0.85, cfg.Thresholds.HighRiskPIIConfidence)
	assert.Equal(t, 3, cfg.Thresholds.HighRiskPIICount)
	assert.Equal(t, 0.75, cfg.Generator.ReviewThreshold)
	assert.Equal(t, 5, cfg.Generator.MaxSampleValues)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("MAX_SAMPLE_VALUES", "3")
	t.Setenv("DATADICT_ADDR", ":9999")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Thresholds.MinConfidence)
	assert.Equal(t, 0.5, cfg.Generator.ReviewThreshold)
	assert.Equal(t, 3, cfg.Generator.MaxSampleValues)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAIAPIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.GeminiModel)
}

func TestDefaultGeneratorConstants(t *testing.T) {
	gen := DefaultGenerator()
	assert.Equal(t, 0.40, gen.CoverageFloor)
	assert.Equal(t, 0.95, gen.CoverageCeiling)
	assert.Equal(t, 0.05, gen.PIIPenalty)
	assert.Equal(t, 0.20, gen.MinConfidence)
	assert.Equal(t, 0.80, gen.SensitivityLimit)
	assert.Equal(t, 3, gen.AggregatePIILimit)
}
