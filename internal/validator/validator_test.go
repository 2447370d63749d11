package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/pii"
	"github.com/fintechops/datadict/internal/validator"
)

func payload(columns ...generator.GeneratedColumn) *generator.GeneratedPayload {
	return &generator.GeneratedPayload{
		TableName:        "customer_account",
		TableDescription: "Stores customer account attributes.",
		Columns:          columns,
		ModelVersion:     generator.RuleVersion,
	}
}

func TestValidatePasses(t *testing.T) {
	v := validator.Validate(payload(
		generator.GeneratedColumn{ColumnName: "acct_bal_amt", Description: "Account balance.", Confidence: 0.95},
		generator.GeneratedColumn{ColumnName: "acct_open_dt", Description: "Account open date.", Confidence: 0.77},
	), config.DefaultThresholds())

	assert.True(t, v.Passed)
	assert.Equal(t, validator.RiskLow, v.OverallRisk)
	require.Len(t, v.ColumnResults, 2)
	for _, r := range v.ColumnResults {
		assert.True(t, r.Passed)
		assert.Empty(t, r.Reason)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name       string
		payload    *generator.GeneratedPayload
		wantReason string
	}{
		{
			"empty column description",
			payload(generator.GeneratedColumn{ColumnName: "a", Description: "  ", Confidence: 0.95}),
			validator.CodeEmptyColumnDesc,
		},
		{
			"low confidence",
			payload(generator.GeneratedColumn{ColumnName: "a", Description: "ok", Confidence: 0.40}),
			validator.CodeLowConfidence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validator.Validate(tt.payload, config.DefaultThresholds())
			assert.False(t, v.Passed)
			require.Len(t, v.ColumnResults, 1)
			assert.False(t, v.ColumnResults[0].Passed)
			assert.Contains(t, v.ColumnResults[0].Reason, tt.wantReason)
		})
	}
}

func TestValidateEmptyTableDescription(t *testing.T) {
	p := payload(generator.GeneratedColumn{ColumnName: "a", Description: "ok", Confidence: 0.95})
	p.TableDescription = ""

	v := validator.Validate(p, config.DefaultThresholds())
	assert.False(t, v.Passed)
	assert.Contains(t, v.Summary, validator.CodeEmptyTableDesc)
}

func TestValidateHighRiskFromConfidentFinding(t *testing.T) {
	p := payload(generator.GeneratedColumn{
		ColumnName:  "ssn",
		Description: "Social security number.",
		Confidence:  0.90,
		PIIFindings: []pii.Finding{{Category: dictionary.CategorySSNLike, MatchedOn: "123-45-6789", Confidence: 0.95}},
	})

	v := validator.Validate(p, config.DefaultThresholds())
	assert.Equal(t, validator.RiskHigh, v.OverallRisk)
	assert.False(t, v.Passed, "high risk fails even when every column passes")
	assert.True(t, v.ColumnResults[0].Passed)
	assert.Equal(t, 1, v.PIISummary[dictionary.CategorySSNLike])
}

func TestValidateHighRiskFromFindingCount(t *testing.T) {
	finding := func(cat dictionary.Category) generator.GeneratedColumn {
		return generator.GeneratedColumn{
			ColumnName:  string(cat),
			Description: "ok",
			Confidence:  0.90,
			PIIFindings: []pii.Finding{{Category: cat, MatchedOn: "kw", Confidence: 0.60}},
		}
	}

	v := validator.Validate(payload(
		finding(dictionary.CategoryName),
		finding(dictionary.CategoryContact),
		finding(dictionary.CategoryDateOfBirth),
		finding(dictionary.CategoryAccountNumber),
	), config.DefaultThresholds())

	assert.Equal(t, validator.RiskHigh, v.OverallRisk)
	assert.False(t, v.Passed)
}

func TestValidateMediumRisk(t *testing.T) {
	p := payload(generator.GeneratedColumn{
		ColumnName:  "customer_email",
		Description: "Customer email address.",
		Confidence:  0.90,
		PIIFindings: []pii.Finding{{Category: dictionary.CategoryContact, MatchedOn: "email", Confidence: 0.60}},
	})

	v := validator.Validate(p, config.DefaultThresholds())
	assert.Equal(t, validator.RiskMedium, v.OverallRisk)
	assert.True(t, v.Passed, "medium risk alone does not fail validation")
}

func TestValidateBoundaries(t *testing.T) {
	thresholds := config.DefaultThresholds()

	t.Run("confidence exactly at threshold passes", func(t *testing.T) {
		v := validator.Validate(payload(generator.GeneratedColumn{ColumnName: "a", Description: "ok", Confidence: thresholds.MinConfidence}), thresholds)
		assert.True(t, v.ColumnResults[0].Passed)
	})

	t.Run("finding exactly at high-risk confidence is high", func(t *testing.T) {
		v := validator.Validate(payload(generator.GeneratedColumn{
			ColumnName:  "a",
			Description: "ok",
			Confidence:  0.90,
			PIIFindings: []pii.Finding{{Category: dictionary.CategoryName, Confidence: thresholds.HighRiskPIIConfidence}},
		}), thresholds)
		assert.Equal(t, validator.RiskHigh, v.OverallRisk)
	})

	t.Run("finding count exactly at limit is not high", func(t *testing.T) {
		cols := make([]generator.GeneratedColumn, thresholds.HighRiskPIICount)
		for i := range cols {
			cols[i] = generator.GeneratedColumn{
				ColumnName:  "c",
				Description: "ok",
				Confidence:  0.90,
				PIIFindings: []pii.Finding{{Category: dictionary.CategoryName, Confidence: 0.60}},
			}
		}
		v := validator.Validate(payload(cols...), thresholds)
		assert.Equal(t, validator.RiskMedium, v.OverallRisk)
	})
}

func TestValidateIdempotent(t *testing.T) {
	p := payload(generator.GeneratedColumn{ColumnName: "a", Description: "ok", Confidence: 0.80})
	first := validator.Validate(p, config.DefaultThresholds())
	second := validator.Validate(p, config.DefaultThresholds())
	assert.Equal(t, first, second)
}
