package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/pii"
)

type fakeProvider struct {
	resp  *DescriptionResponse
	err   error
	calls int
	last  DescriptionRequest
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-model" }

func (p *fakeProvider) GenerateDescriptions(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error) {
	p.calls++
	p.last = req
	return p.resp, p.err
}

func newRules(t *testing.T) (*generator.RuleEngine, *dictionary.Dictionary) {
	t.Helper()
	dict, err := dictionary.Load("")
	require.NoError(t, err)
	return generator.NewRuleEngine(dict, pii.NewDetector(dict), config.DefaultGenerator()), dict
}

func newTestStrategy(t *testing.T, provider Provider) *Strategy {
	t.Helper()
	rules, dict := newRules(t)
	s := NewStrategy(provider, rules, dict.Humanize, time.Second, "", zap.NewNop())
	s.retry = RetryOptions{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	return s
}

func tableWithSSN() generator.TableContext {
	return generator.TableContext{
		TableName: "customer_account",
		Columns: []generator.ColumnMetadata{
			{ColumnName: "ssn", SampleValues: []string{"123-45-6789"}},
			{ColumnName: "acct_bal_amt", DataType: "decimal"},
		},
	}
}

func TestStrategyOverlaysProviderText(t *testing.T) {
	provider := &fakeProvider{resp: &DescriptionResponse{
		TableDescription: "Customer account master data.",
		Columns: []ColumnText{
			{ColumnName: "ssn", Description: "Social security number of the holder.", BusinessMeaning: "Identity key."},
			{ColumnName: "acct_bal_amt", Description: "Current account balance.", BusinessMeaning: "Ledger position."},
		},
	}}
	s := newTestStrategy(t, provider)

	payload, err := s.GenerateTable(context.Background(), tableWithSSN())
	require.NoError(t, err)

	assert.Equal(t, "fake-model-generated", payload.ModelVersion)
	assert.Equal(t, "Customer account master data.", payload.TableDescription)

	ssn := payload.Columns[0]
	assert.Equal(t, "Social security number of the holder.", ssn.Description)
	require.NotEmpty(t, ssn.PIIFindings, "PII detection stays local")
	assert.NotEqual(t, "Identity key.", ssn.BusinessMeaning, "PII business meaning is never delegated")
	assert.True(t, ssn.NeedsReview)

	bal := payload.Columns[1]
	assert.Equal(t, "Current account balance.", bal.Description)
	assert.Equal(t, "Ledger position.", bal.BusinessMeaning)

	// The provider saw dictionary-resolved names alongside the raw ones.
	require.Len(t, provider.last.Columns, 2)
	assert.Equal(t, "account balance amount", provider.last.Columns[1].ResolvedName)
}

func TestStrategyProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection reset")}
	s := newTestStrategy(t, provider)

	_, err := s.GenerateTable(context.Background(), tableWithSSN())
	var external *generator.ErrExternalGenerator
	require.ErrorAs(t, err, &external)
	assert.Equal(t, "fake", external.Provider)
	assert.Equal(t, 2, provider.calls, "transport errors are retried")
}

func TestStrategyMalformedResponseNotRetried(t *testing.T) {
	provider := &fakeProvider{resp: &DescriptionResponse{
		TableDescription: "something",
		Columns:          []ColumnText{{ColumnName: "ssn", Description: "ok"}},
	}}
	s := newTestStrategy(t, provider)

	// acct_bal_amt is missing from the response, so the merge fails.
	_, err := s.GenerateTable(context.Background(), tableWithSSN())
	var external *generator.ErrExternalGenerator
	require.ErrorAs(t, err, &external)
	assert.Equal(t, 1, provider.calls)
}

func TestStrategyInvalidInputSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestStrategy(t, provider)

	_, err := s.GenerateTable(context.Background(), generator.TableContext{TableName: ""})
	var invalid *generator.ErrInvalidInput
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, provider.calls)
}

func TestMerge(t *testing.T) {
	base := &generator.GeneratedPayload{
		TableName:        "t",
		TableDescription: "rules text",
		Columns: []generator.GeneratedColumn{
			{ColumnName: "a", Description: "rule a", BusinessMeaning: "meaning a"},
		},
	}

	t.Run("empty table description is malformed", func(t *testing.T) {
		_, err := merge(base, &DescriptionResponse{Columns: []ColumnText{{ColumnName: "a", Description: "x"}}})
		assert.ErrorIs(t, err, errMalformed)
	})

	t.Run("missing column is malformed", func(t *testing.T) {
		_, err := merge(base, &DescriptionResponse{TableDescription: "d", Columns: []ColumnText{{ColumnName: "b", Description: "x"}}})
		assert.ErrorIs(t, err, errMalformed)
	})

	t.Run("blank description is malformed", func(t *testing.T) {
		_, err := merge(base, &DescriptionResponse{TableDescription: "d", Columns: []ColumnText{{ColumnName: "a", Description: "   "}}})
		assert.ErrorIs(t, err, errMalformed)
	})

	t.Run("base payload is not mutated", func(t *testing.T) {
		out, err := merge(base, &DescriptionResponse{TableDescription: "d", Columns: []ColumnText{{ColumnName: "a", Description: "new"}}})
		require.NoError(t, err)
		assert.Equal(t, "new", out.Columns[0].Description)
		assert.Equal(t, "rule a", base.Columns[0].Description)
	})
}

func TestParseDescriptionJSON(t *testing.T) {
	want := &DescriptionResponse{
		TableDescription: "desc",
		Columns:          []ColumnText{{ColumnName: "a", Description: "x", BusinessMeaning: "y"}},
	}

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain json", `{"table_description":"desc","columns":[{"column_name":"a","column_description":"x","business_meaning":"y"}]}`, false},
		{"fenced json", "```json\n{\"table_description\":\"desc\",\"columns\":[{\"column_name\":\"a\",\"column_description\":\"x\",\"business_meaning\":\"y\"}]}\n```", false},
		{"not json", "here is your description", true},
		{"no columns", `{"table_description":"desc","columns":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDescriptionJSON(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, errMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestWithRetryTransientThenSuccess(t *testing.T) {
	attempts := 0
	got, err := withRetry(context.Background(), RetryOptions{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}, zap.NewNop(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := withRetry(ctx, DefaultRetryOptions, zap.NewNop(), func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("never seen")
	})
	require.Error(t, err)
	assert.Zero(t, attempts)
}
