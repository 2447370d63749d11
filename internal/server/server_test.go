package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/generator"
	"github.com/fintechops/datadict/internal/pii"
	"github.com/fintechops/datadict/internal/review"
	"github.com/fintechops/datadict/internal/samples"
	"github.com/fintechops/datadict/internal/validator"
)

func newTestServer(t *testing.T, extraStrategies ...generator.Strategy) *Server {
	t.Helper()
	dict, err := dictionary.Load("")
	require.NoError(t, err)
	engine := generator.NewRuleEngine(dict, pii.NewDetector(dict), config.DefaultGenerator())

	strategies := append(extraStrategies, generator.Strategy(engine))
	chain := generator.NewChain(zap.NewNop(), strategies...)

	dir := t.TempDir()
	store := review.NewStore(filepath.Join(dir, "reviews.jsonl"), filepath.Join(dir, "dictionary.jsonl"))

	loader, err := samples.Load("")
	require.NoError(t, err)

	return New(zap.NewNop(), chain, config.DefaultThresholds(), store, loader, ":0")
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGenerate(t *testing.T) {
	srv := newTestServer(t)
	tc := generator.TableContext{
		TableName: "customer_account",
		Columns: []generator.ColumnMetadata{
			{ColumnName: "acct_open_dt", DataType: "date"},
			{ColumnName: "ssn", SampleValues: []string{"123-45-6789"}},
		},
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/descriptions/generate", tc)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "rules", rec.Header().Get("x-llm-provider"))
	assert.Equal(t, generator.RuleVersion, rec.Header().Get("x-llm-model"))
	assert.Equal(t, "false", rec.Header().Get("x-llm-used"))

	var payload generator.GeneratedPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, generator.RuleVersion, payload.ModelVersion)
	require.Len(t, payload.Columns, 2)
	assert.NotEmpty(t, payload.Columns[1].PIIFindings)
	assert.True(t, payload.NeedsReview)
}

func TestGenerateBadRequests(t *testing.T) {
	srv := newTestServer(t)

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/descriptions/generate", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing table name", func(t *testing.T) {
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/descriptions/generate",
			generator.TableContext{Columns: []generator.ColumnMetadata{{ColumnName: "a"}}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/descriptions/generate", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGenerateCSV(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "columns.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("table_name,column_name\ncustomer_account,acct_bal_amt\ncustomer_account,\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/descriptions/generate-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("x-row-errors"))
	assert.Equal(t, "false", rec.Header().Get("x-llm-used"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"table_name", "column_name", "column_description", "error"}, rows[0])
	assert.Contains(t, rows[1][2], "Account balance amount")
	assert.Contains(t, rows[2][3], "column_name is required")
}

func TestGenerateCSVWithoutFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/descriptions/generate-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	payload := generator.GeneratedPayload{
		TableName:        "customer_account",
		TableDescription: "Account master data.",
		Columns: []generator.GeneratedColumn{
			{ColumnName: "acct_bal_amt", Description: "Balance.", Confidence: 0.95},
			{ColumnName: "notes", Description: "Notes.", Confidence: 0.40},
		},
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/descriptions/validate", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var verdict validator.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.False(t, verdict.Passed)
	require.Len(t, verdict.ColumnResults, 2)
	assert.True(t, verdict.ColumnResults[0].Passed)
	assert.False(t, verdict.ColumnResults[1].Passed)
}

func TestReviewFlow(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	submit := review.Request{
		TableName: "customer_account",
		Reviewer:  "analyst1",
		Decisions: []review.Decision{{ColumnName: "ssn", Action: review.ActionApproved}},
		GeneratedColumns: []generator.GeneratedColumn{
			{ColumnName: "ssn", Description: "Social security number.", Confidence: 0.90},
		},
	}

	rec := doJSON(t, handler, http.MethodPost, "/v1/reviews/submit", submit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary review.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.ApprovedCount)

	rec = doJSON(t, handler, http.MethodGet, "/v1/reviews", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []review.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)

	rec = doJSON(t, handler, http.MethodGet, "/v1/dictionary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []review.DictionaryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "ssn", entries[0].ColumnName)

	rec = doJSON(t, handler, http.MethodGet, "/v1/dictionary/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ssn")
}

func TestReviewSubmitInvalid(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/reviews/submit", review.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDemoSamples(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/v1/demo/samples", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []samples.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.NotEmpty(t, infos)

	rec = doJSON(t, handler, http.MethodGet, "/v1/demo/sample?name="+infos[0].Name, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tc generator.TableContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tc))
	assert.NotEmpty(t, tc.Columns)

	rec = doJSON(t, handler, http.MethodGet, "/v1/demo/sample?name=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/descriptions/generate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type stubStrategy struct {
	payload *generator.GeneratedPayload
}

func (s *stubStrategy) Name() string { return "openai:gpt-4o-mini" }

func (s *stubStrategy) GenerateTable(_ context.Context, _ generator.TableContext) (*generator.GeneratedPayload, error) {
	return s.payload, nil
}

func TestGenerateReportsExternalStrategy(t *testing.T) {
	stub := &stubStrategy{payload: &generator.GeneratedPayload{
		TableName:        "customer_account",
		TableDescription: "Account master data.",
		ModelVersion:     "gpt-4o-mini-generated",
	}}
	srv := newTestServer(t, stub)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/v1/descriptions/generate", generator.TableContext{
		TableName: "customer_account",
		Columns:   []generator.ColumnMetadata{{ColumnName: "acct_id"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "openai", rec.Header().Get("x-llm-provider"))
	assert.Equal(t, "gpt-4o-mini", rec.Header().Get("x-llm-model"))
	assert.Equal(t, "true", rec.Header().Get("x-llm-used"))
}
