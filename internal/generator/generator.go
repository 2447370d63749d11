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

// Package generator produces business descriptions for table and column
// metadata. The rule engine is a deterministic pure function over its inputs
// and the read-only term dictionary; the Chain wires optional LLM-backed
// strategies in front of it.
package generator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/pii"
)

// RuleVersion tags payloads produced by the rule engine.
const RuleVersion = "rules-v1"

// RuleEngine is the deterministic rule-based generator. Safe for concurrent
// use; it holds no mutable state.
type RuleEngine struct {
	dict     *dictionary.Dictionary
	detector *pii.Detector
	cfg      config.GeneratorConfig
}

func NewRuleEngine(dict *dictionary.Dictionary, detector *pii.Detector, cfg config.GeneratorConfig) *RuleEngine {
	return &RuleEngine{dict: dict, detector: detector, cfg: cfg}
}

// Name implements Strategy.
func (e *RuleEngine) Name() string { return RuleVersion }

// GenerateTable generates a payload for every column of the table, in input
// order. A blank table name or column name is an input validation failure;
// anything else degrades confidence rather than failing.
func (e *RuleEngine) GenerateTable(ctx context.Context, tc TableContext) (*GeneratedPayload, error) {
	if strings.TrimSpace(tc.TableName) == "" {
		return nil, &ErrInvalidInput{Msg: "table_name is required"}
	}
	if len(tc.Columns) == 0 {
		return nil, &ErrInvalidInput{Msg: fmt.Sprintf("table %q has no columns", tc.TableName)}
	}

	columns := make([]GeneratedColumn, 0, len(tc.Columns))
	needsReview := false
	totalFindings := 0
	for _, col := range tc.Columns {
		generated, err := e.Generate(tc, col)
		if err != nil {
			return nil, err
		}
		needsReview = needsReview || generated.NeedsReview
		totalFindings += len(generated.PIIFindings)
		columns = append(columns, generated)
	}
	if totalFindings > e.cfg.AggregatePIILimit {
		needsReview = true
	}

	return &GeneratedPayload{
		TableName:        tc.TableName,
		TableDescription: e.tableDescription(tc),
		Columns:          columns,
		ModelVersion:     RuleVersion,
		NeedsReview:      needsReview,
	}, nil
}

// Generate generates the description for a single column.
func (e *RuleEngine) Generate(tc TableContext, col ColumnMetadata) (GeneratedColumn, error) {
	if strings.TrimSpace(col.ColumnName) == "" {
		return GeneratedColumn{}, &ErrInvalidInput{Msg: fmt.Sprintf("table %q: column_name is required", tc.TableName)}
	}

	words, resolved := e.dict.ResolveTokens(col.ColumnName)
	readable := strings.Join(words, " ")
	findings := e.detector.Detect(col.ColumnName, col.SampleValues)

	description := e.describeColumn(tc.TableName, readable, col, findings)
	confidence := e.confidence(len(words), resolved, len(findings))

	needsReview := confidence < e.cfg.ReviewThreshold
	for _, f := range findings {
		if f.Confidence > e.cfg.SensitivityLimit {
			needsReview = true
		}
	}

	return GeneratedColumn{
		ColumnName:      col.ColumnName,
		Description:     description,
		BusinessMeaning: e.businessMeaning(readable, col, findings),
		Confidence:      confidence,
		PIIFindings:     findings,
		NeedsReview:     needsReview,
	}, nil
}

func (e *RuleEngine) describeColumn(tableName, readable string, col ColumnMetadata, findings []pii.Finding) string {
	var b strings.Builder
	b.WriteString(capitalize(readable))
	b.WriteString(" in `")
	b.WriteString(tableName)
	b.WriteString("`")

	var qualifiers []string
	if dtype := strings.TrimSpace(col.DataType); dtype != "" {
		qualifiers = append(qualifiers, dtype)
	}
	if col.Nullable {
		qualifiers = append(qualifiers, "optional")
	} else {
		qualifiers = append(qualifiers, "required")
	}
	for _, c := range col.Constraints {
		if q := constraintQualifier(c); q != "" {
			qualifiers = append(qualifiers, q)
		}
	}
	if len(qualifiers) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(qualifiers, ", "))
		b.WriteString(")")
	}
	b.WriteString(".")

	if samples := renderSamples(col.SampleValues, e.cfg.MaxSampleValues); samples != "" {
		b.WriteString(" Examples: ")
		b.WriteString(samples)
		b.WriteString(".")
	}

	if len(findings) > 0 {
		categories := make([]string, len(findings))
		for i, f := range findings {
			categories[i] = string(f.Category)
		}
		b.WriteString(" Sensitive: potential PII (")
		b.WriteString(strings.Join(categories, ", "))
		b.WriteString("); subject to data protection controls.")
	}

	return b.String()
}

func (e *RuleEngine) tableDescription(tc TableContext) string {
	desc := fmt.Sprintf("Stores %s attributes for banking operations", e.dict.Humanize(tc.TableName))
	if extra := strings.TrimSpace(tc.TableContext); extra != "" {
		return desc + ". Context: " + strings.TrimSuffix(extra, ".") + "."
	}
	return desc + "."
}

// confidence scales token resolution coverage into [floor, ceiling], then
// subtracts a fixed penalty per PII finding with a hard minimum. Always in
// [0, 1].
func (e *RuleEngine) confidence(tokens, resolved, findings int) float64 {
	coverage := 0.0
	if tokens > 0 {
		coverage = float64(resolved) / float64(tokens)
	}
	score := e.cfg.CoverageFloor + coverage*(e.cfg.CoverageCeiling-e.cfg.CoverageFloor)
	score -= float64(findings) * e.cfg.PIIPenalty
	if score < e.cfg.MinConfidence {
		score = e.cfg.MinConfidence
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

func (e *RuleEngine) businessMeaning(readable string, col ColumnMetadata, findings []pii.Finding) string {
	if len(findings) > 0 {
		return "Contains potentially sensitive customer information and should follow data protection controls."
	}

	lowerName := strings.ToLower(col.ColumnName)
	dtype := strings.ToLower(col.DataType)
	switch {
	case strings.Contains(lowerName, "status") || strings.Contains(lowerName, "code") || hasToken(lowerName, "cd"):
		return "Represents a business process status or coded classification."
	case strings.Contains(readable, "amount") || containsAny(dtype, "decimal", "numeric", "money"):
		return "Represents a monetary value used in transaction and balance calculations."
	case strings.Contains(dtype, "date") || strings.Contains(readable, "date"):
		return "Represents a lifecycle event date for reporting and controls."
	default:
		return "Used in analytics and operational reporting."
	}
}

func constraintQualifier(constraint string) string {
	c := strings.ToLower(strings.TrimSpace(constraint))
	switch {
	case c == "":
		return ""
	case c == "primary_key" || c == "primary key":
		return "primary key"
	case c == "unique":
		return "must be unique"
	case c == "not_null" || c == "not null":
		return "must not be null"
	case c == "foreign_key" || c == "foreign key":
		return "references another table"
	case strings.HasPrefix(c, "check"):
		return "subject to a check constraint"
	default:
		return c
	}
}

func renderSamples(values []string, limit int) string {
	if limit <= 0 {
		return ""
	}
	var kept []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			kept = append(kept, s)
		}
		if len(kept) == limit {
			break
		}
	}
	return strings.Join(kept, ", ")
}

func hasToken(name, token string) bool {
	for _, t := range dictionary.SplitIdentifier(name) {
		if t == token {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
