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

// Package validator scores a generated payload against caller-supplied
// thresholds. Validate is a pure function: no generation, no side effects,
// identical inputs yield identical verdicts.
package validator

import (
	"fmt"
	"strings"

	"github.com/fintechops/datadict/internal/config"
	"github.com/fintechops/datadict/internal/dictionary"
	"github.com/fintechops/datadict/internal/generator"
)

// RiskLevel is the aggregate PII exposure classification of a table.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Failure reason codes carried on column results.
const (
	CodeEmptyTableDesc  = "EMPTY_TABLE_DESC"
	CodeEmptyColumnDesc = "EMPTY_COLUMN_DESC"
	CodeLowConfidence   = "LOW_CONFIDENCE"
)

// ColumnResult is the per-column pass/fail outcome.
type ColumnResult struct {
	ColumnName string `json:"column_name"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason,omitempty"`
}

// Verdict is the validation outcome for one payload.
type Verdict struct {
	TableName     string                      `json:"table_name"`
	OverallRisk   RiskLevel                   `json:"overall_risk"`
	ColumnResults []ColumnResult              `json:"column_results"`
	PIISummary    map[dictionary.Category]int `json:"pii_summary"`
	Passed        bool                        `json:"passed"`
	Summary       string                      `json:"summary"`
}

// Validate scores the payload. passed is true iff no column failed, the
// table description is present and the overall risk is not high.
func Validate(payload *generator.GeneratedPayload, thresholds config.Thresholds) Verdict {
	results := make([]ColumnResult, 0, len(payload.Columns))
	summary := make(map[dictionary.Category]int)

	failed := 0
	totalFindings := 0
	highConfidenceFinding := false
	for _, col := range payload.Columns {
		result := ColumnResult{ColumnName: col.ColumnName, Passed: true}
		switch {
		case strings.TrimSpace(col.Description) == "":
			result.Passed = false
			result.Reason = CodeEmptyColumnDesc
		case col.Confidence < thresholds.MinConfidence:
			result.Passed = false
			result.Reason = fmt.Sprintf("%s: confidence %.2f below threshold %.2f", CodeLowConfidence, col.Confidence, thresholds.MinConfidence)
		}
		if !result.Passed {
			failed++
		}
		results = append(results, result)

		for _, f := range col.PIIFindings {
			summary[f.Category]++
			totalFindings++
			if f.Confidence >= thresholds.HighRiskPIIConfidence {
				highConfidenceFinding = true
			}
		}
	}

	risk := RiskLow
	switch {
	case highConfidenceFinding || totalFindings > thresholds.HighRiskPIICount:
		risk = RiskHigh
	case totalFindings > 0:
		risk = RiskMedium
	}

	emptyTableDesc := strings.TrimSpace(payload.TableDescription) == ""
	passed := failed == 0 && risk != RiskHigh && !emptyTableDesc

	return Verdict{
		TableName:     payload.TableName,
		OverallRisk:   risk,
		ColumnResults: results,
		PIISummary:    summary,
		Passed:        passed,
		Summary:       summarize(payload.TableName, len(results), failed, totalFindings, risk, emptyTableDesc),
	}
}

func summarize(table string, columns, failed, findings int, risk RiskLevel, emptyTableDesc bool) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("table %q: %d/%d columns passed", table, columns-failed, columns))
	if findings > 0 {
		parts = append(parts, fmt.Sprintf("%d PII finding(s)", findings))
	}
	parts = append(parts, fmt.Sprintf("risk %s", risk))
	if emptyTableDesc {
		parts = append(parts, CodeEmptyTableDesc)
	}
	return strings.Join(parts, ", ")
}
