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
package generator

import (
	"github.com/fintechops/datadict/internal/pii"
)

// ColumnMetadata is the caller-supplied description of one column. Sample
// values are treated as already masked; the generator never re-masks them.
type ColumnMetadata struct {
	ColumnName   string   `json:"column_name"`
	DataType     string   `json:"data_type"`
	Nullable     bool     `json:"nullable"`
	Constraints  []string `json:"constraints"`
	SampleValues []string `json:"sample_values"`
}

// TableContext is one generation request: a table and its columns.
type TableContext struct {
	TableName    string           `json:"table_name"`
	TableContext string           `json:"table_context,omitempty"`
	Columns      []ColumnMetadata `json:"columns"`
}

// GeneratedColumn is the generated result for one column. Immutable once
// produced.
type GeneratedColumn struct {
	ColumnName      string        `json:"column_name"`
	Description     string        `json:"description"`
	BusinessMeaning string        `json:"business_meaning"`
	Confidence      float64       `json:"confidence"`
	PIIFindings     []pii.Finding `json:"pii_findings"`
	NeedsReview     bool          `json:"needs_review"`
}

// GeneratedPayload is the generated result for a whole table. Column order
// matches the input order. NeedsReview is the OR of the column flags plus
// the aggregate PII trigger.
type GeneratedPayload struct {
	TableName        string            `json:"table_name"`
	TableDescription string            `json:"table_description"`
	Columns          []GeneratedColumn `json:"columns"`
	ModelVersion     string            `json:"model_version"`
	NeedsReview      bool              `json:"needs_review"`
}
