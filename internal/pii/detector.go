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

// Package pii implements the PII detector. Detection is a pure function of
// the column name, its sample values and the read-only term dictionary.
package pii

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fintechops/datadict/internal/dictionary"
)

// Finding is one detected PII signal on a column. A column may carry zero or
// more findings; an empty set means not sensitive.
type Finding struct {
	Category   dictionary.Category `json:"category"`
	MatchedOn  string              `json:"matched_on"`
	Confidence float64             `json:"confidence"`
}

// Name-based matches carry lower confidence than value-shaped matches: a
// column called "email" might be empty, but a value shaped like an SSN is
// an SSN.
const (
	nameMatchConfidence = 0.60
	dobValueConfidence  = 0.85
)

type valuePattern struct {
	category   dictionary.Category
	re         *regexp.Regexp
	confidence float64
}

var valuePatterns = []valuePattern{
	{dictionary.CategorySSNLike, regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`), 0.95},
	{dictionary.CategorySSNLike, regexp.MustCompile(`^\d{9}$`), 0.80},
	{dictionary.CategoryAccountNumber, regexp.MustCompile(`^\d{10,17}$`), 0.85},
	{dictionary.CategoryContact, regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`), 0.90},
	{dictionary.CategoryContact, regexp.MustCompile(`^\+?1?[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`), 0.75},
}

// dateShaped matches ISO and slash-separated dates. A date-shaped value on
// its own is not PII (every _dt column would flag); it only raises the
// confidence of a name-based date_of_birth match.
var dateShaped = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})$`)

// Detector scans column names and sample values against the dictionary's
// PII patterns. Safe for concurrent use.
type Detector struct {
	dict *dictionary.Dictionary
}

func NewDetector(dict *dictionary.Dictionary) *Detector {
	return &Detector{dict: dict}
}

// Detect returns the deduplicated findings for a column, highest confidence
// per category, in stable category order. It never fails; no match means an
// empty result.
func (d *Detector) Detect(columnName string, sampleValues []string) []Finding {
	byCategory := make(map[dictionary.Category]Finding)

	record := func(f Finding) {
		if prev, ok := byCategory[f.Category]; ok && prev.Confidence >= f.Confidence {
			return
		}
		byCategory[f.Category] = f
	}

	normalized := normalizeName(columnName)
	compact := strings.ReplaceAll(normalized, "_", "")
	for _, p := range d.dict.PIIPatterns() {
		keyword := p.Keyword
		if strings.Contains(normalized, keyword) || strings.Contains(compact, strings.ReplaceAll(keyword, "_", "")) {
			record(Finding{Category: p.Category, MatchedOn: keyword, Confidence: nameMatchConfidence})
		}
	}

	for _, v := range sampleValues {
		value := strings.TrimSpace(v)
		if value == "" {
			continue
		}
		for _, p := range valuePatterns {
			if p.re.MatchString(value) {
				record(Finding{Category: p.category, MatchedOn: value, Confidence: p.confidence})
			}
		}
		if dateShaped.MatchString(value) {
			if _, ok := byCategory[dictionary.CategoryDateOfBirth]; ok {
				record(Finding{Category: dictionary.CategoryDateOfBirth, MatchedOn: value, Confidence: dobValueConfidence})
			}
		}
	}

	findings := make([]Finding, 0, len(byCategory))
	for _, f := range byCategory {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Category < findings[j].Category
	})
	return findings
}

func normalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(lower)
}
