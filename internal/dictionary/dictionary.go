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

// Package dictionary holds the banking term dictionary: abbreviation to
// canonical business term mappings and keyword patterns per PII category.
// A Dictionary is loaded once at process start and is read-only afterward,
// so concurrent readers never race.
package dictionary

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed banking_terms.yaml
var defaultTerms []byte

// Category identifies a PII category a keyword pattern belongs to.
type Category string

const (
	CategoryName          Category = "name"
	CategoryAccountNumber Category = "account_number"
	CategorySSNLike       Category = "ssn_like"
	CategoryContact       Category = "contact"
	CategoryDateOfBirth   Category = "date_of_birth"
	CategoryFinancial     Category = "financial_amount"
)

// Pattern is one name-based PII keyword pattern.
type Pattern struct {
	Category Category
	Keyword  string
}

// ErrLoad indicates the term dictionary could not be loaded. It is fatal:
// the process cannot serve generation requests without the dictionary.
type ErrLoad struct {
	Path string
	Err  error
}

func (e *ErrLoad) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dictionary load error: %v", e.Err)
	}
	return fmt.Sprintf("dictionary load error (%s): %v", e.Path, e.Err)
}

func (e *ErrLoad) Unwrap() error { return e.Err }

type termsFile struct {
	Terms       map[string]string   `yaml:"terms"`
	PIIKeywords map[string][]string `yaml:"pii_keywords"`
}

// Dictionary is the immutable term dictionary.
type Dictionary struct {
	terms    map[string]string
	patterns []Pattern
}

// Load builds a Dictionary from the embedded terms file, or from path if it
// is non-empty.
func Load(path string) (*Dictionary, error) {
	data := defaultTerms
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &ErrLoad{Path: path, Err: err}
		}
		data = b
	}

	var f termsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ErrLoad{Path: path, Err: err}
	}
	if len(f.Terms) == 0 {
		return nil, &ErrLoad{Path: path, Err: fmt.Errorf("no terms defined")}
	}

	terms := make(map[string]string, len(f.Terms))
	for abbrev, term := range f.Terms {
		terms[strings.ToLower(abbrev)] = term
	}

	var patterns []Pattern
	for category, keywords := range f.PIIKeywords {
		for _, kw := range keywords {
			patterns = append(patterns, Pattern{
				Category: Category(category),
				Keyword:  strings.ToLower(kw),
			})
		}
	}
	// Deterministic order for detection and tests regardless of map iteration.
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Category != patterns[j].Category {
			return patterns[i].Category < patterns[j].Category
		}
		return patterns[i].Keyword < patterns[j].Keyword
	})

	return &Dictionary{terms: terms, patterns: patterns}, nil
}

// LookupTerm resolves an abbreviation to its canonical business term.
func (d *Dictionary) LookupTerm(abbrev string) (string, bool) {
	term, ok := d.terms[strings.ToLower(abbrev)]
	return term, ok
}

// PIIPatterns returns the name-based PII keyword patterns in a stable order.
func (d *Dictionary) PIIPatterns() []Pattern {
	out := make([]Pattern, len(d.patterns))
	copy(out, d.patterns)
	return out
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// SplitIdentifier breaks a column or table identifier into lowercase tokens,
// splitting on underscores, dashes, dots and camelCase boundaries.
func SplitIdentifier(name string) []string {
	snake := camelBoundary.ReplaceAllString(name, "${1}_${2}")
	snake = strings.ToLower(snake)
	snake = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(snake)
	parts := strings.Split(snake, "_")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// ResolveTokens maps identifier tokens through the dictionary. Unmapped
// tokens pass through verbatim. The second return value is the number of
// tokens that resolved.
func (d *Dictionary) ResolveTokens(name string) ([]string, int) {
	tokens := SplitIdentifier(name)
	resolved := 0
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if term, ok := d.LookupTerm(tok); ok {
			out[i] = term
			resolved++
		} else {
			out[i] = tok
		}
	}
	return out, resolved
}

// Humanize renders an identifier as readable words with abbreviations
// expanded, e.g. "acct_open_dt" -> "account open date".
func (d *Dictionary) Humanize(name string) string {
	words, _ := d.ResolveTokens(name)
	return strings.Join(words, " ")
}
