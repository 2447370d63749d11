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

// Package review persists reviewer decisions and the approved dictionary as
// append-only JSONL logs. A mutex serializes concurrent appends; reads scan
// the whole file. The core never calls this package, only transports do.
package review

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintechops/datadict/internal/generator"
)

// ErrInvalidRequest marks a Save failure caused by the submission itself
// rather than by storage.
var ErrInvalidRequest = errors.New("invalid review request")

// Action is a reviewer's decision on one generated column.
type Action string

const (
	ActionApproved Action = "approved"
	ActionEdited   Action = "edited"
	ActionRejected Action = "rejected"
)

// Decision is one per-column review decision.
type Decision struct {
	ColumnName        string `json:"column_name"`
	Action            Action `json:"action"`
	EditedDescription string `json:"edited_description,omitempty"`
}

// Request is a review submission for one table.
type Request struct {
	TableName        string                      `json:"table_name"`
	Reviewer         string                      `json:"reviewer"`
	Decisions        []Decision                  `json:"decisions"`
	GeneratedColumns []generator.GeneratedColumn `json:"generated_columns"`
}

// Record is one persisted review submission.
type Record struct {
	ID        uuid.UUID  `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	TableName string     `json:"table_name"`
	Reviewer  string     `json:"reviewer"`
	Decisions []Decision `json:"decisions"`
}

// DictionaryEntry is one approved or edited description.
type DictionaryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	TableName       string    `json:"table_name"`
	ColumnName      string    `json:"column_name"`
	Description     string    `json:"description"`
	BusinessMeaning string    `json:"business_meaning"`
	PIIFlag         bool      `json:"pii_flag"`
	Confidence      float64   `json:"confidence"`
	Source          Action    `json:"source"`
}

// Summary reports what a Save call persisted.
type Summary struct {
	Status        string `json:"status"`
	ApprovedCount int    `json:"approved_count"`
	EditedCount   int    `json:"edited_count"`
	RejectedCount int    `json:"rejected_count"`
}

// Store is the JSONL-backed review and dictionary store.
type Store struct {
	mu             sync.Mutex
	reviewsPath    string
	dictionaryPath string
	now            func() time.Time
}

func NewStore(reviewsPath, dictionaryPath string) *Store {
	return &Store{
		reviewsPath:    reviewsPath,
		dictionaryPath: dictionaryPath,
		now:            time.Now,
	}
}

// Save appends the review record and derives dictionary entries from the
// approved and edited decisions. Rejected decisions and decisions without a
// matching generated column produce no entry.
func (s *Store) Save(req Request) (*Summary, error) {
	if req.TableName == "" {
		return nil, fmt.Errorf("%w: table_name is required", ErrInvalidRequest)
	}
	if req.Reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer is required", ErrInvalidRequest)
	}
	if len(req.Decisions) == 0 {
		return nil, fmt.Errorf("%w: at least one decision is required", ErrInvalidRequest)
	}
	for _, d := range req.Decisions {
		switch d.Action {
		case ActionApproved, ActionEdited, ActionRejected:
		default:
			return nil, fmt.Errorf("%w: unknown action %q for column %q", ErrInvalidRequest, d.Action, d.ColumnName)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	record := Record{
		ID:        uuid.New(),
		Timestamp: now,
		TableName: req.TableName,
		Reviewer:  req.Reviewer,
		Decisions: req.Decisions,
	}
	if err := appendJSONL(s.reviewsPath, record); err != nil {
		return nil, fmt.Errorf("append review record: %w", err)
	}

	generated := make(map[string]generator.GeneratedColumn, len(req.GeneratedColumns))
	for _, c := range req.GeneratedColumns {
		generated[c.ColumnName] = c
	}

	summary := &Summary{Status: "saved"}
	var entries []DictionaryEntry
	for _, d := range req.Decisions {
		switch d.Action {
		case ActionApproved:
			summary.ApprovedCount++
		case ActionEdited:
			summary.EditedCount++
		case ActionRejected:
			summary.RejectedCount++
			continue
		}

		col, ok := generated[d.ColumnName]
		if !ok {
			continue
		}
		entry := DictionaryEntry{
			Timestamp:       now,
			TableName:       req.TableName,
			ColumnName:      d.ColumnName,
			Description:     col.Description,
			BusinessMeaning: col.BusinessMeaning,
			PIIFlag:         len(col.PIIFindings) > 0,
			Confidence:      col.Confidence,
			Source:          ActionApproved,
		}
		if d.Action == ActionEdited && d.EditedDescription != "" {
			entry.Description = d.EditedDescription
			entry.Source = ActionEdited
		}
		entries = append(entries, entry)
	}

	for _, entry := range entries {
		if err := appendJSONL(s.dictionaryPath, entry); err != nil {
			return nil, fmt.Errorf("append dictionary entry: %w", err)
		}
	}

	return summary, nil
}

// Reviews returns all persisted review records.
func (s *Store) Reviews() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []Record
	err := readJSONL(s.reviewsPath, func(line []byte) error {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, err
}

// Dictionary returns all approved/edited dictionary entries.
func (s *Store) Dictionary() ([]DictionaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []DictionaryEntry
	err := readJSONL(s.dictionaryPath, func(line []byte) error {
		var e DictionaryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// ExportCSV writes the dictionary entries as CSV.
func (s *Store) ExportCSV(w io.Writer) error {
	entries, err := s.Dictionary()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"timestamp", "table_name", "column_name", "description", "business_meaning", "pii_flag", "confidence", "source"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			e.TableName,
			e.ColumnName,
			e.Description,
			e.BusinessMeaning,
			strconv.FormatBool(e.PIIFlag),
			strconv.FormatFloat(e.Confidence, 'f', 2, 64),
			string(e.Source),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func appendJSONL(path string, v any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func readJSONL(path string, each func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := each(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
