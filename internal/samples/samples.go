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

// Package samples serves named demo TableContexts for the demo UI and
// smoke tests.
package samples

import (
	"encoding/json"
	"fmt"
	"os"

	_ "embed"

	"github.com/fintechops/datadict/internal/generator"
)

//go:embed demo_samples.json
var defaultSamples []byte

// Sample is one named demo table.
type Sample struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Payload     generator.TableContext `json:"payload"`
}

// Info is the listing view of a sample.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Loader holds the parsed demo samples. Immutable after Load.
type Loader struct {
	samples []Sample
}

// Load parses the embedded demo samples, or the file at path if non-empty.
func Load(path string) (*Loader, error) {
	data := defaultSamples
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read samples file: %w", err)
		}
		data = b
	}
	var s []Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse samples: %w", err)
	}
	return &Loader{samples: s}, nil
}

// List returns name and description of every sample.
func (l *Loader) List() []Info {
	infos := make([]Info, len(l.samples))
	for i, s := range l.samples {
		infos[i] = Info{Name: s.Name, Description: s.Description}
	}
	return infos
}

// Get returns the named sample's payload, or the first sample when name is
// empty.
func (l *Loader) Get(name string) (generator.TableContext, error) {
	if len(l.samples) == 0 {
		return generator.TableContext{}, fmt.Errorf("no demo samples configured")
	}
	if name == "" {
		return l.samples[0].Payload, nil
	}
	for _, s := range l.samples {
		if s.Name == name {
			return s.Payload, nil
		}
	}
	return generator.TableContext{}, fmt.Errorf("sample %q not found", name)
}
