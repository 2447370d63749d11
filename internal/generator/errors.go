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

import "fmt"

// ErrInvalidInput represents errors related to invalid input metadata, such
// as a blank column or table name. It is surfaced to the caller immediately
// and never recovered silently.
type ErrInvalidInput struct {
	Msg string
	Err error
}

func (e *ErrInvalidInput) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid input: %s", e.Msg)
	}
	return fmt.Sprintf("invalid input: %s: %v", e.Msg, e.Err)
}

func (e *ErrInvalidInput) Unwrap() error { return e.Err }

// ErrExternalGenerator represents a failed external provider call (timeout,
// transport failure, malformed response). The chain recovers it by falling
// back to the next strategy; it is never surfaced as a request failure.
type ErrExternalGenerator struct {
	Provider string
	Err      error
}

func (e *ErrExternalGenerator) Error() string {
	return fmt.Sprintf("external generator %s: %v", e.Provider, e.Err)
}

func (e *ErrExternalGenerator) Unwrap() error { return e.Err }
