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
	"context"
	"errors"

	"go.uber.org/zap"
)

// Strategy is one way to generate a payload for a table. External providers
// and the rule engine share this contract.
type Strategy interface {
	Name() string
	GenerateTable(ctx context.Context, tc TableContext) (*GeneratedPayload, error)
}

// Chain tries strategies in priority order and returns the first success.
// The last strategy must be the rule engine, which only fails on invalid
// input, so an external provider is never a single point of failure.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Result carries the payload plus which strategy produced it, so transports
// can report the path taken.
type Result struct {
	Payload  *GeneratedPayload
	Strategy string
	// Degraded is true when a higher-priority strategy failed and a later
	// one served the request.
	Degraded bool
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger.Named("generator")}
}

// Strategies returns the names of the configured strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// GenerateTable runs the chain. Invalid input aborts immediately; provider
// failures are logged as degraded-path events and fall through to the next
// strategy.
func (c *Chain) GenerateTable(ctx context.Context, tc TableContext) (*Result, error) {
	degraded := false
	for _, s := range c.strategies {
		payload, err := s.GenerateTable(ctx, tc)
		if err == nil {
			return &Result{Payload: payload, Strategy: s.Name(), Degraded: degraded}, nil
		}

		var invalid *ErrInvalidInput
		if errors.As(err, &invalid) {
			return nil, err
		}

		degraded = true
		c.logger.Warn("generation strategy failed, falling back",
			zap.String("strategy", s.Name()),
			zap.String("table", tc.TableName),
			zap.Error(err))
	}
	return nil, &ErrExternalGenerator{Provider: "chain", Err: errors.New("all strategies failed")}
}
