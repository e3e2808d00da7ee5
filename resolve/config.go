// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package resolve

import "errors"

// Config holds tuning parameters for entity resolution.
type Config struct {
	// FuzzyThreshold is the minimum trigram similarity [0,1] for a fuzzy
	// match against an existing entity. Below it a new entity is created.
	// Default: 0.8
	FuzzyThreshold float64

	// TieEpsilon is the score margin within which two fuzzy candidates
	// count as tied and the tie-break order applies.
	// Default: 0.01
	TieEpsilon float64

	// SearchThreshold is the minimum similarity for SearchEntities hits.
	// Deliberately looser than FuzzyThreshold: search is exploratory,
	// resolution is not.
	// Default: 0.3
	SearchThreshold float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithFuzzyThreshold sets the minimum similarity for fuzzy resolution.
func WithFuzzyThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.FuzzyThreshold = threshold
	}
}

// WithTieEpsilon sets the tie margin for fuzzy candidate ranking.
func WithTieEpsilon(epsilon float64) ConfigOption {
	return func(c *Config) {
		c.TieEpsilon = epsilon
	}
}

// WithSearchThreshold sets the minimum similarity for entity search.
func WithSearchThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.SearchThreshold = threshold
	}
}

// DefaultConfig returns a Config with the standard thresholds.
func DefaultConfig() *Config {
	return &Config{
		FuzzyThreshold:  0.8,
		TieEpsilon:      0.01,
		SearchThreshold: 0.3,
	}
}

// NewConfig creates a Config with default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return errors.New("resolve config: FuzzyThreshold must be in (0,1]")
	}
	if c.TieEpsilon < 0 || c.TieEpsilon >= 1 {
		return errors.New("resolve config: TieEpsilon must be in [0,1)")
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return errors.New("resolve config: SearchThreshold must be in [0,1]")
	}
	return nil
}
