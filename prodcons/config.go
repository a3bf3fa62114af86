// Copyright 2025 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package prodcons

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/delay"
)

// Config controls a producer/consumer run.
type Config struct {
	Strategy         buffer.Strategy `mapstructure:"strategy"`
	Capacity         int             `mapstructure:"capacity"`
	Producers        int             `mapstructure:"producers"`
	Consumers        int             `mapstructure:"consumers"`
	ItemsPerProducer int             `mapstructure:"items_per_producer"`
	Produce          delay.Range     `mapstructure:"produce"` // Spent making each item.
	Consume          delay.Range     `mapstructure:"consume"` // Spent on each item taken.
}

// DefaultConfig returns three producers of five items each and two
// consumers sharing a buffer of five slots.
func DefaultConfig() Config {
	return Config{
		Strategy:         buffer.StrategyChannel,
		Capacity:         5,
		Producers:        3,
		Consumers:        2,
		ItemsPerProducer: 5,
		Produce:          delay.Between(300*time.Millisecond, 800*time.Millisecond),
		Consume:          delay.Between(400*time.Millisecond, 1000*time.Millisecond),
	}
}

// Validate returns an error describing every problem with the
// configuration.
func (c Config) Validate() error {
	var errs []error
	if _, err := buffer.ParseStrategy(string(c.Strategy)); err != nil {
		errs = append(errs, err)
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("buffer capacity must be positive, got %d", c.Capacity))
	}
	if c.Producers < 1 {
		errs = append(errs, fmt.Errorf("producer count must be positive, got %d", c.Producers))
	}
	if c.Consumers < 1 {
		errs = append(errs, fmt.Errorf("consumer count must be positive, got %d", c.Consumers))
	}
	if c.ItemsPerProducer < 0 {
		errs = append(errs, fmt.Errorf("items per producer must not be negative, got %d", c.ItemsPerProducer))
	}
	if err := c.Produce.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("produce: %w", err))
	}
	if err := c.Consume.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("consume: %w", err))
	}
	return errors.Join(errs...)
}
