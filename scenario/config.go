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

package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/field-eng-coordination/barbershop"
	"github.com/cockroachdb/field-eng-coordination/philosophers"
	"github.com/cockroachdb/field-eng-coordination/prodcons"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates the settings of every scenario.
type Config struct {
	Philosophers philosophers.Config `mapstructure:"philosophers"`
	Barber       barbershop.Config   `mapstructure:"barber"`
	Buffer       prodcons.Config     `mapstructure:"buffer"`

	// Timeout, if positive, bounds the barber and producer-consumer
	// runs. The philosophers are bounded by their own duration.
	Timeout time.Duration `mapstructure:"timeout"`
	// Pause separates consecutive scenarios in a KindAll run.
	Pause time.Duration `mapstructure:"pause"`
}

// DefaultConfig returns the default settings of every scenario.
func DefaultConfig() Config {
	return Config{
		Philosophers: philosophers.DefaultConfig(),
		Barber:       barbershop.DefaultConfig(),
		Buffer:       prodcons.DefaultConfig(),
		Pause:        2 * time.Second,
	}
}

// Validate checks every section. The returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if err := c.Philosophers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("philosophers: %w", err))
	}
	if err := c.Barber.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("barber: %w", err))
	}
	if err := c.Buffer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("buffer: %w", err))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Pause < 0 {
		errs = append(errs, fmt.Errorf("pause must not be negative, got %s", c.Pause))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
