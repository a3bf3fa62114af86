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

package philosophers

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/retry"
)

// Policy selects the order in which a philosopher requests its forks.
type Policy string

// The supported policies.
const (
	// PolicyNaive takes the left fork and then the right fork. It
	// deadlocks once every philosopher holds its left fork, and is kept
	// as the negative control for the other policies.
	PolicyNaive Policy = "naive"
	// PolicyAvoidance swaps the order for philosopher 0 only, which makes
	// the wait-for graph acyclic.
	PolicyAvoidance Policy = "avoidance"
	// PolicyBackoff takes the left fork, waits a bounded time for the
	// right fork, and otherwise puts the left fork back and retries with
	// exponential backoff.
	PolicyBackoff Policy = "backoff"
	// PolicyArbitrated asks a waiter for both forks at once; requests
	// are admitted in arrival order.
	PolicyArbitrated Policy = "arbitrated"
)

// Policies lists every supported policy.
var Policies = []Policy{PolicyNaive, PolicyAvoidance, PolicyBackoff, PolicyArbitrated}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown policy %q, expected one of %v", s, Policies)
}

// Config controls a dining philosophers run.
type Config struct {
	Count    int           `mapstructure:"count"`    // Philosophers, and forks.
	Policy   Policy        `mapstructure:"policy"`   // Fork acquisition policy.
	Duration time.Duration `mapstructure:"duration"` // Length of the run.
	Think    delay.Range   `mapstructure:"think"`
	Eat      delay.Range   `mapstructure:"eat"`

	// HoldDelay is spent holding the first fork before reaching for the
	// second. It widens the window in which the naive policy deadlocks.
	HoldDelay time.Duration `mapstructure:"hold_delay"`

	// DetectWindow is how long the table may go without a completed meal
	// before a deadlock is declared and the run is stopped early. Zero
	// runs for the whole Duration and inspects the table at the end.
	DetectWindow time.Duration `mapstructure:"detect_window"`

	// Patience bounds the wait for the second fork under PolicyBackoff,
	// and is the base delay between attempts. MaxBackoff caps the delay.
	Patience   time.Duration `mapstructure:"patience"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// Jitter randomizes each backoff delay by up to this percentage.
	// Zero selects a plain doubling.
	Jitter int `mapstructure:"jitter"`
}

// DefaultConfig returns five philosophers using the avoidance policy
// for ten seconds, thinking and eating for half a second to a second
// and a half at a time.
func DefaultConfig() Config {
	return Config{
		Count:        5,
		Policy:       PolicyAvoidance,
		Duration:     10 * time.Second,
		Think:        delay.Between(500*time.Millisecond, 1500*time.Millisecond),
		Eat:          delay.Between(500*time.Millisecond, 1500*time.Millisecond),
		HoldDelay:    100 * time.Millisecond,
		DetectWindow: 3 * time.Second,
		Patience:     200 * time.Millisecond,
		MaxBackoff:   2 * time.Second,
		Jitter:       25,
	}
}

// Validate returns an error describing every problem with the
// configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Count < 2 {
		errs = append(errs, fmt.Errorf("philosopher count must be at least 2, got %d", c.Count))
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		errs = append(errs, err)
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", c.Duration))
	}
	if err := c.Think.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("think: %w", err))
	}
	if err := c.Eat.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("eat: %w", err))
	}
	if c.HoldDelay < 0 {
		errs = append(errs, fmt.Errorf("hold delay must not be negative, got %s", c.HoldDelay))
	}
	if c.DetectWindow < 0 {
		errs = append(errs, fmt.Errorf("detect window must not be negative, got %s", c.DetectWindow))
	}
	if c.Policy == PolicyBackoff {
		if c.Patience <= 0 {
			errs = append(errs, fmt.Errorf("patience must be positive, got %s", c.Patience))
		}
		if c.MaxBackoff < c.Patience {
			errs = append(errs, fmt.Errorf("max backoff %s less than patience %s", c.MaxBackoff, c.Patience))
		} else if c.Patience > 0 {
			if _, err := retry.NewExpBackoff(c.Patience, c.MaxBackoff, 0); err != nil {
				errs = append(errs, fmt.Errorf("max backoff %s must be between 1ms and 1h: %w", c.MaxBackoff, err))
			}
		}
		if c.Jitter < 0 || c.Jitter > 100 {
			errs = append(errs, fmt.Errorf("jitter must be a percentage, got %d", c.Jitter))
		}
	}
	return errors.Join(errs...)
}
