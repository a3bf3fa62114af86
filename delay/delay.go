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

// Package delay produces the simulated latencies used by the
// coordination scenarios.
package delay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Range is an inclusive span of durations. The zero value draws zero.
type Range struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

// Between is shorthand for a Range literal.
func Between(min, max time.Duration) Range { return Range{Min: min, Max: max} }

// Validate returns an error if the range is negative or inverted.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("negative duration in %s", r)
	}
	if r.Max < r.Min {
		return fmt.Errorf("max less than min in %s", r)
	}
	return nil
}

// Draw returns a uniformly distributed duration within the range.
func (r Range) Draw() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

func (r Range) String() string { return fmt.Sprintf("[%s, %s]", r.Min, r.Max) }

// Sleep pauses for d or until the context is done, in which case the
// context's error is returned.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepRange draws from r and sleeps.
func SleepRange(ctx context.Context, r Range) error {
	return Sleep(ctx, r.Draw())
}
