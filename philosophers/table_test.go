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
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"github.com/cockroachdb/field-eng-coordination/retry"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps latencies short so that tests see many cycles.
func fastConfig(policy Policy, duration time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Policy = policy
	cfg.Duration = duration
	cfg.Think = delay.Between(0, 2*time.Millisecond)
	cfg.Eat = delay.Between(0, 2*time.Millisecond)
	cfg.HoldDelay = 0
	cfg.Patience = 5 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	return cfg
}

// exclusionSink checks, whenever a philosopher starts eating, that it
// holds both of its forks and that neither neighbour is eating.
type exclusionSink struct {
	table *Table

	mu         sync.Mutex
	violations []string
}

func (s *exclusionSink) Emit(e narrate.Event) {
	if e.Kind != narrate.KindEat {
		return
	}
	t := s.table
	p := t.Philosopher(e.ID)
	n := len(t.seats)
	var bad []string
	if h := t.Forks().Holder(p.Left()); h != p.ID() {
		bad = append(bad, fmt.Sprintf("%d eating without left fork (held by %d)", p.ID(), h))
	}
	if h := t.Forks().Holder(p.Right()); h != p.ID() {
		bad = append(bad, fmt.Sprintf("%d eating without right fork (held by %d)", p.ID(), h))
	}
	for _, nb := range []int{(p.ID() + n - 1) % n, (p.ID() + 1) % n} {
		if t.Philosopher(nb).State() == Eating {
			bad = append(bad, fmt.Sprintf("%d and %d eating together", p.ID(), nb))
		}
	}
	if len(bad) > 0 {
		s.mu.Lock()
		s.violations = append(s.violations, bad...)
		s.mu.Unlock()
	}
}

func runWithExclusion(t *testing.T, cfg Config) *Result {
	t.Helper()
	r := require.New(t)

	sink := &exclusionSink{}
	table, err := NewTable(cfg, sink)
	r.NoError(err)
	sink.table = table

	res, err := table.Run(context.Background())
	r.NoError(err)
	r.Empty(sink.violations)
	r.Zero(table.Forks().Held(), "forks left held after the run")
	r.Zero(table.arbiter.Pending())
	for _, p := range table.seats {
		r.Equal(Done, p.State())
	}
	return res
}

func TestLivePolicies(t *testing.T) {
	for _, policy := range []Policy{PolicyAvoidance, PolicyBackoff, PolicyArbitrated} {
		t.Run(string(policy), func(t *testing.T) {
			r := require.New(t)
			res := runWithExclusion(t, fastConfig(policy, time.Second))
			r.False(res.Deadlocked)
			r.False(res.Interrupted)
			r.Empty(res.Hungry(), "meals: %v", res.Meals)
			r.Equal(policy, res.Policy)
			r.GreaterOrEqual(res.Elapsed, time.Second)
		})
	}
}

// The avoidance policy must keep every philosopher fed for a full ten
// seconds.
func TestAvoidanceProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running")
	}
	r := require.New(t)

	cfg := DefaultConfig()
	cfg.Think = delay.Between(10*time.Millisecond, 50*time.Millisecond)
	cfg.Eat = delay.Between(10*time.Millisecond, 50*time.Millisecond)
	cfg.HoldDelay = 5 * time.Millisecond
	cfg.DetectWindow = time.Second

	res := runWithExclusion(t, cfg)
	r.False(res.Deadlocked)
	r.Len(res.Meals, 5)
	for i, m := range res.Meals {
		r.Positivef(m, "philosopher %d starved", i)
	}
}

// The naive policy is the negative control: with every philosopher
// picking up its left fork at once, the table must lock up.
func TestNaiveDeadlocks(t *testing.T) {
	const attempts = 3
	for i := range attempts {
		t.Run(fmt.Sprintf("attempt-%d", i), func(t *testing.T) {
			r := require.New(t)

			cfg := fastConfig(PolicyNaive, 10*time.Second)
			cfg.HoldDelay = 50 * time.Millisecond
			cfg.DetectWindow = 200 * time.Millisecond

			var deadlockEvents int
			var mu sync.Mutex
			table, err := NewTable(cfg, narrate.SinkFunc(func(e narrate.Event) {
				if e.Kind == narrate.KindDeadlock {
					mu.Lock()
					deadlockEvents++
					mu.Unlock()
				}
			}))
			r.NoError(err)

			res, err := table.Run(context.Background())
			r.NoError(err)
			r.True(res.Deadlocked)
			r.Less(res.DetectedAfter, cfg.Duration)
			r.Less(res.Elapsed, cfg.Duration, "detection should end the run early")
			r.Equal(1, deadlockEvents)
			r.Zero(table.Forks().Held(), "stuck philosophers were not unwound")
		})
	}
}

// Without a detector, the naive policy runs for the whole window and
// the deadlock is recognized at the end.
func TestNaiveUnmitigated(t *testing.T) {
	r := require.New(t)

	cfg := fastConfig(PolicyNaive, 500*time.Millisecond)
	cfg.HoldDelay = 50 * time.Millisecond
	cfg.DetectWindow = 0

	table, err := NewTable(cfg, nil)
	r.NoError(err)
	res, err := table.Run(context.Background())
	r.NoError(err)
	r.True(res.Deadlocked)
	r.GreaterOrEqual(res.Elapsed, cfg.Duration)
	r.Zero(res.TotalMeals())
}

// Canceling the caller's context stops the run early, and a deadlock
// that already happened is still reported.
func TestCancelDoesNotHideDeadlock(t *testing.T) {
	r := require.New(t)

	cfg := fastConfig(PolicyNaive, time.Minute)
	cfg.HoldDelay = 50 * time.Millisecond
	cfg.DetectWindow = 0

	table, err := NewTable(cfg, nil)
	r.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	res, err := table.Run(ctx)
	r.NoError(err)
	r.True(res.Interrupted)
	r.True(res.Deadlocked)
	r.Less(res.Elapsed, 10*time.Second)
}

func TestCancelUnwinds(t *testing.T) {
	r := require.New(t)

	cfg := fastConfig(PolicyAvoidance, time.Minute)
	table, err := NewTable(cfg, nil)
	r.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	res, err := table.Run(ctx)
	r.NoError(err)
	r.True(res.Interrupted)
	r.False(res.Deadlocked)
	r.Less(res.Elapsed, 10*time.Second)
	r.Positive(res.TotalMeals())
	r.Zero(table.Forks().Held())
}

func TestBackoffWithoutJitter(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig(PolicyBackoff, 300*time.Millisecond)
	cfg.Jitter = 0

	table, err := NewTable(cfg, nil)
	r.NoError(err)
	b, err := table.backoff()
	r.NoError(err)
	for _, want := range []time.Duration{5, 10, 20, 20} {
		d, stop := b.Next()
		r.False(stop)
		r.Equal(want*time.Millisecond, d)
	}

	res := runWithExclusion(t, cfg)
	r.False(res.Deadlocked)
	r.Positive(res.TotalMeals())
}

// A graceful stop of the caller's stopper ends the run early, and the
// run is reported as interrupted.
func TestGracefulStop(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	outer := stopper.WithContext(ctx)

	table, err := NewTable(fastConfig(PolicyAvoidance, 20*time.Second), nil)
	r.NoError(err)

	var res *Result
	outer.Go(func(s *stopper.Context) error {
		var err error
		res, err = table.Run(s)
		return err
	})
	time.Sleep(50 * time.Millisecond)
	outer.Stop(10 * time.Second)
	r.NoError(outer.Wait())

	r.True(res.Interrupted)
	r.False(res.Deadlocked)
	r.Less(res.Elapsed, 10*time.Second)
	r.Zero(table.Forks().Held())
}

func TestOrder(t *testing.T) {
	r := require.New(t)

	p0 := newPhilosopher(0, 5)
	p4 := newPhilosopher(4, 5)

	first, second := p0.order(PolicyNaive)
	r.Equal([2]int{0, 1}, [2]int{first, second})
	first, second = p0.order(PolicyAvoidance)
	r.Equal([2]int{1, 0}, [2]int{first, second})
	first, second = p4.order(PolicyAvoidance)
	r.Equal([2]int{4, 0}, [2]int{first, second})
}

func TestConfigValidate(t *testing.T) {
	r := require.New(t)

	r.NoError(DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Count = 1
	cfg.Policy = "polite"
	cfg.Duration = 0
	cfg.Think = delay.Between(time.Second, 0)
	err := cfg.Validate()
	r.ErrorContains(err, "at least 2")
	r.ErrorContains(err, `unknown policy "polite"`)
	r.ErrorContains(err, "duration must be positive")
	r.ErrorContains(err, "think: max less than min")

	cfg = DefaultConfig()
	cfg.Policy = PolicyBackoff
	cfg.Patience = 0
	r.ErrorContains(cfg.Validate(), "patience must be positive")

	cfg = DefaultConfig()
	cfg.Policy = PolicyBackoff
	cfg.MaxBackoff = 2 * time.Hour
	cfg.Jitter = 101
	err = cfg.Validate()
	r.ErrorIs(err, retry.ErrInvalidArg)
	r.ErrorContains(err, "between 1ms and 1h")
	r.ErrorContains(err, "jitter must be a percentage")

	_, err = NewTable(Config{}, nil)
	r.Error(err)

	p, err := ParsePolicy("arbitrated")
	r.NoError(err)
	r.Equal(PolicyArbitrated, p)
}
