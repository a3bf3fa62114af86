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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/philosophers"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Pause = 0

	cfg.Philosophers.Duration = 300 * time.Millisecond
	cfg.Philosophers.Think = delay.Between(0, 2*time.Millisecond)
	cfg.Philosophers.Eat = delay.Between(0, 2*time.Millisecond)
	cfg.Philosophers.HoldDelay = 0

	cfg.Barber.Arrival = delay.Between(0, 2*time.Millisecond)
	cfg.Barber.Haircut = delay.Between(time.Millisecond, 2*time.Millisecond)

	cfg.Buffer.Produce = delay.Between(0, 2*time.Millisecond)
	cfg.Buffer.Consume = delay.Between(0, 2*time.Millisecond)
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	r := require.New(t)

	cfg := fastConfig()
	cfg.Philosophers.Count = 1
	cfg.Barber.Capacity = -2
	cfg.Buffer.Consumers = 0
	cfg.Buffer.Produce = delay.Between(time.Second, 0)
	cfg.Pause = -time.Second

	_, err := New(cfg, nil)
	r.ErrorIs(err, ErrInvalidConfig)
	r.ErrorContains(err, "philosophers:")
	r.ErrorContains(err, "barber:")
	r.ErrorContains(err, "buffer:")
	r.ErrorContains(err, "pause")

	cfg = fastConfig()
	cfg.Philosophers.Policy = "polite"
	_, err = New(cfg, nil)
	r.ErrorIs(err, ErrInvalidConfig)

	runner, err := New(fastConfig(), nil)
	r.NoError(err)
	_, err = runner.Run(context.Background(), "juggling")
	r.ErrorIs(err, ErrInvalidConfig)
}

func TestParseKind(t *testing.T) {
	r := require.New(t)
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		r.NoError(err)
		r.Equal(k, got)
	}
	_, err := ParseKind("nope")
	r.ErrorIs(err, ErrInvalidConfig)
}

func TestEachScenario(t *testing.T) {
	r := require.New(t)
	runner, err := New(fastConfig(), nil)
	r.NoError(err)
	ctx := context.Background()

	res, err := runner.Philosophers(ctx)
	r.NoError(err)
	r.Equal(KindPhilosophers, res.Scenario)
	r.Equal(Completed, res.State)
	r.Positive(res.Counters.Meals)
	r.Contains(res.Detail, "policy avoidance")

	res, err = runner.Barber(ctx)
	r.NoError(err)
	r.Equal(Completed, res.State)
	r.EqualValues(10, res.Counters.ClientsServed+res.Counters.ClientsRejected)

	res, err = runner.ProducerConsumer(ctx)
	r.NoError(err)
	r.Equal(Completed, res.State)
	r.EqualValues(15, res.Counters.ItemsProduced)
	r.EqualValues(15, res.Counters.ItemsConsumed)
	r.Contains(res.Detail, "channel buffer of 5")
}

func TestRunAll(t *testing.T) {
	r := require.New(t)
	runner, err := New(fastConfig(), nil)
	r.NoError(err)

	results, err := runner.Run(context.Background(), KindAll)
	r.NoError(err)
	r.Len(results, 4)
	r.Equal(KindPhilosophers, results[0].Scenario)
	r.Equal(KindBarber, results[1].Scenario)
	for i, st := range buffer.Strategies {
		res := results[2+i]
		r.Equal(KindProducerConsumer, res.Scenario)
		r.Contains(res.Detail, string(st))
		r.EqualValues(res.Counters.ItemsProduced, res.Counters.ItemsConsumed)
	}
	for _, res := range results {
		r.Equal(Completed, res.State, res.Detail)
	}
}

func TestNaiveReportsDeadlock(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig()
	cfg.Philosophers.Policy = philosophers.PolicyNaive
	cfg.Philosophers.Duration = 10 * time.Second
	cfg.Philosophers.HoldDelay = 50 * time.Millisecond
	cfg.Philosophers.DetectWindow = 200 * time.Millisecond
	cfg.Philosophers.Think = delay.Range{}

	runner, err := New(cfg, nil)
	r.NoError(err)

	// The schedule may let a naive table slip past a deadlock.
	for range 3 {
		res, err := runner.Philosophers(context.Background())
		r.NoError(err)
		if res.State == Deadlocked {
			r.Contains(res.Detail, "deadlock detected")
			return
		}
	}
	r.Fail("naive policy never deadlocked")
}

func TestCanceled(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig()
	cfg.Buffer.Consume = delay.Between(time.Hour, time.Hour)
	cfg.Timeout = 50 * time.Millisecond

	runner, err := New(cfg, nil)
	r.NoError(err)
	res, err := runner.ProducerConsumer(context.Background())
	r.NoError(err)
	r.Equal(Canceled, res.State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := runner.Run(ctx, KindAll)
	r.NoError(err)
	r.Len(results, 1)
	r.Equal(Canceled, results[0].State)
}

func TestGracefulStopSkipsRemaining(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig()
	cfg.Philosophers.Duration = time.Hour
	cfg.Philosophers.DetectWindow = 0

	runner, err := New(cfg, nil)
	r.NoError(err)

	outer := stopper.WithContext(context.Background())
	var results []*Result
	outer.Go(func(s *stopper.Context) error {
		var err error
		results, err = runner.Run(s, KindAll)
		return err
	})
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	outer.Stop(10 * time.Second)
	r.NoError(outer.Wait())
	r.Less(time.Since(start), 5*time.Second)

	r.Len(results, 1)
	r.Equal(KindPhilosophers, results[0].Scenario)
	r.Equal(Canceled, results[0].State)
}

func TestStateOf(t *testing.T) {
	r := require.New(t)
	boom := errors.New("boom")
	r.Equal(Failed, stateOf(boom, true, true))
	r.Equal(Deadlocked, stateOf(nil, true, true))
	r.Equal(Canceled, stateOf(nil, false, true))
	r.Equal(Completed, stateOf(nil, false, false))
	r.Equal("deadlocked", Deadlocked.String())
	r.Equal("state(9)", State(9).String())
}
