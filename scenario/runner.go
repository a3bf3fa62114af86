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

// Package scenario validates a configuration and runs the coordination
// scenarios, one at a time or all in sequence.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/field-eng-coordination/barbershop"
	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"github.com/cockroachdb/field-eng-coordination/philosophers"
	"github.com/cockroachdb/field-eng-coordination/prodcons"
	"github.com/cockroachdb/field-eng-powertools/stopper"
)

// Kind names a scenario.
type Kind string

const (
	KindPhilosophers     Kind = philosophers.Scenario
	KindBarber           Kind = barbershop.Scenario
	KindProducerConsumer Kind = prodcons.Scenario
	KindAll              Kind = "all"
)

// Kinds lists every runnable kind.
var Kinds = []Kind{KindPhilosophers, KindBarber, KindProducerConsumer, KindAll}

// ParseKind validates a scenario name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scenario %q, expected one of %v", ErrInvalidConfig, s, Kinds)
}

// Runner runs scenarios with a validated configuration.
type Runner struct {
	cfg  Config
	sink narrate.Sink
}

// New validates the configuration before anything is started. The sink
// receives every scenario's narration and may be nil.
func New(cfg Config, sink narrate.Sink) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, sink: sink}, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run runs a single scenario, or every scenario for KindAll. The
// returned error joins the errors of any failed scenarios.
//
// A graceful stop of a stopper.Context in ctx ends the scenario in
// progress early and no further scenario is started.
func (r *Runner) Run(ctx context.Context, kind Kind) ([]*Result, error) {
	var steps []func(context.Context) (*Result, error)
	switch kind {
	case KindPhilosophers:
		steps = append(steps, r.Philosophers)
	case KindBarber:
		steps = append(steps, r.Barber)
	case KindProducerConsumer:
		steps = append(steps, r.ProducerConsumer)
	case KindAll:
		steps = append(steps, r.Philosophers, r.Barber)
		for _, st := range buffer.Strategies {
			steps = append(steps, func(ctx context.Context) (*Result, error) {
				cfg := r.cfg.Buffer
				cfg.Strategy = st
				return r.producerConsumer(ctx, cfg)
			})
		}
	default:
		return nil, fmt.Errorf("%w: unknown scenario %q", ErrInvalidConfig, kind)
	}

	var ret []*Result
	var errs []error
	for i, step := range steps {
		if stopper.IsStopping(ctx) {
			break
		}
		if i > 0 && r.pause(ctx) != nil {
			break
		}
		res, err := step(ctx)
		if res != nil {
			ret = append(ret, res)
		}
		errs = append(errs, err)
	}
	return ret, errors.Join(errs...)
}

// Philosophers runs the dining philosophers with the configured policy.
func (r *Runner) Philosophers(ctx context.Context) (*Result, error) {
	table, err := philosophers.NewTable(r.cfg.Philosophers, r.sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	res, err := table.Run(ctx)
	ret := &Result{
		Scenario: KindPhilosophers,
		State:    stateOf(err, res.Deadlocked, res.Interrupted),
		Counters: Counters{Meals: res.TotalMeals()},
		Elapsed:  res.Elapsed,
		Err:      err,
	}
	switch {
	case res.Deadlocked:
		ret.Detail = fmt.Sprintf("policy %s, deadlock detected after %s",
			res.Policy, res.DetectedAfter.Round(time.Millisecond))
	case len(res.Hungry()) > 0:
		ret.Detail = fmt.Sprintf("policy %s, meals %v, never ate: %v", res.Policy, res.Meals, res.Hungry())
	default:
		ret.Detail = fmt.Sprintf("policy %s, meals %v", res.Policy, res.Meals)
	}
	return ret, err
}

// Barber runs the sleeping barber.
func (r *Runner) Barber(ctx context.Context) (*Result, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	shop, err := barbershop.NewShop(r.cfg.Barber, r.sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	res, err := shop.Run(ctx)
	return &Result{
		Scenario: KindBarber,
		State:    stateOf(err, false, res.Interrupted),
		Counters: Counters{
			ClientsServed:   res.Served,
			ClientsRejected: res.Rejected,
		},
		Elapsed: res.Elapsed,
		Detail: fmt.Sprintf("%d chairs, longest queue %d",
			r.cfg.Barber.Capacity, res.MaxQueue),
		Err: err,
	}, err
}

// ProducerConsumer runs the producers and consumers over the configured
// buffer strategy.
func (r *Runner) ProducerConsumer(ctx context.Context) (*Result, error) {
	return r.producerConsumer(ctx, r.cfg.Buffer)
}

func (r *Runner) producerConsumer(ctx context.Context, cfg prodcons.Config) (*Result, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res, err := prodcons.Run(ctx, cfg, r.sink)
	if res == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Result{
		Scenario: KindProducerConsumer,
		State:    stateOf(err, false, res.Interrupted),
		Counters: Counters{
			ItemsProduced: res.Produced,
			ItemsConsumed: res.Consumed,
		},
		Elapsed: res.Elapsed,
		Detail: fmt.Sprintf("%s buffer of %d, peak occupancy %d",
			cfg.Strategy, cfg.Capacity, res.Peak),
		Err: err,
	}, err
}

func (r *Runner) pause(ctx context.Context) error {
	ctx, cancel := stoppable(ctx)
	defer cancel()
	return delay.Sleep(ctx, r.cfg.Pause)
}

// bound applies the configured timeout to a single scenario.
func (r *Runner) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return stoppable(ctx)
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, r.cfg.Timeout)
	ctx, cancel := stoppable(ctx)
	return ctx, func() {
		cancel()
		cancelTimeout()
	}
}

// stoppable returns a context that is canceled once the stopper
// associated with ctx begins to stop. The stopper's own Done channel
// stays open while the caller is still running.
func stoppable(ctx context.Context) (context.Context, context.CancelFunc) {
	stopping := stopper.From(ctx).Stopping()
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-stopping:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
