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

// Package prodcons runs producers and consumers against one shared
// [buffer.Buffer].
package prodcons

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/invariant"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"golang.org/x/sync/errgroup"
)

// Scenario is the name used in narration.
const Scenario = "producer-consumer"

// Result summarizes a run.
type Result struct {
	Strategy buffer.Strategy
	Produced int64
	Consumed int64

	// Sums of the payloads put and taken. Equal sums alongside equal
	// counts show that nothing was lost or duplicated.
	ProducedSum int64
	ConsumedSum int64

	// Peak is the highest occupancy observed after a put.
	Peak int

	// Interrupted is set when the context ended the run before every
	// item was produced and consumed.
	Interrupted bool
	Elapsed     time.Duration
}

// Balanced reports whether every produced item was consumed.
func (r *Result) Balanced() bool {
	return r.Produced == r.Consumed && r.ProducedSum == r.ConsumedSum
}

type run struct {
	buf  buffer.Buffer
	cfg  Config
	sink narrate.Sink

	produced, producedSum atomic.Int64
	consumed, consumedSum atomic.Int64
	peak                  atomic.Int64
}

// Run starts the producers and consumers and waits for them. Once every
// producer has finished, the buffer is closed; consumers keep taking
// until it is empty and then exit. Canceling the context unwinds every
// worker; that is reported in the Result rather than as an error. The
// returned error is non-nil if the configuration is invalid or a worker
// failed.
func Run(ctx context.Context, cfg Config, sink narrate.Sink) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buf, err := buffer.New(cfg.Strategy, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return RunWith(ctx, cfg, buf, sink)
}

// RunWith is Run against a caller-provided buffer, whose capacity
// overrides the configured one.
func RunWith(ctx context.Context, cfg Config, buf buffer.Buffer, sink narrate.Sink) (*Result, error) {
	start := time.Now()
	r := &run{buf: buf, cfg: cfg, sink: sink}

	// A failing worker cancels everyone.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	guard := func(fn func() error) func() error {
		return func() error {
			err := invariant.Call(fn)
			if err != nil {
				cancel()
			}
			return err
		}
	}

	var producers, consumers errgroup.Group
	for id := range cfg.Consumers {
		consumers.Go(guard(func() error { return r.consume(runCtx, id) }))
	}
	for id := range cfg.Producers {
		producers.Go(guard(func() error { return r.produce(runCtx, id) }))
	}

	prodErr := producers.Wait()
	buf.Close()
	consErr := consumers.Wait()

	res := &Result{
		Strategy:    cfg.Strategy,
		Produced:    r.produced.Load(),
		Consumed:    r.consumed.Load(),
		ProducedSum: r.producedSum.Load(),
		ConsumedSum: r.consumedSum.Load(),
		Peak:        int(r.peak.Load()),
		Interrupted: ctx.Err() != nil,
		Elapsed:     time.Since(start),
	}
	if err := errors.Join(prodErr, consErr); err != nil {
		return res, fmt.Errorf("producer-consumer: %w", err)
	}
	return res, nil
}

// produce makes the configured number of items. It returns nil if the
// context is done first.
func (r *run) produce(ctx context.Context, id int) error {
	defer narrate.Emit(r.sink, narrate.New(Scenario, "producer", id, narrate.KindDone))
	for range r.cfg.ItemsPerProducer {
		if delay.SleepRange(ctx, r.cfg.Produce) != nil {
			return nil
		}
		item := rand.IntN(99) + 1
		if err := r.buf.Put(ctx, item); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.produced.Add(1)
		r.producedSum.Add(int64(item))

		n := r.buf.Len()
		r.notePeak(n)
		narrate.Emit(r.sink, narrate.New(Scenario, "producer", id, narrate.KindProduce).
			WithItem(item).WithOccupancy(n))
	}
	return nil
}

// consume takes items until the buffer is closed and drained. It
// returns nil if the context is done first.
func (r *run) consume(ctx context.Context, id int) error {
	defer narrate.Emit(r.sink, narrate.New(Scenario, "consumer", id, narrate.KindDone))
	for {
		item, err := r.buf.Take(ctx)
		switch {
		case err == nil:
		case errors.Is(err, buffer.ErrDrained), ctx.Err() != nil:
			return nil
		default:
			return err
		}
		r.consumed.Add(1)
		r.consumedSum.Add(int64(item))
		narrate.Emit(r.sink, narrate.New(Scenario, "consumer", id, narrate.KindConsume).
			WithItem(item).WithOccupancy(r.buf.Len()))

		if delay.SleepRange(ctx, r.cfg.Consume) != nil {
			return nil
		}
	}
}

func (r *run) notePeak(n int) {
	for {
		old := r.peak.Load()
		if int64(n) <= old || r.peak.CompareAndSwap(old, int64(n)) {
			return
		}
	}
}
