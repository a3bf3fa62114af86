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

// Package philosophers runs the dining philosophers problem over a
// [forks.Set], with a choice of fork acquisition policies.
package philosophers

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/forks"
	"github.com/cockroachdb/field-eng-coordination/invariant"
	"github.com/cockroachdb/field-eng-coordination/lockset"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"github.com/cockroachdb/field-eng-coordination/retry"
	"github.com/cockroachdb/field-eng-powertools/notify"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	gr "github.com/sethvargo/go-retry"
)

// Scenario is the name used in narration.
const Scenario = "philosophers"

const actor = "philosopher"

// Result summarizes a run.
type Result struct {
	Policy Policy
	Meals  []int64 // Completed meals, by philosopher.

	// Deadlocked is set when every philosopher was found holding its
	// first fork while waiting on a neighbour for its second.
	Deadlocked bool
	// DetectedAfter is the time from the start of the run to the
	// detection of the deadlock.
	DetectedAfter time.Duration

	// Interrupted is set when the caller's context ended the run
	// before its configured duration.
	Interrupted bool
	Elapsed     time.Duration
}

// TotalMeals sums the meals of every philosopher.
func (r *Result) TotalMeals() int64 {
	var total int64
	for _, m := range r.Meals {
		total += m
	}
	return total
}

// Hungry returns the philosophers that never ate.
func (r *Result) Hungry() []int {
	var ret []int
	for i, m := range r.Meals {
		if m == 0 {
			ret = append(ret, i)
		}
	}
	return ret
}

// A Table seats the philosophers around a ring of forks. A Table is
// good for a single call to [Table.Run].
type Table struct {
	arbiter *lockset.Arbiter[int]
	cfg     Config
	forks   *forks.Set
	seats   []*Philosopher
	sink    narrate.Sink

	// Total completed meals, used to observe progress.
	progress notify.Var[int64]
}

// NewTable validates the configuration and seats the philosophers. The
// sink may be nil.
func NewTable(cfg Config, sink narrate.Sink) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	set, err := forks.New(cfg.Count)
	if err != nil {
		return nil, err
	}
	t := &Table{
		arbiter: lockset.NewArbiter[int](),
		cfg:     cfg,
		forks:   set,
		seats:   make([]*Philosopher, cfg.Count),
		sink:    sink,
	}
	for i := range t.seats {
		t.seats[i] = newPhilosopher(i, cfg.Count)
	}
	return t, nil
}

// Forks returns the shared resource set.
func (t *Table) Forks() *forks.Set { return t.forks }

// Philosopher returns the philosopher in the given seat.
func (t *Table) Philosopher(id int) *Philosopher { return t.seats[id] }

// Run starts one goroutine per philosopher and lets them dine until the
// configured duration elapses, the context is canceled, or a deadlock is
// detected. A deadlock is a normal outcome, reported in the Result; the
// returned error is non-nil only if a worker failed.
//
// The philosophers are not told to stop until the table has been
// inspected for a deadlock, so canceling the context never hides one.
// A graceful stop of a [stopper.Context] found in ctx ends the run the
// same way.
func (t *Table) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	// The run ends at the configured duration, on cancellation, or when
	// the caller's stopper begins a graceful stop.
	runCtx, cancelRun := untilStopping(ctx, stopper.From(ctx), t.cfg.Duration)
	defer cancelRun()

	// The workers are detached from the caller; they are stopped below,
	// once the outcome has been recorded.
	workers := stopper.WithContext(context.Background())
	defer workers.Stop(0)
	for _, p := range t.seats {
		workers.Go(func(s *stopper.Context) error {
			return invariant.Call(func() error { return t.dine(s, p) })
		})
	}

	res := &Result{Policy: t.cfg.Policy}
	if t.watch(runCtx, workers.Stopping()) {
		res.Deadlocked = true
		res.DetectedAfter = time.Since(start)
		narrate.Emit(t.sink, narrate.New(Scenario, "table", 0, narrate.KindDeadlock))
	}
	res.Interrupted = ctx.Err() != nil || stopper.IsStopping(ctx)

	workers.Stop(0)
	err := workers.Wait()
	if n := t.arbiter.Pending(); err == nil && n != 0 {
		err = fmt.Errorf("%d fork requests left with the waiter", n)
	}

	res.Elapsed = time.Since(start)
	res.Meals = make([]int64, len(t.seats))
	for i, p := range t.seats {
		res.Meals[i] = p.Meals()
	}
	if err != nil {
		return res, fmt.Errorf("philosophers: %w", err)
	}
	return res, nil
}

// untilStopping returns a context that is canceled when parent is done,
// when s begins stopping, or after the timeout if it is positive.
func untilStopping(
	parent context.Context, s *stopper.Context, timeout time.Duration,
) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	go func() {
		select {
		case <-s.Stopping():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// dine is the philosopher's think, wait, eat loop. It returns nil once
// the context is done.
func (t *Table) dine(s *stopper.Context, p *Philosopher) error {
	// Every blocking wait ends as soon as the table stops the workers.
	ctx, cancel := untilStopping(s, s, 0)
	defer cancel()
	defer func() {
		p.setState(Done)
		t.emit(p, narrate.KindDone)
	}()
	for {
		p.setState(Thinking)
		t.emit(p, narrate.KindThink)
		if delay.SleepRange(ctx, t.cfg.Think) != nil {
			return nil
		}

		p.setState(Waiting)
		t.emit(p, narrate.KindWait)
		putDown, err := t.pickUp(ctx, s, p)
		if err != nil {
			if ctx.Err() != nil || s.IsStopping() {
				return nil
			}
			return err
		}

		// Eating implies holding both forks: the state is only set
		// between pickUp and putDown.
		p.setState(Eating)
		t.emit(p, narrate.KindEat)
		err = delay.SleepRange(ctx, t.cfg.Eat)
		p.setState(Thinking)
		if err == nil {
			p.meals.Add(1)
		}
		putDown()
		if err != nil {
			return nil
		}
		t.progress.Set(t.totalMeals())
	}
}

// pickUp acquires both of the philosopher's forks according to the
// policy and returns a function to put them back down.
func (t *Table) pickUp(
	ctx context.Context, s *stopper.Context, p *Philosopher,
) (putDown func(), err error) {
	switch t.cfg.Policy {
	case PolicyNaive, PolicyAvoidance:
		first, second := p.order(t.cfg.Policy)
		return t.takeInOrder(ctx, p, first, second)

	case PolicyBackoff:
		return t.takeWithBackoff(ctx, s, p)

	case PolicyArbitrated:
		return t.takeFromWaiter(ctx, p)

	default:
		return nil, fmt.Errorf("unknown policy %q", t.cfg.Policy)
	}
}

// takeInOrder blocks on each fork in turn, never letting go of the
// first while waiting for the second.
func (t *Table) takeInOrder(ctx context.Context, p *Philosopher, first, second int) (func(), error) {
	if err := t.take(ctx, p, first); err != nil {
		return nil, err
	}
	if err := delay.Sleep(ctx, t.cfg.HoldDelay); err != nil {
		t.put(p, first)
		return nil, err
	}
	if err := t.take(ctx, p, second); err != nil {
		t.put(p, first)
		return nil, err
	}
	return func() {
		t.put(p, second)
		t.put(p, first)
	}, nil
}

// takeWithBackoff gives up the first fork if the second does not free
// up within the configured patience.
func (t *Table) takeWithBackoff(
	ctx context.Context, s *stopper.Context, p *Philosopher,
) (func(), error) {
	first, second := p.order(t.cfg.Policy)
	backoff, err := t.backoff()
	if err != nil {
		return nil, err
	}

	err = retry.Retry(s, backoff, func(*stopper.Context) error {
		if err := t.take(ctx, p, first); err != nil {
			return err
		}
		if err := delay.Sleep(ctx, t.cfg.HoldDelay); err != nil {
			t.put(p, first)
			return err
		}
		waitCtx, cancel := context.WithTimeout(ctx, t.cfg.Patience)
		defer cancel()
		if err := t.take(waitCtx, p, second); err != nil {
			t.put(p, first)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.emit(p, narrate.KindBackoff)
			return fmt.Errorf("fork %d busy: %w", second, retry.ErrRetriable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() {
		t.put(p, second)
		t.put(p, first)
	}, nil
}

// backoff returns the delay strategy between attempts: a plain
// doubling from Patience up to MaxBackoff, randomized by Jitter percent
// when it is set.
func (t *Table) backoff() (retry.Backoff, error) {
	if t.cfg.Jitter == 0 {
		return retry.NewExpBackoff(t.cfg.Patience, t.cfg.MaxBackoff, 0)
	}
	return gr.WithJitterPercent(uint64(t.cfg.Jitter),
		gr.WithCappedDuration(t.cfg.MaxBackoff, gr.NewExponential(t.cfg.Patience))), nil
}

// takeFromWaiter waits for the arbiter to grant both forks together.
// Once granted, the forks are necessarily free.
func (t *Table) takeFromWaiter(ctx context.Context, p *Philosopher) (func(), error) {
	release, err := t.arbiter.Acquire(ctx, []int{p.left, p.right})
	if err != nil {
		return nil, err
	}
	for _, f := range []int{p.left, p.right} {
		invariant.Checkf(t.forks.TryAcquire(f, p.id),
			"fork %d granted to %d but held by %d", f, p.id, t.forks.Holder(f))
		t.emit(p, narrate.KindAcquire, f)
	}
	return func() {
		t.put(p, p.right)
		t.put(p, p.left)
		release()
	}, nil
}

func (t *Table) take(ctx context.Context, p *Philosopher, fork int) error {
	if err := t.forks.Acquire(ctx, fork, p.id); err != nil {
		return err
	}
	t.emit(p, narrate.KindAcquire, fork)
	return nil
}

func (t *Table) put(p *Philosopher, fork int) {
	t.forks.Release(fork, p.id)
	t.emit(p, narrate.KindRelease, fork)
}

func (t *Table) emit(p *Philosopher, kind narrate.Kind, fork ...int) {
	if t.sink == nil {
		return
	}
	e := narrate.New(Scenario, actor, p.id, kind)
	if len(fork) > 0 {
		e = e.WithResource(fork[0])
	}
	t.sink.Emit(e)
}

func (t *Table) totalMeals() int64 {
	var total int64
	for _, p := range t.seats {
		total += p.Meals()
	}
	return total
}
