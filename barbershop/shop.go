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

package barbershop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/invariant"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"golang.org/x/sync/errgroup"
)

// Scenario is the name used in narration.
const Scenario = "barber"

// Config controls a run of the shop.
type Config struct {
	Capacity int         `mapstructure:"capacity"`
	Clients  int         `mapstructure:"clients"`
	Arrival  delay.Range `mapstructure:"arrival"` // Spacing between arrivals.
	Haircut  delay.Range `mapstructure:"haircut"`

	// Grace bounds how long the shop stays open for waiting clients
	// after the last one has arrived. Clients still queued when the
	// room closes are served before the barber leaves.
	Grace time.Duration `mapstructure:"grace"`
}

// DefaultConfig returns a five-chair shop visited by ten clients.
func DefaultConfig() Config {
	return Config{
		Capacity: 5,
		Clients:  10,
		Arrival:  delay.Between(200*time.Millisecond, 800*time.Millisecond),
		Haircut:  delay.Between(time.Second, 2*time.Second),
		Grace:    5 * time.Second,
	}
}

// Validate returns an error describing every problem with the
// configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("waiting room capacity must not be negative, got %d", c.Capacity))
	}
	if c.Clients < 1 {
		errs = append(errs, fmt.Errorf("client count must be positive, got %d", c.Clients))
	}
	if err := c.Arrival.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("arrival: %w", err))
	}
	if err := c.Haircut.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("haircut: %w", err))
	}
	if c.Grace < 0 {
		errs = append(errs, fmt.Errorf("grace must not be negative, got %s", c.Grace))
	}
	return errors.Join(errs...)
}

// Result summarizes a run.
type Result struct {
	Served   int64
	Rejected int64
	MaxQueue int

	// Interrupted is set when the context ended the run early. Clients
	// who were waiting at that point are neither served nor rejected.
	Interrupted bool
	Elapsed     time.Duration
}

// Shop ties a Room to its Barber.
type Shop struct {
	barber *Barber
	cfg    Config
	room   *Room
	sink   narrate.Sink

	rejected atomic.Int64
}

// NewShop validates the configuration and builds a shop.
func NewShop(cfg Config, sink narrate.Sink) (*Shop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	room, err := NewRoom(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Shop{
		barber: NewBarber(room, cfg.Haircut, sink),
		cfg:    cfg,
		room:   room,
		sink:   sink,
	}, nil
}

// Barber returns the shop's barber.
func (s *Shop) Barber() *Barber { return s.barber }

// Room returns the shop's waiting room.
func (s *Shop) Room() *Room { return s.room }

// Run opens the shop, lets the configured clients arrive, and closes
// once every client is done or the grace period has passed. The barber
// finishes the queue before Run returns. A shop can be run once.
func (s *Shop) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

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

	var staff, clients errgroup.Group
	staff.Go(guard(func() error { return s.barber.Run(runCtx) }))

	for id := range s.cfg.Clients {
		if id > 0 && delay.SleepRange(runCtx, s.cfg.Arrival) != nil {
			break
		}
		clients.Go(guard(func() error { return s.visit(runCtx, id) }))
	}

	var clientErr error
	clientsDone := make(chan struct{})
	go func() {
		defer close(clientsDone)
		clientErr = clients.Wait()
	}()

	grace := time.NewTimer(s.cfg.Grace)
	defer grace.Stop()
	select {
	case <-clientsDone:
	case <-grace.C:
	case <-runCtx.Done():
	}
	s.room.Close()
	staffErr := staff.Wait()
	<-clientsDone

	res := &Result{
		Served:      s.barber.Served(),
		Rejected:    s.rejected.Load(),
		MaxQueue:    s.room.Peak(),
		Interrupted: ctx.Err() != nil,
		Elapsed:     time.Since(start),
	}
	if err := errors.Join(staffErr, clientErr); err != nil {
		return res, fmt.Errorf("barber: %w", err)
	}
	return res, nil
}

// visit takes a seat or leaves, and then waits for its haircut.
func (s *Shop) visit(ctx context.Context, id int) error {
	c := NewClient(id)
	s.emit(narrate.KindArrive, id)
	if !s.room.TryEnqueue(c) {
		c.transition(Arrived, Rejected)
		s.rejected.Add(1)
		s.emit(narrate.KindReject, id)
		return nil
	}
	s.emit(narrate.KindQueue, id)
	select {
	case <-c.Done():
		s.emit(narrate.KindDone, id)
	case <-ctx.Done():
	}
	return nil
}

func (s *Shop) emit(kind narrate.Kind, id int) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(narrate.New(Scenario, "client", id, kind).WithOccupancy(s.room.Len()))
}
