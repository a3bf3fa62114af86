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
	"sync/atomic"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/cockroachdb/field-eng-coordination/narrate"
)

// BarberState is either Idle or Serving.
type BarberState int32

const (
	Idle BarberState = iota
	Serving
)

func (s BarberState) String() string {
	if s == Serving {
		return "serving"
	}
	return "idle"
}

// Barber serves clients from a Room one at a time.
type Barber struct {
	haircut delay.Range
	room    *Room
	sink    narrate.Sink

	served atomic.Int64
	state  atomic.Int32
}

// NewBarber returns a barber working the given room.
func NewBarber(room *Room, haircut delay.Range, sink narrate.Sink) *Barber {
	return &Barber{haircut: haircut, room: room, sink: sink}
}

// Served returns the number of finished haircuts.
func (b *Barber) Served() int64 { return b.served.Load() }

// State returns what the barber is doing.
func (b *Barber) State() BarberState { return BarberState(b.state.Load()) }

// Run serves clients until the room is closed and empty, or the context
// is done. A client whose haircut is interrupted is left in service.
func (b *Barber) Run(ctx context.Context) error {
	b.emit(narrate.KindOpen, nil)
	defer b.emit(narrate.KindClose, nil)
	for {
		if b.room.Len() == 0 {
			b.emit(narrate.KindSleep, nil)
		}
		c, err := b.room.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.transition(Queued, InService)
		b.state.Store(int32(Serving))
		b.emit(narrate.KindServe, c)
		if err := delay.SleepRange(ctx, b.haircut); err != nil {
			return nil
		}
		b.served.Add(1)
		c.transition(InService, Served)
		b.state.Store(int32(Idle))
		b.emit(narrate.KindServed, c)
	}
}

func (b *Barber) emit(kind narrate.Kind, c *Client) {
	if b.sink == nil {
		return
	}
	e := narrate.New(Scenario, "barber", 0, kind).WithOccupancy(b.room.Len())
	if c != nil {
		e = e.WithItem(c.ID())
	}
	b.sink.Emit(e)
}
