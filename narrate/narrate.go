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

// Package narrate carries the per-event narration of the coordination
// scenarios (who acquired what, who was served) to an injected [Sink].
//
// Narration is a side effect only. Nothing in the scenarios depends on
// what a Sink does with an Event, and a nil Sink discards everything.
package narrate

import "fmt"

// Kind identifies what happened.
type Kind int

// Event kinds, grouped by scenario.
const (
	KindUnknown Kind = iota

	KindThink    // Philosopher started thinking.
	KindWait     // Philosopher is waiting for its resources.
	KindAcquire  // Resource acquired.
	KindRelease  // Resource released.
	KindBackoff  // Resource put back to retry later.
	KindEat      // Philosopher started eating.
	KindDeadlock // No progress observed.

	KindArrive  // Client arrived.
	KindQueue   // Client entered the waiting room.
	KindReject  // Client left because the room was full.
	KindSleep   // Barber found the room empty.
	KindServe   // Barber started serving a client.
	KindServed  // Client service complete.
	KindOpen    // Barber opened the shop.
	KindClose   // Barber closed the shop.
	KindProduce // Item put into the buffer.
	KindConsume // Item taken from the buffer.

	KindDone // Worker finished.
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	KindThink:    "think",
	KindWait:     "wait",
	KindAcquire:  "acquire",
	KindRelease:  "release",
	KindBackoff:  "backoff",
	KindEat:      "eat",
	KindDeadlock: "deadlock",
	KindArrive:   "arrive",
	KindQueue:    "queue",
	KindReject:   "reject",
	KindSleep:    "sleep",
	KindServe:    "serve",
	KindServed:   "served",
	KindOpen:     "open",
	KindClose:    "close",
	KindProduce:  "produce",
	KindConsume:  "consume",
	KindDone:     "done",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Event is a single narration record. Fields that do not apply to the
// Kind are left at -1 (Resource, Item) or zero.
type Event struct {
	Scenario  string
	Actor     string // "philosopher", "client", "barber", "producer", "consumer".
	ID        int
	Kind      Kind
	Resource  int // Fork index, or -1.
	Item      int // Buffer payload, or -1.
	Occupancy int // Buffer or room length after the event.
}

// New returns an Event with the optional fields marked as absent.
func New(scenario, actor string, id int, kind Kind) Event {
	return Event{
		Scenario: scenario,
		Actor:    actor,
		ID:       id,
		Kind:     kind,
		Resource: -1,
		Item:     -1,
	}
}

// WithResource returns a copy of the event naming a resource.
func (e Event) WithResource(res int) Event { e.Resource = res; return e }

// WithItem returns a copy of the event naming a buffer item.
func (e Event) WithItem(item int) Event { e.Item = item; return e }

// WithOccupancy returns a copy of the event with a queue length.
func (e Event) WithOccupancy(n int) Event { e.Occupancy = n; return e }

func (e Event) String() string {
	s := fmt.Sprintf("%s %s %d %s", e.Scenario, e.Actor, e.ID, e.Kind)
	if e.Resource >= 0 {
		s += fmt.Sprintf(" resource=%d", e.Resource)
	}
	if e.Item >= 0 {
		s += fmt.Sprintf(" item=%d occupancy=%d", e.Item, e.Occupancy)
	}
	return s
}

// A Sink receives narration. Implementations must be safe for
// concurrent use; Emit is called from every worker goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// Emit sends the event to the sink, if there is one.
func Emit(s Sink, e Event) {
	if s != nil {
		s.Emit(e)
	}
}

// Tee returns a Sink that forwards to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var out []Sink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.Emit(e)
		}
	})
}
