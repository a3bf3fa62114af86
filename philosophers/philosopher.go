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
	"fmt"
	"sync/atomic"
)

// State is a philosopher's position in its think/wait/eat cycle.
type State int32

// Philosopher states.
const (
	Thinking State = iota
	Waiting
	Eating
	Done
)

func (s State) String() string {
	switch s {
	case Thinking:
		return "thinking"
	case Waiting:
		return "waiting"
	case Eating:
		return "eating"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// A Philosopher sits between its left fork (same index) and its right
// fork (next index, wrapping around).
type Philosopher struct {
	id, left, right int

	meals atomic.Int64
	state atomic.Int32
}

func newPhilosopher(id, count int) *Philosopher {
	return &Philosopher{id: id, left: id, right: (id + 1) % count}
}

// ID returns the philosopher's seat number.
func (p *Philosopher) ID() int { return p.id }

// Left returns the index of the left fork.
func (p *Philosopher) Left() int { return p.left }

// Right returns the index of the right fork.
func (p *Philosopher) Right() int { return p.right }

// Meals returns the number of completed meals.
func (p *Philosopher) Meals() int64 { return p.meals.Load() }

// State returns the current state.
func (p *Philosopher) State() State { return State(p.state.Load()) }

func (p *Philosopher) setState(s State) { p.state.Store(int32(s)) }

// order returns the forks in the order the policy requests them.
// Only philosopher 0 under the avoidance policy reverses its order.
func (p *Philosopher) order(policy Policy) (first, second int) {
	if policy == PolicyAvoidance && p.id == 0 {
		return p.right, p.left
	}
	return p.left, p.right
}
