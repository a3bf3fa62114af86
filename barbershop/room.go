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

// Package barbershop runs the sleeping barber: one barber, a waiting
// room with a fixed number of chairs, and clients who leave when every
// chair is taken.
package barbershop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/invariant"
	"github.com/gammazero/deque"
)

// ErrClosed is returned by [Room.Dequeue] once the room has been closed
// and every queued client has been handed out.
var ErrClosed = errors.New("waiting room closed")

// Room is a bounded FIFO of waiting clients. Each queued client is
// matched by one token on the ready channel, so a sleeping barber is
// woken exactly once per client.
type Room struct {
	capacity int
	ready    chan struct{}
	closed   chan struct{}

	mu struct {
		sync.Mutex
		closed bool
		peak   int
		queue  deque.Deque[*Client]
	}
}

// NewRoom returns a room with the given number of chairs. A room with
// no chairs turns every client away.
func NewRoom(capacity int) (*Room, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("waiting room capacity must not be negative, got %d", capacity)
	}
	return &Room{
		capacity: capacity,
		ready:    make(chan struct{}, capacity),
		closed:   make(chan struct{}),
	}, nil
}

// Cap returns the number of chairs.
func (r *Room) Cap() int { return r.capacity }

// Len returns the number of waiting clients.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.queue.Len()
}

// Peak returns the longest queue observed.
func (r *Room) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.peak
}

// TryEnqueue seats the client if a chair is free. It never blocks and
// returns false if the room is full or closed.
func (r *Room) TryEnqueue(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.closed || r.mu.queue.Len() >= r.capacity {
		return false
	}
	c.transition(Arrived, Queued)
	r.mu.queue.PushBack(c)
	n := r.mu.queue.Len()
	r.mu.peak = max(r.mu.peak, n)

	select {
	case r.ready <- struct{}{}:
	default:
		invariant.Checkf(false, "ready signals exceed %d queued clients", n)
	}
	return true
}

// Dequeue blocks until a client is waiting and returns the one that has
// waited longest. After Close, queued clients are still returned in
// order; ErrClosed follows once the room is empty.
func (r *Room) Dequeue(ctx context.Context) (*Client, error) {
	select {
	case <-r.ready:
		return r.pop(), nil
	case <-r.closed:
		select {
		case <-r.ready:
			return r.pop(), nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the room from accepting clients. It may be called more
// than once.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mu.closed {
		r.mu.closed = true
		close(r.closed)
	}
}

func (r *Room) pop() *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	invariant.Checkf(r.mu.queue.Len() > 0, "ready signal with an empty waiting room")
	return r.mu.queue.PopFront()
}
