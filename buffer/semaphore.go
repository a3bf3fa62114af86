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

package buffer

import (
	"context"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/invariant"
	"github.com/gammazero/deque"
	"golang.org/x/sync/semaphore"
)

// drainPermits are released into the filled-slots semaphore by Close.
// A Take that acquires one and finds the buffer empty passes it on to
// the next consumer and reports ErrDrained.
const drainPermits = 1 << 30

// Semaphore is a Buffer built from two counting semaphores and a
// mutex-guarded FIFO.
//
// The empty-slots semaphore starts with one permit per slot and the
// filled-slots semaphore with none. Put takes an empty slot and gives a
// filled one; Take does the reverse. Each signal releases exactly one
// waiter.
type Semaphore struct {
	capacity int
	empty    *semaphore.Weighted
	filled   *semaphore.Weighted

	// closed is canceled by Close to release producers waiting on an
	// empty slot.
	closed     context.Context
	markClosed context.CancelFunc

	mu struct {
		sync.Mutex
		closed bool
		items  deque.Deque[int]
	}
}

var _ Buffer = (*Semaphore)(nil)

// NewSemaphore constructs a semaphore-backed buffer. The capacity must
// be positive.
func NewSemaphore(capacity int) *Semaphore {
	b := &Semaphore{
		capacity: capacity,
		empty:    semaphore.NewWeighted(int64(capacity)),
		filled:   semaphore.NewWeighted(int64(capacity) + drainPermits),
	}
	// The filled-slots count starts at zero.
	if !b.filled.TryAcquire(int64(capacity) + drainPermits) {
		panic("could not zero filled-slots semaphore")
	}
	b.closed, b.markClosed = context.WithCancel(context.Background())
	return b
}

// Put implements Buffer.
func (b *Semaphore) Put(ctx context.Context, item int) error {
	if b.closed.Err() != nil {
		return ErrClosed
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.closed, cancel)
	defer stop()
	if err := b.empty.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrClosed
	}

	b.mu.Lock()
	if b.mu.closed {
		b.mu.Unlock()
		b.empty.Release(1)
		return ErrClosed
	}
	if n := b.mu.items.Len(); n >= b.capacity {
		b.mu.Unlock()
		b.empty.Release(1)
		invariant.Checkf(false, "put into a full buffer: occupancy %d, capacity %d", n, b.capacity)
	}
	b.mu.items.PushBack(item)
	// Signal while holding the lock, so that Close cannot slip in
	// between the insert and its permit.
	b.filled.Release(1)
	b.mu.Unlock()
	return nil
}

// Take implements Buffer.
func (b *Semaphore) Take(ctx context.Context) (int, error) {
	if err := b.filled.Acquire(ctx, 1); err != nil {
		return 0, err
	}

	b.mu.Lock()
	if b.mu.items.Len() == 0 {
		closed := b.mu.closed
		b.mu.Unlock()
		invariant.Checkf(closed, "filled slot signaled on an empty, open buffer")
		// Pass the drain signal on to the next consumer.
		b.filled.Release(1)
		return 0, ErrDrained
	}
	item := b.mu.items.PopFront()
	b.mu.Unlock()

	b.empty.Release(1)
	return item, nil
}

// Close implements Buffer.
func (b *Semaphore) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mu.closed {
		return
	}
	b.mu.closed = true
	b.markClosed()
	b.filled.Release(drainPermits)
}

// Len implements Buffer.
func (b *Semaphore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mu.items.Len()
}

// Cap implements Buffer.
func (b *Semaphore) Cap() int { return b.capacity }
