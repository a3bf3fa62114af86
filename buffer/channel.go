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
)

// Channel is a Buffer backed by a buffered channel.
type Channel struct {
	ch      chan int
	closing chan struct{} // Closed first, to release pending Puts.
	once    sync.Once

	// Put holds a read lock for the duration of the send, so that the
	// channel is never closed under a sender.
	sendMu sync.RWMutex
}

var _ Buffer = (*Channel)(nil)

// NewChannel constructs a channel-backed buffer. The capacity must be
// positive.
func NewChannel(capacity int) *Channel {
	return &Channel{
		ch:      make(chan int, capacity),
		closing: make(chan struct{}),
	}
}

// Put implements Buffer.
func (b *Channel) Put(ctx context.Context, item int) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	select {
	case <-b.closing:
		return ErrClosed
	default:
	}
	select {
	case b.ch <- item:
		return nil
	case <-b.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take implements Buffer.
func (b *Channel) Take(ctx context.Context) (int, error) {
	select {
	case item, ok := <-b.ch:
		if !ok {
			return 0, ErrDrained
		}
		return item, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close implements Buffer. It waits for in-flight Put calls to return.
func (b *Channel) Close() {
	b.once.Do(func() {
		close(b.closing)
		b.sendMu.Lock()
		close(b.ch)
		b.sendMu.Unlock()
	})
}

// Len implements Buffer.
func (b *Channel) Len() int { return len(b.ch) }

// Cap implements Buffer.
func (b *Channel) Cap() int { return cap(b.ch) }
