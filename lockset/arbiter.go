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

package lockset

import (
	"context"
	"sync"
)

// A grant is closed exactly once, when its request is admitted.
type grant struct {
	ready chan struct{}
}

// An Arbiter grants exclusive access to sets of keys, in the order in
// which they were requested.
//
// An Arbiter is internally synchronized and is safe for concurrent use.
type Arbiter[K comparable] struct {
	queue *Queue[K, *grant]
}

// NewArbiter constructs an Arbiter.
func NewArbiter[K comparable]() *Arbiter[K] {
	return &Arbiter[K]{queue: NewQueue[K, *grant]()}
}

// Acquire blocks until the caller holds every key. The returned release
// function must be called to give the keys up; calling it more than once
// is a no-op.
//
// If the context is done before the keys are granted, the request is
// withdrawn and the context's error is returned. Any request that was
// waiting only on the withdrawn one is admitted.
func (a *Arbiter[K]) Acquire(ctx context.Context, keys []K) (release func(), err error) {
	g := &grant{ready: make(chan struct{})}
	admitted, err := a.queue.Enqueue(keys, g)
	if err != nil {
		return nil, err
	}
	if admitted {
		close(g.ready)
	}

	select {
	case <-g.ready:
	default:
		select {
		case <-g.ready:
		case <-ctx.Done():
			a.withdraw(g)
			return nil, ctx.Err()
		}
	}
	return sync.OnceFunc(func() { a.withdraw(g) }), nil
}

// Pending returns the number of requests that are waiting or admitted.
func (a *Arbiter[K]) Pending() int { return a.queue.Len() }

// withdraw removes the grant from the queue and admits whatever it was
// holding up.
func (a *Arbiter[K]) withdraw(g *grant) {
	next, _ := a.queue.Dequeue(g)
	for _, n := range next {
		close(n.ready)
	}
}
