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
	"fmt"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/invariant"
)

// A ticket is a value's place in line for each of its keys.
type ticket[K, V any] struct {
	val   V
	keys  []K
	front int // Number of key lines in which the ticket is first.
}

// admitted reports whether the ticket is first in every line.
func (t *ticket[K, V]) admitted() bool { return t.front == len(t.keys) }

// A Queue is an in-order admission queue for values associated with a
// set of potentially-overlapping keys. A value is admitted once it is
// at the front of the line of every key it named.
//
// A Queue is internally synchronized and is safe for concurrent use. A
// Queue should not be copied after it has been created.
type Queue[K, V comparable] struct {
	mu struct {
		sync.Mutex
		lines   map[K][]*ticket[K, V]
		tickets map[V]*ticket[K, V]
	}
}

// NewQueue constructs a [Queue].
func NewQueue[K, V comparable]() *Queue[K, V] {
	q := &Queue[K, V]{}
	q.mu.lines = make(map[K][]*ticket[K, V])
	q.mu.tickets = make(map[V]*ticket[K, V])
	return q
}

// Enqueue places the value at the back of each key's line. It returns
// true if the value was admitted immediately, which is also the case for
// an empty key set. It is an error to enqueue a value twice.
func (q *Queue[K, V]) Enqueue(keys []K, val V) (admitted bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.mu.tickets[val]; dup {
		return false, fmt.Errorf("the value %v is already enqueued", val)
	}

	t := &ticket[K, V]{val: val, keys: dedup(keys)}
	q.mu.tickets[val] = t
	for _, k := range t.keys {
		line := append(q.mu.lines[k], t)
		q.mu.lines[k] = line
		if len(line) == 1 {
			t.front++
		}
	}
	return t.admitted(), nil
}

// Dequeue removes the value from every line, whether or not it was
// admitted, and returns the values that became admitted as a result. The
// bool return value indicates whether the value was in the queue.
func (q *Queue[K, V]) Dequeue(val V) ([]V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.mu.tickets[val]
	if !ok {
		return nil, false
	}
	delete(q.mu.tickets, val)

	var ret []V
	for _, k := range t.keys {
		line := q.mu.lines[k]
		idx := indexOf(line, t)
		invariant.Checkf(idx >= 0, "ticket for %v missing from line %v", val, k)

		if idx > 0 {
			// Left the line before reaching the front; nobody moves up.
			q.mu.lines[k] = append(line[:idx], line[idx+1:]...)
			continue
		}

		line = line[1:]
		if len(line) == 0 {
			delete(q.mu.lines, k)
			continue
		}
		q.mu.lines[k] = line

		next := line[0]
		next.front++
		invariant.Checkf(next.front <= len(next.keys), "over counted %v", next.val)
		if next.admitted() {
			ret = append(ret, next.val)
		}
	}
	return ret, true
}

// Len returns the number of values in the queue.
func (q *Queue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.mu.tickets)
}

func indexOf[T comparable](s []T, v T) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return -1
}

// Make a copy of the key slice and deduplicate it.
func dedup[K comparable](keys []K) []K {
	keys = append([]K(nil), keys...)
	seen := make(map[K]struct{}, len(keys))
	idx := 0
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		keys[idx] = key
		idx++
	}
	return keys[:idx]
}
