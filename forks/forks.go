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

// Package forks models a fixed ring of exclusive, single-owner
// resources.
//
// Each resource is backed by a one-slot channel holding a token while
// the resource is free. Acquiring a resource receives the token;
// releasing it sends the token back, which hands the resource to
// exactly one waiter, if any. Ownership is recorded separately, under
// the Set's mutex, so that misuse is detected.
package forks

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/invariant"
)

// Free is returned by [Set.Holder] for an unheld resource.
const Free = -1

// A Set is a fixed ring of exclusive resources identified by 0..N-1.
//
// A Set is internally synchronized and is safe for concurrent use. A
// Set should not be copied after it has been created.
type Set struct {
	tokens []chan struct{}

	mu struct {
		sync.Mutex
		holders []int // Owner per resource, or Free.
		held    int
	}
}

// New constructs a Set of n free resources.
func New(n int) (*Set, error) {
	if n < 1 {
		return nil, fmt.Errorf("resource count must be positive, got %d", n)
	}
	s := &Set{tokens: make([]chan struct{}, n)}
	s.mu.holders = make([]int, n)
	for i := range s.tokens {
		s.tokens[i] = make(chan struct{}, 1)
		s.tokens[i] <- struct{}{}
		s.mu.holders[i] = Free
	}
	return s, nil
}

// Len returns the number of resources in the ring.
func (s *Set) Len() int { return len(s.tokens) }

// Acquire blocks until the resource is free and then marks it as held
// by owner. If the context is done first, the context's error is
// returned and the resource is untouched.
func (s *Set) Acquire(ctx context.Context, res, owner int) error {
	s.checkRange(res)
	// Prefer a free token over an already-canceled context so that a
	// racing cancellation does not hide the acquisition order.
	select {
	case <-s.tokens[res]:
	default:
		select {
		case <-s.tokens[res]:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	invariant.Checkf(s.mu.holders[res] == Free,
		"resource %d acquired by %d while held by %d", res, owner, s.mu.holders[res])
	s.mu.holders[res] = owner
	s.mu.held++
	return nil
}

// TryAcquire marks the resource as held by owner if it is free. It
// never blocks.
func (s *Set) TryAcquire(res, owner int) bool {
	s.checkRange(res)
	select {
	case <-s.tokens[res]:
	default:
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	invariant.Checkf(s.mu.holders[res] == Free,
		"resource %d acquired by %d while held by %d", res, owner, s.mu.holders[res])
	s.mu.holders[res] = owner
	s.mu.held++
	return true
}

// Release marks the resource as free and wakes one waiter. Releasing a
// resource that owner does not hold is an invariant violation.
func (s *Set) Release(res, owner int) {
	s.checkRange(res)
	s.mu.Lock()
	holder := s.mu.holders[res]
	if holder == owner {
		s.mu.holders[res] = Free
		s.mu.held--
	}
	s.mu.Unlock()
	// Checked outside the lock so that a recovered violation leaves the
	// Set usable.
	invariant.Checkf(holder == owner,
		"resource %d released by %d while held by %d", res, owner, holder)

	select {
	case s.tokens[res] <- struct{}{}:
	default:
		invariant.Checkf(false, "resource %d token already returned", res)
	}
}

// Holder returns the owner of the resource, or [Free].
func (s *Set) Holder(res int) int {
	s.checkRange(res)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.holders[res]
}

// Held returns the number of resources currently held.
func (s *Set) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.held
}

// Snapshot returns the owner of every resource, in index order.
func (s *Set) Snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.mu.holders...)
}

func (s *Set) checkRange(res int) {
	invariant.Checkf(res >= 0 && res < len(s.tokens),
		"resource %d out of range [0, %d)", res, len(s.tokens))
}
