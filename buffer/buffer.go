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

// Package buffer provides fixed-capacity FIFO buffers with blocking,
// cancellable put and take operations, in two interchangeable
// realizations.
//
// [NewChannel] uses the runtime's own blocking queue, a buffered
// channel, whose close is the "no more input" signal. [NewSemaphore]
// builds the same contract from first principles: a counting semaphore
// of empty slots, another of filled slots, and a mutex-guarded FIFO.
//
// In both, Take keeps returning items after Close until the buffer is
// empty, and only then reports [ErrDrained]. A consumer that sees
// ErrDrained can exit knowing that nothing was left behind.
package buffer

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Put once Close has been called.
	ErrClosed = errors.New("buffer closed")
	// ErrDrained is returned by Take once the buffer is closed and empty.
	ErrDrained = errors.New("buffer closed and drained")
)

// A Buffer is a bounded FIFO shared by any number of producers and
// consumers. Implementations are safe for concurrent use.
type Buffer interface {
	// Put blocks while the buffer is full, then appends the item. It
	// returns the context's error if the context is done first, or
	// ErrClosed if the buffer has been closed.
	Put(ctx context.Context, item int) error
	// Take blocks while the buffer is empty and open, then removes the
	// oldest item. It returns the context's error if the context is done
	// first, or ErrDrained if the buffer is closed and empty.
	Take(ctx context.Context) (int, error)
	// Close signals that no more items will be put. Pending and future
	// Put calls fail with ErrClosed. Close is idempotent.
	Close()
	// Len returns the number of items in the buffer.
	Len() int
	// Cap returns the capacity of the buffer.
	Cap() int
}

// Strategy names a Buffer realization.
type Strategy string

// The available realizations.
const (
	StrategyChannel   Strategy = "channel"
	StrategySemaphore Strategy = "semaphore"
)

// Strategies lists every realization.
var Strategies = []Strategy{StrategyChannel, StrategySemaphore}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown buffer strategy %q, expected one of %v", s, Strategies)
}

// New constructs a buffer of the given capacity using the strategy.
func New(strategy Strategy, capacity int) (Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	switch strategy {
	case StrategyChannel:
		return NewChannel(capacity), nil
	case StrategySemaphore:
		return NewSemaphore(capacity), nil
	default:
		return nil, fmt.Errorf("unknown buffer strategy %q", strategy)
	}
}
