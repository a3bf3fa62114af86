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

// Package retry repeats an operation that failed with a transient
// error, pausing between attempts according to a backoff strategy.
//
// The philosophers' backoff policy uses it to put a fork back and try
// again later instead of holding it while blocked on a neighbour.
package retry

import (
	"errors"
	"time"

	"github.com/cockroachdb/field-eng-powertools/stopper"
)

var (
	// ErrMaxRetries is raised when the strategy gives up.
	ErrMaxRetries = errors.New("too many retries")
	// ErrRetriable tags errors from operations that can be retried.
	ErrRetriable = errors.New("retriable error")
)

// Operation to be retried.
type Operation func(*stopper.Context) error

// Backoff strategy. Backoff strategies from
// https://github.com/sethvargo/go-retry satisfy this interface.
type Backoff interface {
	// Next determines how long to wait before the next attempt. It
	// returns true if no further attempts should be made.
	Next() (delay time.Duration, stop bool)
}

// Retry the operation while it returns an error wrapping
// [ErrRetriable]. Any other result, including success, is returned
// immediately. If the stopper begins stopping while waiting between
// attempts, [stopper.ErrStopped] is returned; if its context is
// canceled, the context's error is returned.
func Retry(ctx *stopper.Context, strategy Backoff, op Operation) error {
	for {
		err := op(ctx)
		if err == nil || !errors.Is(err, ErrRetriable) {
			return err
		}
		delay, stop := strategy.Next()
		if stop {
			return ErrMaxRetries
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			// Try again.
		case <-ctx.Stopping():
			timer.Stop()
			return stopper.ErrStopped
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
