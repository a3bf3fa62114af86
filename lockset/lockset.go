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

/*
Package lockset admits requests for potentially-overlapping sets of
resources in arrival order.

This is the "waiter" solution to the dining philosophers problem: rather
than each philosopher picking up one fork and then another, a
philosopher asks the Arbiter for both forks at once and is admitted only
when it is at the front of the line for each of them.

	arb := NewArbiter[int]()

	// Philosopher 2 of 5 needs forks 2 and 3.
	release, err := arb.Acquire(ctx, []int{2, 3})
	if err != nil {
		return err // Canceled while waiting.
	}
	eat()
	release()

Since a request is inserted into every key's line atomically, two
requests that share keys are ordered the same way in every line they
have in common and the wait-for graph cannot contain a cycle.

Queue implements the admission bookkeeping and is generic across value
types.
*/
package lockset
