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

package scenario

import (
	"fmt"
	"time"
)

// State is the outcome of a scenario.
type State int

const (
	Completed State = iota
	Canceled
	Deadlocked
	Failed
)

func (s State) String() string {
	switch s {
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	case Deadlocked:
		return "deadlocked"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// stateOf ranks the outcomes: a failure hides everything else, and a
// deadlock is reported even if the run was also canceled.
func stateOf(err error, deadlocked, interrupted bool) State {
	switch {
	case err != nil:
		return Failed
	case deadlocked:
		return Deadlocked
	case interrupted:
		return Canceled
	default:
		return Completed
	}
}

// Counters are read once a scenario's workers have been joined. Only
// the counters relevant to the scenario are set.
type Counters struct {
	Meals           int64
	ClientsServed   int64
	ClientsRejected int64
	ItemsProduced   int64
	ItemsConsumed   int64
}

// Result describes one scenario run.
type Result struct {
	Scenario Kind
	State    State
	Counters Counters
	Elapsed  time.Duration
	Detail   string // Human-readable summary.
	Err      error  // Set when State is Failed.
}
