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

package philosophers

import (
	"context"
	"time"

	"github.com/cockroachdb/field-eng-coordination/forks"
)

// confirmWindow is how long a suspected deadlock must persist, with no
// meal completed, before the unmitigated run reports it.
const confirmWindow = 50 * time.Millisecond

// watch blocks until the run is over and reports whether the table
// ended in a deadlock. The run is over when runCtx is done, when a
// worker has failed (the failed channel is closed), or, if detection is enabled, as
// soon as a deadlock has been observed.
func (t *Table) watch(runCtx context.Context, failed <-chan struct{}) bool {
	if t.cfg.DetectWindow <= 0 {
		select {
		case <-runCtx.Done():
		case <-failed:
			return false
		}
		return t.confirm(confirmWindow)
	}

	for {
		_, changed := t.progress.Get()
		timer := time.NewTimer(t.cfg.DetectWindow)
		select {
		case <-changed:
			timer.Stop()
		case <-timer.C:
			if t.circularWait() {
				return true
			}
		case <-runCtx.Done():
			timer.Stop()
			return t.confirm(confirmWindow)
		case <-failed:
			timer.Stop()
			return false
		}
	}
}

// confirm checks for a circular wait twice, the given interval apart,
// with no meal completed in between.
func (t *Table) confirm(interval time.Duration) bool {
	before, _ := t.progress.Get()
	if !t.circularWait() {
		return false
	}
	time.Sleep(interval)
	after, _ := t.progress.Get()
	return before == after && t.circularWait()
}

// circularWait reports whether every philosopher holds exactly the
// first fork of its policy while its second fork is held by someone
// else. Philosophers waiting in that configuration never let go, so the
// condition is permanent under the naive policy.
func (t *Table) circularWait() bool {
	holders := t.forks.Snapshot()
	for _, p := range t.seats {
		first, second := p.order(t.cfg.Policy)
		if holders[first] != p.id {
			return false
		}
		if h := holders[second]; h == forks.Free || h == p.id {
			return false
		}
	}
	return true
}
