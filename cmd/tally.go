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

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/field-eng-coordination/narrate"
)

// tally counts narration events per scenario.
type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

var _ narrate.Sink = (*tally)(nil)

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

// Emit implements narrate.Sink.
func (t *tally) Emit(e narrate.Event) {
	t.mu.Lock()
	t.counts[e.Scenario]++
	t.mu.Unlock()
}

// Total returns the number of events seen.
func (t *tally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// write prints a one-line summary, sorted by scenario name.
func (t *tally) write(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.counts) == 0 {
		return
	}
	names := make([]string, 0, len(t.counts))
	total := 0
	for name, c := range t.counts {
		names = append(names, name)
		total += c
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %d", name, t.counts[name])
	}
	fmt.Fprintf(w, "%s\n", dim.Sprintf("narrated %d events: %s", total, strings.Join(parts, ", ")))
}
