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

	"github.com/cockroachdb/field-eng-coordination/internal/logging"
	"github.com/cockroachdb/field-eng-coordination/scenario"
	"github.com/fatih/color"
)

var (
	good = color.New(color.FgGreen, color.Bold)
	warn = color.New(color.FgYellow, color.Bold)
	bad  = color.New(color.FgRed, color.Bold)
	dim  = color.New(color.Faint)
)

func stateColour(s scenario.State) *color.Color {
	switch s {
	case scenario.Completed:
		return good
	case scenario.Canceled, scenario.Deadlocked:
		return warn
	default:
		return bad
	}
}

// report writes a summary of each result.
func report(w io.Writer, results []*scenario.Result) {
	for _, res := range results {
		fmt.Fprintf(w, "%-18s %s %s\n",
			res.Scenario,
			stateColour(res.State).Sprintf("%-10s", res.State),
			dim.Sprint(logging.Elapsed(res.Elapsed)))

		c := res.Counters
		switch res.Scenario {
		case scenario.KindPhilosophers:
			fmt.Fprintf(w, "  meals %d\n", c.Meals)
		case scenario.KindBarber:
			fmt.Fprintf(w, "  served %d, rejected %d\n", c.ClientsServed, c.ClientsRejected)
		case scenario.KindProducerConsumer:
			fmt.Fprintf(w, "  produced %d, consumed %d\n", c.ItemsProduced, c.ItemsConsumed)
		}
		if res.Detail != "" {
			fmt.Fprintf(w, "  %s\n", res.Detail)
		}
		if res.Err != nil {
			fmt.Fprintf(w, "  %s %v\n", bad.Sprint("error:"), res.Err)
		}
	}
}
