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

package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpBackoff(t *testing.T) {
	tests := []struct {
		name      string
		base, max time.Duration
		limit     int
		expected  []time.Duration
		err       string
	}{
		{
			"millis",
			time.Millisecond,
			4 * time.Millisecond,
			5,
			[]time.Duration{
				time.Millisecond,
				2 * time.Millisecond,
				4 * time.Millisecond,
				4 * time.Millisecond,
				4 * time.Millisecond,
			},
			"",
		},
		{
			"unlimited",
			10 * time.Millisecond,
			50 * time.Millisecond,
			0,
			[]time.Duration{
				10 * time.Millisecond,
				20 * time.Millisecond,
				40 * time.Millisecond,
				50 * time.Millisecond,
				50 * time.Millisecond,
				50 * time.Millisecond,
			},
			"",
		},
		{"max too big", time.Millisecond, 2 * time.Hour, 0, nil, "invalid argument"},
		{"base bigger than max", time.Second, time.Millisecond, 0, nil, "invalid argument"},
		{"zero base", 0, time.Millisecond, 0, nil, "invalid argument"},
		{"max too small", time.Microsecond, time.Microsecond, 0, nil, "invalid argument"},
		{"negative limit", time.Millisecond, time.Second, -1, nil, "invalid argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			backoff, err := NewExpBackoff(tt.base, tt.max, tt.limit)
			if tt.err != "" {
				a.ErrorContains(err, tt.err)
				return
			}
			a.NoError(err)
			for _, want := range tt.expected {
				got, stop := backoff.Next()
				a.False(stop)
				a.Equal(want, got)
			}
			if tt.limit > 0 {
				_, stop := backoff.Next()
				a.True(stop)
			}
		})
	}
}
