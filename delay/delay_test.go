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

package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDraw(t *testing.T) {
	r := require.New(t)

	rng := Between(5*time.Millisecond, 10*time.Millisecond)
	r.NoError(rng.Validate())
	for range 1000 {
		d := rng.Draw()
		r.GreaterOrEqual(d, rng.Min)
		r.LessOrEqual(d, rng.Max)
	}

	r.Zero(Range{}.Draw())
	r.Equal(time.Second, Between(time.Second, time.Second).Draw())
}

func TestValidate(t *testing.T) {
	r := require.New(t)

	r.ErrorContains(Between(2*time.Second, time.Second).Validate(), "max less than min")
	r.ErrorContains(Between(-time.Second, time.Second).Validate(), "negative duration")
}

func TestSleepCanceled(t *testing.T) {
	r := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	r.ErrorIs(Sleep(ctx, time.Hour), context.Canceled)
	r.Less(time.Since(start), time.Second)
	r.ErrorIs(Sleep(ctx, 0), context.Canceled)
	r.NoError(Sleep(context.Background(), time.Millisecond))
}
