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
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"github.com/cockroachdb/field-eng-coordination/philosophers"
	"github.com/cockroachdb/field-eng-coordination/scenario"
	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	r := require.New(t)
	cfg, err := loadConfig(viper.New())
	r.NoError(err)
	r.Equal(scenario.DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	r := require.New(t)
	v := viper.New()
	v.Set("philosophers.count", 7)
	v.Set("philosophers.policy", "naive")
	v.Set("philosophers.think.min", "10ms")
	v.Set("philosophers.hold_delay", "250ms")
	v.Set("buffer.strategy", "semaphore")
	v.Set("barber.grace", time.Second)
	v.Set("timeout", "1m")

	cfg, err := loadConfig(v)
	r.NoError(err)
	r.Equal(7, cfg.Philosophers.Count)
	r.Equal(philosophers.PolicyNaive, cfg.Philosophers.Policy)
	r.Equal(10*time.Millisecond, cfg.Philosophers.Think.Min)
	r.Equal(scenario.DefaultConfig().Philosophers.Think.Max, cfg.Philosophers.Think.Max)
	r.Equal(250*time.Millisecond, cfg.Philosophers.HoldDelay)
	r.Equal(buffer.StrategySemaphore, cfg.Buffer.Strategy)
	r.Equal(time.Second, cfg.Barber.Grace)
	r.Equal(time.Minute, cfg.Timeout)
}

func TestLoadConfigBadValue(t *testing.T) {
	r := require.New(t)
	v := viper.New()
	v.Set("barber.clients", "lots")
	_, err := loadConfig(v)
	r.ErrorIs(err, scenario.ErrInvalidConfig)
}

func TestReport(t *testing.T) {
	r := require.New(t)
	color.NoColor = true

	var buf bytes.Buffer
	report(&buf, []*scenario.Result{
		{
			Scenario: scenario.KindPhilosophers,
			State:    scenario.Deadlocked,
			Counters: scenario.Counters{Meals: 4},
			Elapsed:  1500 * time.Millisecond,
			Detail:   "policy naive, deadlock detected after 1s",
		},
		{
			Scenario: scenario.KindBarber,
			State:    scenario.Completed,
			Counters: scenario.Counters{ClientsServed: 7, ClientsRejected: 3},
		},
		{
			Scenario: scenario.KindProducerConsumer,
			State:    scenario.Failed,
			Err:      errors.New("boom"),
		},
	})
	out := buf.String()
	r.Contains(out, "deadlocked")
	r.Contains(out, "meals 4")
	r.Contains(out, "1.5s")
	r.Contains(out, "served 7, rejected 3")
	r.Contains(out, "produced 0, consumed 0")
	r.Contains(out, "error: boom")
}

func TestTally(t *testing.T) {
	r := require.New(t)
	color.NoColor = true

	var buf bytes.Buffer
	events := newTally()
	events.write(&buf)
	r.Empty(buf.String())

	var logged int
	sink := narrate.Tee(events, nil, narrate.SinkFunc(func(narrate.Event) { logged++ }))
	for i := range 3 {
		sink.Emit(narrate.New(philosophers.Scenario, "philosopher", i, narrate.KindEat))
	}
	sink.Emit(narrate.New("barber", "client", 0, narrate.KindArrive))
	r.Equal(4, events.Total())
	r.Equal(4, logged)

	events.write(&buf)
	r.Equal("narrated 4 events: barber 1, philosophers 3\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	r := require.New(t)
	for _, name := range []string{"philosophers", "barber", "producer-consumer", "all"} {
		sub, _, err := RootCmd.Find([]string{name})
		r.NoError(err)
		r.Equal(name, sub.Name())
	}
	sub, _, err := RootCmd.Find([]string{"prodcons"})
	r.NoError(err)
	r.Equal(producerConsumerCmd, sub)
	r.NotNil(philosophersCmd.Flags().Lookup("hold-delay"))
	r.NotNil(barberCmd.Flags().Lookup("haircut-max"))
	r.NotNil(RootCmd.PersistentFlags().Lookup("no-colour"))
}
