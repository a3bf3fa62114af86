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
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/field-eng-coordination/buffer"
	"github.com/cockroachdb/field-eng-coordination/internal/logging"
	"github.com/cockroachdb/field-eng-coordination/narrate"
	"github.com/cockroachdb/field-eng-coordination/philosophers"
	"github.com/cockroachdb/field-eng-coordination/scenario"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var philosophersCmd = &cobra.Command{
	Use:   "philosophers",
	Short: "Run the dining philosophers",
	Long: `Run the dining philosophers.

The naive policy is expected to deadlock; that outcome is reported and is
not an error.`,
	Args: cobra.NoArgs,
	RunE: runE(scenario.KindPhilosophers),
}

var barberCmd = &cobra.Command{
	Use:   "barber",
	Short: "Run the sleeping barber",
	Args:  cobra.NoArgs,
	RunE:  runE(scenario.KindBarber),
}

var producerConsumerCmd = &cobra.Command{
	Use:     "producer-consumer",
	Aliases: []string{"prodcons"},
	Short:   "Run producers and consumers over a bounded buffer",
	Args:    cobra.NoArgs,
	RunE:    runE(scenario.KindProducerConsumer),
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every scenario in turn, the buffer with each strategy",
	Args:  cobra.NoArgs,
	RunE:  runE(scenario.KindAll),
}

func init() {
	def := scenario.DefaultConfig()

	fs := philosophersCmd.Flags()
	p := def.Philosophers
	bindInt(fs, "philosophers.count", "count", p.Count, "number of philosophers and forks")
	bindString(fs, "philosophers.policy", "policy", string(p.Policy),
		"fork acquisition policy: "+join(philosophers.Policies))
	bindDuration(fs, "philosophers.duration", "duration", p.Duration, "length of the run")
	bindRange(fs, "philosophers.think", "think", p.Think, "time spent thinking")
	bindRange(fs, "philosophers.eat", "eat", p.Eat, "time spent eating")
	bindDuration(fs, "philosophers.hold_delay", "hold-delay", p.HoldDelay,
		"time spent holding the first fork before taking the second")
	bindDuration(fs, "philosophers.detect_window", "detect-window", p.DetectWindow,
		"stop early when no meal completes for this long (0 to run the full duration)")
	bindDuration(fs, "philosophers.patience", "patience", p.Patience,
		"backoff policy: wait this long for the second fork")
	bindDuration(fs, "philosophers.max_backoff", "max-backoff", p.MaxBackoff,
		"backoff policy: longest delay between attempts")

	fs = barberCmd.Flags()
	b := def.Barber
	bindInt(fs, "barber.capacity", "capacity", b.Capacity, "chairs in the waiting room")
	bindInt(fs, "barber.clients", "clients", b.Clients, "number of clients")
	bindRange(fs, "barber.arrival", "arrival", b.Arrival, "gap between arrivals")
	bindRange(fs, "barber.haircut", "haircut", b.Haircut, "haircut")
	bindDuration(fs, "barber.grace", "grace", b.Grace,
		"how long to stay open after the last arrival")

	fs = producerConsumerCmd.Flags()
	c := def.Buffer
	bindString(fs, "buffer.strategy", "strategy", string(c.Strategy),
		"buffer realization: "+join(buffer.Strategies))
	bindInt(fs, "buffer.capacity", "capacity", c.Capacity, "buffer slots")
	bindInt(fs, "buffer.producers", "producers", c.Producers, "number of producers")
	bindInt(fs, "buffer.consumers", "consumers", c.Consumers, "number of consumers")
	bindInt(fs, "buffer.items_per_producer", "items", c.ItemsPerProducer, "items made by each producer")
	bindRange(fs, "buffer.produce", "produce", c.Produce, "time to make an item")
	bindRange(fs, "buffer.consume", "consume", c.Consume, "time to use an item")

	bindDuration(allCmd.Flags(), "pause", "pause", def.Pause, "pause between scenarios")

	RootCmd.AddCommand(philosophersCmd, barberCmd, producerConsumerCmd, allCmd)
}

func runE(kind scenario.Kind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Cleanup()

		events := newTally()
		runner, err := scenario.New(cfg, narrate.Tee(narrate.NewLogSink(log.Logger), events))
		if err != nil {
			return err
		}

		stop := stopper.WithContext(cmdContext(cmd))
		defer stop.Stop(0)
		stop.Go(func(s *stopper.Context) error {
			awaitSignal(s, log, viper.GetDuration("shutdown_grace"))
			return nil
		})

		log.Info().Str("scenario", string(kind)).Msg("starting")
		var results []*scenario.Result
		err = stop.Call(func(s *stopper.Context) error {
			var err error
			results, err = runner.Run(s, kind)
			return err
		})
		stop.Stop(0)
		if waitErr := stop.Wait(); err == nil {
			err = waitErr
		}
		report(cmd.OutOrStdout(), results)
		events.write(cmd.OutOrStdout())
		return err
	}
}

// awaitSignal begins a graceful stop on the first interrupt. Workers
// then have the grace period to unwind before their context is
// canceled. A second interrupt gets the default handling.
func awaitSignal(s *stopper.Context, log *logging.Logger, grace time.Duration) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		log.Warn().Stringer("signal", sig).Dur("grace", grace).Msg("stopping")
		s.Stop(grace)
	case <-s.Stopping():
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
