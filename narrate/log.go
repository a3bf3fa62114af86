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

package narrate

import "github.com/rs/zerolog"

// NewLogSink returns a Sink that writes each event as a structured
// debug record. Deadlocks and rejections are logged at a higher level
// since they are the interesting outcomes.
func NewLogSink(log zerolog.Logger) Sink {
	return SinkFunc(func(e Event) {
		var evt *zerolog.Event
		switch e.Kind {
		case KindDeadlock:
			evt = log.Warn()
		case KindReject, KindOpen, KindClose:
			evt = log.Info()
		default:
			evt = log.Debug()
		}
		evt = evt.
			Str("scenario", e.Scenario).
			Str("actor", e.Actor).
			Int("id", e.ID)
		if e.Resource >= 0 {
			evt = evt.Int("resource", e.Resource)
		}
		if e.Item >= 0 {
			evt = evt.Int("item", e.Item)
		}
		if e.Item >= 0 || e.Kind == KindQueue || e.Kind == KindServe {
			evt = evt.Int("occupancy", e.Occupancy)
		}
		evt.Msg(e.Kind.String())
	})
}
