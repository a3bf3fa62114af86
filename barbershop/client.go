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

package barbershop

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/field-eng-coordination/invariant"
)

// ClientState tracks a client through the shop.
type ClientState int32

// Served and Rejected are terminal.
const (
	Arrived ClientState = iota
	Queued
	Rejected
	InService
	Served
)

func (s ClientState) String() string {
	switch s {
	case Arrived:
		return "arrived"
	case Queued:
		return "queued"
	case Rejected:
		return "rejected"
	case InService:
		return "in-service"
	case Served:
		return "served"
	default:
		return fmt.Sprintf("client-state(%d)", int32(s))
	}
}

// Client is one visitor. Its done channel is closed when its haircut is
// finished.
type Client struct {
	id    int
	state atomic.Int32
	done  chan struct{}
}

// NewClient returns a client that has just arrived.
func NewClient(id int) *Client {
	return &Client{id: id, done: make(chan struct{})}
}

// ID returns the client's identifier.
func (c *Client) ID() int { return c.id }

// State returns the client's current state.
func (c *Client) State() ClientState { return ClientState(c.state.Load()) }

// Done is closed once the client has been served.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) transition(from, to ClientState) {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		invariant.Checkf(false, "client %d: %s -> %s from state %s", c.id, from, to, c.State())
	}
	if to == Served {
		close(c.done)
	}
}
