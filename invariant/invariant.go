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

// Package invariant reports broken internal invariants of the
// coordination primitives.
//
// A violation is always a programming error. Primitives call [Checkf],
// which panics with a [*Violation]; worker goroutines run their bodies
// through [Call], which turns the panic back into an error so that the
// owning scenario can stop and report the failure.
package invariant

import (
	"errors"
	"fmt"
)

// ErrViolation is matched by every [*Violation] via [errors.Is].
var ErrViolation = errors.New("invariant violation")

// Violation describes a broken invariant.
type Violation struct {
	What string
}

// Error implements error.
func (v *Violation) Error() string { return "invariant violation: " + v.What }

// Is allows errors.Is(err, ErrViolation).
func (v *Violation) Is(target error) bool { return target == ErrViolation }

// Checkf panics with a [*Violation] if cond is false.
func Checkf(cond bool, format string, args ...any) {
	if !cond {
		panic(&Violation{What: fmt.Sprintf(format, args...)})
	}
}

// Call invokes the function with a panic handler. A recovered error is
// returned as-is; any other recovered value is wrapped.
func Call(fn func() error) (err error) {
	defer func() {
		x := recover()
		switch t := x.(type) {
		case nil:
		// Success.
		case error:
			err = t
		default:
			err = fmt.Errorf("panic in worker: %v", t)
		}
	}()

	return fn()
}
