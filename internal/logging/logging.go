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

// Package logging builds the command-line tool's logger.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Options mirror the root command's logging flags.
type Options struct {
	File    string // Empty for standard output.
	Enabled bool
	Colour  bool
	Verbose bool // Include narration at debug level.
}

// Logger is a zerolog.Logger together with the cleanup of its output.
type Logger struct {
	zerolog.Logger
	Cleanup func()
}

// New opens the log output described by opts. The colour setting also
// applies to [color] output elsewhere in the process.
func New(opts Options) (*Logger, error) {
	color.NoColor = !opts.Colour
	if !opts.Enabled {
		return &Logger{Logger: zerolog.Nop(), Cleanup: func() {}}, nil
	}

	var out io.Writer = os.Stdout
	cleanup := func() {}
	if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		buf := bufio.NewWriter(f)
		out = buf
		cleanup = func() {
			if err := buf.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "flush %s: %v\n", opts.File, err)
			}
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "close %s: %v\n", opts.File, err)
			}
		}
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return &Logger{
		Logger:  NewConsole(out, opts.Colour && opts.File == "").Level(level),
		Cleanup: cleanup,
	}, nil
}

// NewConsole returns a human-readable logger writing to w.
func NewConsole(w io.Writer, colour bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colour,
		TimeFormat: "15:04:05.000",
	}).With().Timestamp().Logger()
}

// Elapsed formats a duration for log fields.
func Elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
