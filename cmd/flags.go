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
	"time"

	"github.com/cockroachdb/field-eng-coordination/delay"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// bindInt and friends define a flag and make it the source of the
// viper key when set.
func bindInt(fs *pflag.FlagSet, key, name string, value int, usage string) {
	fs.Int(name, value, usage)
	mustBind(key, fs.Lookup(name))
}

func bindString(fs *pflag.FlagSet, key, name, value, usage string) {
	fs.String(name, value, usage)
	mustBind(key, fs.Lookup(name))
}

func bindDuration(fs *pflag.FlagSet, key, name string, value time.Duration, usage string) {
	fs.Duration(name, value, usage)
	mustBind(key, fs.Lookup(name))
}

// bindRange defines a -min and a -max flag for a delay.Range.
func bindRange(fs *pflag.FlagSet, key, name string, value delay.Range, usage string) {
	bindDuration(fs, key+".min", name+"-min", value.Min, "shortest "+usage)
	bindDuration(fs, key+".max", name+"-max", value.Max, "longest "+usage)
}
