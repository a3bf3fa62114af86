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

// Package cmd contains the coordination command-line tool.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/field-eng-coordination/internal/logging"
	"github.com/cockroachdb/field-eng-coordination/scenario"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string // Path to config file
	logFile   string // Path to log file
	noLogging bool   // Turn off logging
	noColour  bool   // Turn off colour output
	verbose   bool   // Log every narration event
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "coordination",
	Short: "Classic concurrency coordination scenarios",
	Long: `coordination runs the dining philosophers, the sleeping barber and a
bounded-buffer producer/consumer, narrating what every worker does.

Settings are read from flags, COORD_ environment variables and an optional
config file, in that order of precedence.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.coordination.yaml)")
	flags.StringVar(&logFile, "log", "", "path to log file (default is stdout)")
	flags.BoolVar(&noLogging, "no-logging", false, "disable logging")
	flags.BoolVar(&noColour, "no-colour", false, "disable colour output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every event, not only the notable ones")
	flags.Duration("timeout", 0, "bound the barber and producer-consumer runs (0 for none)")
	mustBind("timeout", flags.Lookup("timeout"))
	flags.Duration("grace", 5*time.Second, "time allowed for workers to unwind after an interrupt")
	mustBind("shutdown_grace", flags.Lookup("grace"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".coordination")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("COORD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Reading %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

// loadConfig decodes the settings held by v over the defaults.
func loadConfig(v *viper.Viper) (scenario.Config, error) {
	cfg := scenario.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", scenario.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func newLogger() (*logging.Logger, error) {
	return logging.New(logging.Options{
		File:    logFile,
		Enabled: !noLogging,
		Colour:  !noColour,
		Verbose: verbose,
	})
}
