// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/skein/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd is the skeind base command: same cobra.OnInitialize(initConfig)
// pattern as a long-running daemon CLI, narrowed to skein's single
// gRPC-less health/metrics surface. Flag values are applied onto the
// loaded *Config directly in initConfig rather than via viper.BindPFlag
// against viper's global instance: internal/config.Load uses its own
// viper.New() instance (deliberately, for test isolation — see
// DESIGN.md), so binding flags to the global singleton would silently
// never reach it.
var rootCmd = &cobra.Command{
	Use:   "skeind",
	Short: "Skein agent runtime",
	Long:  `skeind runs the Skein event-sourced agent runtime: an event store, a turn loop, and a multi-session orchestrator.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml in $SKEIN_DATA_DIR or the current directory)")

	rootCmd.PersistentFlags().String("host", "127.0.0.1", "health/metrics server host")
	rootCmd.PersistentFlags().Int("port", 5360,"health/metrics server port")

	rootCmd.PersistentFlags().String("llm-provider", "anthropic", "LLM provider (anthropic, bedrock)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model (defaults to the provider's default model)")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or use ANTHROPIC_API_KEY)")

	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default: $SKEIN_DATA_DIR or ~/.skein)")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
}

// initConfig loads the merged file/env/default configuration into the
// package-global cfg, then applies any explicitly-set persistent flags on
// top — the highest-priority layer in the flags > env > file > defaults
// order, applied by direct field assignment rather than
// viper.BindPFlag (see DESIGN.md). Fatal on error: an unusable config
// means skeind cannot start.
func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skeind: loading configuration: %v\n", err)
		os.Exit(1)
	}

	flags := rootCmd.PersistentFlags()
	if v, _ := flags.GetString("data-dir"); v != "" {
		loaded.DataDir = v
	}
	if flags.Changed("host") {
		loaded.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		loaded.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("llm-provider") {
		loaded.LLM.DefaultProvider, _ = flags.GetString("llm-provider")
	}
	if flags.Changed("llm-model") {
		loaded.LLM.DefaultModel, _ = flags.GetString("llm-model")
	}
	if flags.Changed("anthropic-key") {
		loaded.LLM.AnthropicAPIKey, _ = flags.GetString("anthropic-key")
	}
	if flags.Changed("log-level") {
		loaded.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		loaded.Logging.Format, _ = flags.GetString("log-format")
	}

	cfg = loaded
}
