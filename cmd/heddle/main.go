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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/pipeline"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "heddle",
	Short:   "Heddle - complexity-aware LLM routing proxy",
	Long:    `Heddle fronts an Anthropic-compatible backend and routes each request to a cheap, mid, or expensive model based on task complexity, while enforcing per-repository documentation policy and guarding the upstream context window.`,
	Version: pipeline.BuildID(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./heddle.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
}

// loadConfig is shared by the subcommands: env file, config, logger.
func loadConfig() (*config.Config, error) {
	// Best-effort .env load, matching local-dev expectations.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Init(cfg.Logging.Level, cfg.Logging.Encoding)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
