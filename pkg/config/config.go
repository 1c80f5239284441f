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
// Package config loads heddle configuration.
//
// Priority: config file > environment variables > defaults. Every knob is
// reachable through a LITELLM_* environment variable so the core can run
// inside hosts that only pass environment through.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "LITELLM"

// ModelMap maps complexity tiers to concrete model names. The classifier
// model always equals the cheap tier.
type ModelMap struct {
	Cheap     string `mapstructure:"model_simple"`
	Mid       string `mapstructure:"model_moderate"`
	Expensive string `mapstructure:"model_complex"`
}

// SessionConfig controls the session store.
type SessionConfig struct {
	// MemoryTTL bounds the in-memory session cache (seconds).
	MemoryTTL int `mapstructure:"repo_session_ttl"`
	// Dir is the disk session directory.
	Dir string `mapstructure:"session_dir"`
	// FileTTL bounds disk session files by mtime (seconds).
	FileTTL int `mapstructure:"session_ttl"`
}

// OverrideConfig bounds session-scoped complexity overrides.
type OverrideConfig struct {
	DefaultTTLMinutes int `mapstructure:"override_default_ttl"`
	MaxTTLMinutes     int `mapstructure:"override_max_ttl"`
}

// GuardConfig holds the context-exhaustion thresholds, all in estimated
// tokens.
type GuardConfig struct {
	SoftLimit           int `mapstructure:"context_soft_limit"`
	HardLimit           int `mapstructure:"context_hard_limit"`
	BlockLimit          int `mapstructure:"context_block_limit"`
	DuplicateMin        int `mapstructure:"context_dup_min"`
	EnforcementOverhead int `mapstructure:"enforcement_overhead"`
	// Estimator names the token estimator: "heuristic" or "tiktoken".
	Estimator string `mapstructure:"token_estimator"`
}

// CaptureConfig controls on-disk request snapshotting.
type CaptureConfig struct {
	Enabled bool   `mapstructure:"capture_requests"`
	Dir     string `mapstructure:"capture_dir"`
}

// ClassifierConfig bounds the classification cache.
type ClassifierConfig struct {
	CacheTTL  int `mapstructure:"classify_cache_ttl"`
	CacheSize int `mapstructure:"classify_cache_size"`
}

// TelemetryConfig selects and tunes the telemetry sink.
type TelemetryConfig struct {
	// OTLPEndpoint enables the OTLP exporter when non-empty.
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"trace_sample_rate"`
	// FailFast aborts startup when the sink is requested but unreachable.
	// Off means the sink is silently disabled.
	FailFast bool `mapstructure:"telemetry_fail_fast"`
}

// LoggingConfig tunes the zap logger.
type LoggingConfig struct {
	Level    string `mapstructure:"log_level"`
	Encoding string `mapstructure:"log_encoding"`
}

// Config is the full heddle configuration.
type Config struct {
	Models     ModelMap         `mapstructure:",squash"`
	Session    SessionConfig    `mapstructure:",squash"`
	Override   OverrideConfig   `mapstructure:",squash"`
	Guard      GuardConfig      `mapstructure:",squash"`
	Capture    CaptureConfig    `mapstructure:",squash"`
	Classifier ClassifierConfig `mapstructure:",squash"`
	Telemetry  TelemetryConfig  `mapstructure:",squash"`
	Logging    LoggingConfig    `mapstructure:",squash"`

	// LedgerRepos is the raw enforcement set: comma list or "*".
	LedgerRepos string `mapstructure:"ledger_repos"`
}

// Model returns the model name for a tier, defaulting to the cheap model.
func (m ModelMap) Model(tier string) string {
	switch strings.ToUpper(tier) {
	case "COMPLEX":
		return m.Expensive
	case "MODERATE":
		return m.Mid
	default:
		return m.Cheap
	}
}

// Classifier returns the model the classifier calls (the cheap tier).
func (m ModelMap) Classifier() string { return m.Cheap }

// LedgerApplies reports whether the ledger enforcement set contains repo.
// The empty set and "*" apply to every repo.
func (c *Config) LedgerApplies(repo string) bool {
	raw := strings.TrimSpace(c.LedgerRepos)
	if raw == "" || raw == "*" {
		return true
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == "*" {
			continue
		}
		if strings.EqualFold(entry, repo) {
			return true
		}
	}
	return false
}

// MemoryTTLDuration returns the in-memory session TTL as a duration.
func (s SessionConfig) MemoryTTLDuration() time.Duration {
	return time.Duration(s.MemoryTTL) * time.Second
}

// FileTTLDuration returns the disk session TTL as a duration.
func (s SessionConfig) FileTTLDuration() time.Duration {
	return time.Duration(s.FileTTL) * time.Second
}

// Load reads configuration from an optional file plus LITELLM_* environment
// variables. cfgFile may be empty; a missing default config file is not an
// error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/heddle/")
		v.SetConfigName("heddle")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_simple", "claude-haiku-4-5")
	v.SetDefault("model_moderate", "claude-sonnet-4-5")
	v.SetDefault("model_complex", "claude-opus-4-5")

	v.SetDefault("capture_requests", false)
	v.SetDefault("capture_dir", "/tmp/litellm_requests")

	v.SetDefault("repo_session_ttl", 7200)
	v.SetDefault("session_dir", "/tmp/claude_sessions")
	v.SetDefault("session_ttl", 10800)

	v.SetDefault("override_default_ttl", 5)
	v.SetDefault("override_max_ttl", 60)

	v.SetDefault("context_soft_limit", 180000)
	v.SetDefault("context_hard_limit", 200000)
	v.SetDefault("context_block_limit", 12000)
	v.SetDefault("context_dup_min", 800)
	v.SetDefault("enforcement_overhead", 400)
	v.SetDefault("token_estimator", "heuristic")

	v.SetDefault("ledger_repos", "*")

	v.SetDefault("classify_cache_ttl", 3600)
	v.SetDefault("classify_cache_size", 1000)

	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("trace_sample_rate", 1.0)
	v.SetDefault("telemetry_fail_fast", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "console")
}
