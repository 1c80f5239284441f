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

// Package pipeline sequences the request stages: repo-context resolution,
// context-exhaustion guarding, policy enforcement, complexity
// classification, and model rewriting. All shared state lives on State,
// constructed once at startup and safe for concurrent requests.
package pipeline

import (
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teradata-labs/heddle/internal/csync"
	"github.com/teradata-labs/heddle/pkg/capture"
	"github.com/teradata-labs/heddle/pkg/classifier"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/contextguard"
	"github.com/teradata-labs/heddle/pkg/observability"
	"github.com/teradata-labs/heddle/pkg/override"
	"github.com/teradata-labs/heddle/pkg/policy"
	"github.com/teradata-labs/heddle/pkg/registry"
	"github.com/teradata-labs/heddle/pkg/session"
)

// routerName identifies this router in metadata and telemetry.
const routerName = "heddle_v1"

// sideCacheTTL bounds how long a stashed metadata bundle waits for its
// post-call hook.
const sideCacheTTL = 300 * time.Second

// State holds every store the pipeline touches. One State per process;
// tests construct a fresh one per case.
type State struct {
	cfg        *config.Config
	registry   *registry.Registry
	sessions   *session.Store
	overrides  *override.Store
	classifier *classifier.Classifier
	contracts  *policy.Loader
	guard      *contextguard.Guard
	sideCache  *csync.TTLMap[string, map[string]string]
	capturer   *capture.Capturer
	sink       observability.SpanSink
	metrics    *observability.Metrics
	buildID    string
}

// Options carries the injectable pieces of a State. Zero values select
// safe defaults: a no-op telemetry sink, throwaway metrics, and the
// deterministic token estimator.
type Options struct {
	Upstream  classifier.Upstream
	Sink      observability.SpanSink
	Metrics   *observability.Metrics
	Estimator contextguard.Estimator
}

// New constructs the pipeline state from configuration.
func New(cfg *config.Config, opts Options) *State {
	sink := opts.Sink
	if sink == nil {
		sink = observability.NewNoopSink()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	var capturer *capture.Capturer
	if cfg.Capture.Enabled {
		capturer = capture.New(cfg.Capture.Dir)
	}
	return &State{
		cfg:        cfg,
		registry:   registry.New(),
		sessions:   session.NewStore(cfg.Session),
		overrides:  override.NewStore(),
		classifier: classifier.New(cfg.Models, cfg.Classifier, opts.Upstream),
		contracts:  policy.NewLoader(),
		guard:      contextguard.New(cfg.Guard, opts.Estimator),
		sideCache:  csync.NewTTLMap[string, map[string]string](sideCacheTTL),
		capturer:   capturer,
		sink:       sink,
		metrics:    metrics,
		buildID:    BuildID(),
	}
}

// Registry exposes the repo registry for host endpoints.
func (s *State) Registry() *registry.Registry { return s.registry }

// Sessions exposes the session store for host endpoints and janitors.
func (s *State) Sessions() *session.Store { return s.sessions }

// Overrides exposes the override store.
func (s *State) Overrides() *override.Store { return s.overrides }

// Classifier exposes the classifier, mainly for the standalone sweep.
func (s *State) Classifier() *classifier.Classifier { return s.classifier }

// BuildID returns a short identifier for the running build: the VCS
// revision when stamped, otherwise "dev". It travels in request metadata
// so routed traffic can be correlated with a deploy.
func BuildID() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
			return setting.Value[:12]
		}
	}
	return "dev"
}

// Close releases the contract watcher and flushes nothing else; stores
// are in-memory.
func (s *State) Close() error {
	return s.contracts.Close()
}
