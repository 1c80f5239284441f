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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/observability"
	"github.com/teradata-labs/heddle/pkg/upstream"
)

func TestBuildProxySharesUpstreamClient(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Session.Dir = t.TempDir()

	client := upstream.NewClient(upstream.Config{})
	state, srv := buildProxy(cfg, client, observability.NewNoopSink(),
		observability.NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = state.Close() })

	// The classifier and the forwarding path share one connection pool.
	assert.Same(t, client, srv.upstream)
	assert.Same(t, state, srv.state)
}
