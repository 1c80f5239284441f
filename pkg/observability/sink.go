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
// Package observability exports routing telemetry.
//
// The pipeline never branches on backend identity: sinks implement the
// SpanSink capability and a no-op implementation stands in when telemetry
// is disabled or its backend is unreachable.
package observability

import "context"

// SpanSink receives one completed telemetry span per routed request.
//
// Thread-safe: EmitSpan may be called from concurrent request handlers.
type SpanSink interface {
	// EmitSpan records a span with the given name and attributes.
	// Nil-valued attributes are dropped. Implementations must never block
	// the response path on export; failures are logged and swallowed.
	EmitSpan(ctx context.Context, name string, attrs map[string]any)

	// Flush forces export of buffered spans. Called on graceful shutdown.
	Flush(ctx context.Context) error
}

// NoopSink discards all spans. Used when telemetry is disabled and in
// tests.
type NoopSink struct{}

// NewNoopSink creates a sink that does nothing.
func NewNoopSink() *NoopSink { return &NoopSink{} }

// EmitSpan does nothing.
func (s *NoopSink) EmitSpan(ctx context.Context, name string, attrs map[string]any) {}

// Flush does nothing.
func (s *NoopSink) Flush(ctx context.Context) error { return nil }

var _ SpanSink = (*NoopSink)(nil)

// CaptureSink retains emitted spans in memory. Tests only.
type CaptureSink struct {
	Spans []CapturedSpan
}

// CapturedSpan is one recorded emission.
type CapturedSpan struct {
	Name  string
	Attrs map[string]any
}

// EmitSpan appends the span to Spans.
func (s *CaptureSink) EmitSpan(ctx context.Context, name string, attrs map[string]any) {
	s.Spans = append(s.Spans, CapturedSpan{Name: name, Attrs: attrs})
}

// Flush does nothing.
func (s *CaptureSink) Flush(ctx context.Context) error { return nil }

var _ SpanSink = (*CaptureSink)(nil)
