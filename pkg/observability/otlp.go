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
package observability

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
)

// OTLPSink exports spans to an OTLP/gRPC collector.
type OTLPSink struct {
	tracer     trace.Tracer
	provider   *sdktrace.TracerProvider
	sampleRate float64
}

// NewOTLPSink connects to the collector at endpoint (host:port). sampleRate
// in [0,1] drops a fraction of spans client-side; 1.0 keeps everything.
func NewOTLPSink(ctx context.Context, serviceName, endpoint string, sampleRate float64) (*OTLPSink, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &OTLPSink{
		tracer:     tp.Tracer("heddle"),
		provider:   tp,
		sampleRate: sampleRate,
	}, nil
}

// EmitSpan records a zero-duration span carrying the routing attributes.
// Nil values are dropped before export.
func (s *OTLPSink) EmitSpan(ctx context.Context, name string, attrs map[string]any) {
	if !s.sampled() {
		return
	}
	_, span := s.tracer.Start(ctx, name)
	for key, value := range attrs {
		if value == nil {
			continue
		}
		span.SetAttributes(toAttribute(key, value))
	}
	span.End()
}

// Flush exports buffered spans and shuts the provider down.
func (s *OTLPSink) Flush(ctx context.Context) error {
	if err := s.provider.ForceFlush(ctx); err != nil {
		log.Warn("telemetry flush failed", zap.Error(err))
		return err
	}
	return nil
}

// Shutdown stops the exporter.
func (s *OTLPSink) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}

func (s *OTLPSink) sampled() bool {
	if s.sampleRate >= 1.0 {
		return true
	}
	if s.sampleRate <= 0 {
		return false
	}
	return rand.Float64() < s.sampleRate
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

var _ SpanSink = (*OTLPSink)(nil)
