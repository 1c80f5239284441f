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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/heddle/internal/log"
	"github.com/teradata-labs/heddle/pkg/config"
	"github.com/teradata-labs/heddle/pkg/contextguard"
	"github.com/teradata-labs/heddle/pkg/observability"
	"github.com/teradata-labs/heddle/pkg/pipeline"
	"github.com/teradata-labs/heddle/pkg/session"
	"github.com/teradata-labs/heddle/pkg/types"
	"github.com/teradata-labs/heddle/pkg/upstream"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the routing proxy HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8090", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink observability.SpanSink = observability.NewNoopSink()
	if cfg.Telemetry.OTLPEndpoint != "" {
		otlp, err := observability.NewOTLPSink(ctx, "heddle", cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.SampleRate)
		if err != nil {
			if cfg.Telemetry.FailFast {
				return fmt.Errorf("telemetry sink: %w", err)
			}
			log.Warn("telemetry sink unavailable, continuing without", zap.Error(err))
		} else {
			sink = otlp
			defer func() { _ = otlp.Shutdown(context.Background()) }()
		}
	}

	client := upstream.NewClient(upstream.Config{})
	state, srv := buildProxy(cfg, client, sink, observability.NewMetrics(prometheus.DefaultRegisterer))
	defer func() { _ = state.Close() }()

	janitor := session.StartJanitor(state.Sessions(), "@every 1h")
	defer janitor.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", srv.handleCompletion)
	mux.HandleFunc("POST /v1/messages", srv.handleCompletion)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("heddle listening", zap.String("addr", listenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// server adapts HTTP to the pipeline hooks.
type server struct {
	state    *pipeline.State
	upstream *upstream.Client
}

func newServer(state *pipeline.State, up *upstream.Client) *server {
	return &server{state: state, upstream: up}
}

// buildProxy wires the pipeline state and the HTTP adapter around one
// shared upstream client, so the classifier and the forwarding path reuse
// a single connection pool.
func buildProxy(cfg *config.Config, client *upstream.Client, sink observability.SpanSink, metrics *observability.Metrics) (*pipeline.State, *server) {
	state := pipeline.New(cfg, pipeline.Options{
		Upstream:  client,
		Sink:      sink,
		Metrics:   metrics,
		Estimator: contextguard.EstimatorFor(cfg.Guard.Estimator),
	})
	return state, newServer(state, client)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"build":  pipeline.BuildID(),
	})
}

func (s *server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req types.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	req.CallType = types.CallTypeCompletion
	req.Headers = make(map[string]string, len(r.Header))
	for key := range r.Header {
		req.Headers[key] = r.Header.Get(key)
	}

	ctx := session.WithID(r.Context(), session.ExtractID(req.Meta(types.MetaUserID)))

	start := time.Now()
	routed, err := s.state.PreCall(ctx, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if routed.SkipUpstream {
		writeJSON(w, http.StatusOK, routed.Synthetic)
		return
	}

	resp, err := s.upstream.Complete(ctx, routed)
	if err != nil {
		log.Error("upstream call failed", zap.Error(err))
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}

	s.state.PostCall(ctx, pipeline.PostCallInfo{
		Request:  routed,
		Response: resp,
		Start:    start,
		End:      time.Now(),
	})
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode response", zap.Error(err))
	}
}
