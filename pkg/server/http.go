// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package server serves the skeind process's /health and /metrics
// endpoints: a net/http server with a Start/Stop lifecycle and a logger,
// narrowed to the two endpoints SPEC_FULL.md §6 names — no gRPC-gateway
// proxying, CORS, or Swagger UI, since skeind exposes no gRPC/REST API
// surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthStatus is the JSON body served at /health.
type HealthStatus struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// HealthFunc reports the current health status. Supplied by the caller
// (cmd/skeind) so pkg/server has no dependency on pkg/orchestration.
type HealthFunc func() HealthStatus

// Server serves /health and /metrics over HTTP.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	health     HealthFunc
	metrics    *Metrics
}

// New builds a Server listening on addr. health is called on every
// /health request; metrics (if non-nil) is exposed at /metrics in
// Prometheus text exposition format.
func New(addr string, logger *zap.Logger, health HealthFunc, metrics *Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if health == nil {
		health = func() HealthStatus { return HealthStatus{Status: "ok"} }
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:  logger,
		health:  health,
		metrics: metrics,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Start blocks serving HTTP until the server is stopped or fails.
func (s *Server) Start() error {
	s.logger.Info("starting health/metrics server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen and serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping health/metrics server")
	return s.httpServer.Shutdown(ctx)
}
