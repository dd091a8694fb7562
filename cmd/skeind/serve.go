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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teradata-labs/skein/pkg/hooks"
	skeinserver "github.com/teradata-labs/skein/pkg/server"
)

// serveCmd runs skeind as a long-lived process: it builds the runtime,
// serves /health and /metrics, and runs the session-manager's maintenance
// jobs, until SIGINT/SIGTERM. Narrowed to skein's subsystem list: no gRPC
// server, no MCP manager, no TLS manager, no Docker backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Skein agent runtime as a long-lived process",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func buildLogger() (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Encoding = cfg.Logging.Format
	if zapConfig.Encoding == "" {
		zapConfig.Encoding = "console"
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("skeind: invalid configuration: %w", err)
	}

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("skeind: build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.ConfigFileUsed != "" {
		logger.Info("config file loaded", zap.String("path", cfg.ConfigFileUsed))
	} else {
		logger.Info("no config file found, using defaults and environment variables")
	}

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("error closing event store", zap.Error(err))
		}
	}()

	maintenance := orchestrationMaintenance(rt, logger)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("skeind: start maintenance jobs: %w", err)
	}

	var watchCancel context.CancelFunc
	if cfg.Hooks.Dir != "" {
		watcher := hooks.NewDirectoryWatcher(cfg.Hooks.Dir, hooks.NewEngine(rt.store, "", logger), logger)
		if err := watcher.LoadAll(); err != nil {
			logger.Warn("failed to load hooks directory", zap.String("dir", cfg.Hooks.Dir), zap.Error(err))
		}
		var watchCtx context.Context
		watchCtx, watchCancel = context.WithCancel(context.Background())
		if err := watcher.Watch(watchCtx); err != nil {
			logger.Warn("failed to watch hooks directory", zap.String("dir", cfg.Hooks.Dir), zap.Error(err))
			watchCancel()
			watchCancel = nil
		} else {
			logger.Info("watching hooks directory", zap.String("dir", cfg.Hooks.Dir))
		}
	}

	metrics := skeinserver.NewMetrics()
	httpSrv := skeinserver.New(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		logger,
		func() skeinserver.HealthStatus {
			return skeinserver.HealthStatus{Status: "ok", ActiveSessions: rt.manager.ActiveSessionCount()}
		},
		metrics,
	)

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- httpSrv.Start() }()
	logger.Info("skeind listening", zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutting down gracefully... (press Ctrl+C again to force)")
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("health/metrics server failed", zap.Error(err))
		}
	}

	go func() {
		<-sigCh
		logger.Warn("force shutdown requested")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping health/metrics server", zap.Error(err))
	}
	if watchCancel != nil {
		watchCancel()
	}
	maintenance.Stop(shutdownCtx)
	if err := rt.manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session manager shutdown did not finish cleanly", zap.Error(err))
	}

	logger.Info("skeind stopped")
	return nil
}
