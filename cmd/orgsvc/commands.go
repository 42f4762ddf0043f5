// Copyright 2026 The Orgsvc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
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
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/orgsvc/orgsvc/docs"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
	transportHTTP "github.com/orgsvc/orgsvc/internal/transport/http"
)

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			slog.Error("shutdown cleanup failed", logger.Error(err))
		}
	}()

	if a.db != nil {
		if err := a.db.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}

	docs.SwaggerInfo.Version = cfg.Observability.ServiceVersion

	handler := transportHTTP.NewHandler(
		a.tenants,
		a.identity,
		a.sessions,
		a.audit,
		a.auditStore,
		a.health,
		transportHTTP.ServiceInfo{
			Name:        cfg.Observability.ServiceName,
			Version:     cfg.Observability.ServiceVersion,
			Environment: cfg.Environment,
			StartedAt:   time.Now().UTC(),
		},
	)
	router := transportHTTP.NewRouter(handler, transportHTTP.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        transportHTTP.NewHTTPMetrics(cfg.Observability.ServiceName),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server",
			logger.Component("server"),
			logger.Operation("listen"),
			logger.String("addr", server.Addr),
			logger.String("store", cfg.Store.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runEnsureIndexes(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	if a.db == nil {
		slog.Info("in-memory store has no indexes to create")
		return nil
	}
	if err := a.db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	slog.Info("indexes ensured", logger.String("database", cfg.Store.Database))
	return nil
}

func runReconcile(ctx context.Context, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	report, err := a.tenants.Reconcile(ctx, dryRun)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}
