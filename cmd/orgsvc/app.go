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
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/config"
	"github.com/orgsvc/orgsvc/internal/identity"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
	"github.com/orgsvc/orgsvc/internal/observability/metrics"
	"github.com/orgsvc/orgsvc/internal/observability/tracing"
	"github.com/orgsvc/orgsvc/internal/session"
	"github.com/orgsvc/orgsvc/internal/store/memory"
	"github.com/orgsvc/orgsvc/internal/store/mongodb"
	"github.com/orgsvc/orgsvc/internal/tenant"
	transportHTTP "github.com/orgsvc/orgsvc/internal/transport/http"
)

// app holds the wired services shared by every command.
type app struct {
	cfg        *config.Config
	db         *mongodb.DB
	tenants    *tenant.Service
	identity   *identity.Service
	sessions   *session.Service
	audit      audit.Logger
	auditStore audit.Store
	health     transportHTTP.HealthCheck
	tracer     *tracing.Provider
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTelBridge:  cfg.Observability.OTELEnabled,
	})

	a := &app{cfg: cfg}

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Environment,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	a.tracer = tracer

	meter := metrics.New(metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	instruments, err := metrics.NewTenantInstruments(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant instruments: %w", err)
	}

	var (
		tenantRepo tenant.Repository
		storage    tenant.Storage
		adminRepo  identity.AdminRepository
	)
	switch cfg.Store.Driver {
	case config.StoreMongo:
		db, err := mongodb.New(ctx, mongodb.Config{
			URI:           cfg.Store.MongoURL,
			Database:      cfg.Store.Database,
			Timeout:       cfg.Store.Timeout,
			MaxPoolSize:   cfg.Store.MaxPoolSize,
			CopyBatchSize: cfg.Store.CopyBatchSize,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", logger.Component("store"), logger.String("database", cfg.Store.Database))
		a.db = db
		tenantRepo = mongodb.NewTenantRepository(db)
		storage = mongodb.NewCollectionStore(db)
		adminRepo = mongodb.NewAdminRepository(db)
		a.auditStore = mongodb.NewAuditRepository(db)
		a.health = func(ctx context.Context) (any, error) {
			stats, err := db.Health(ctx)
			if err != nil {
				return nil, err
			}
			return stats, nil
		}
	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on restart", logger.Component("store"))
		tenantRepo = memory.NewTenantRepository()
		storage = memory.NewCollectionStore()
		adminRepo = memory.NewAdminRepository()
		a.auditStore = memory.NewAuditStore()
		a.health = func(context.Context) (any, error) {
			return map[string]string{"status": "healthy", "driver": config.StoreMemory}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	a.audit = audit.NewMultiLogger(audit.NewSlogLogger(), audit.NewStoreLogger(a.auditStore))

	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	a.identity = identity.NewService(adminRepo, hasher, a.audit)

	a.sessions, err = session.NewService(session.Config{
		Secret: cfg.JWT.SecretKey,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		return nil, err
	}

	a.tenants = tenant.NewService(tenantRepo, storage, a.audit,
		tenant.WithRecorder(instruments),
		tenant.WithOperationTimeout(cfg.Tenant.MigrationTimeout),
		tenant.WithReconcileGrace(cfg.Tenant.ReconcileGrace),
	)
	return a, nil
}

// close releases the database connection and flushes traces.
func (a *app) close(ctx context.Context) error {
	var result *multierror.Error
	if a.db != nil {
		if err := a.db.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close database: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return result.ErrorOrNil()
}
