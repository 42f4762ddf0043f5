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

// @title Organization Directory API
// @version 1.0.0
// @description Multi-tenant organization management with per-organization collections
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/swaggo/swag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/identity"
	"github.com/orgsvc/orgsvc/internal/session"
	"github.com/orgsvc/orgsvc/internal/tenant"
)

// HealthCheck reports storage health. It returns details to expose on
// /health and an error when storage is unreachable.
type HealthCheck func(ctx context.Context) (any, error)

// ServiceInfo describes the running build
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
	StartedAt   time.Time
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService   *tenant.Service
	identityService *identity.Service
	sessionService  *session.Service
	auditLogger     audit.Logger
	auditStore      audit.Store
	health          HealthCheck
	info            ServiceInfo
	now             func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	identityService *identity.Service,
	sessionService *session.Service,
	auditLogger audit.Logger,
	auditStore audit.Store,
	health HealthCheck,
	info ServiceInfo,
) *Handler {
	if health == nil {
		health = func(context.Context) (any, error) { return map[string]string{"status": "unknown"}, nil }
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	return &Handler{
		tenantService:   tenantService,
		identityService: identityService,
		sessionService:  sessionService,
		auditLogger:     auditLogger,
		auditStore:      auditStore,
		health:          health,
		info:            info,
		now:             time.Now,
	}
}

// RouterConfig holds router-level settings
type RouterConfig struct {
	RequestTimeout time.Duration
	Metrics        *HTTPMetrics
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware)
	r.Use(RequestInfoMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// System
	r.Get("/health", h.HealthCheck)
	r.Get("/ping", h.Ping)
	r.Get("/version", h.Version)
	r.Get("/swagger/doc.json", h.SwaggerDoc)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/org", func(r chi.Router) {
		r.Post("/create", h.CreateOrganization)
		r.Get("/get", h.GetOrganization)
		r.Get("/stats", h.OrganizationStats)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Put("/update", h.UpdateOrganization)
			r.Delete("/delete", h.DeleteOrganization)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/profile", h.Profile)
			r.Post("/logout", h.Logout)
		})
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/system", h.SystemMetrics)
		r.Get("/performance", h.PerformanceMetrics)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/audit-logs", h.AuditLogs)
		})
	})

	return r
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp"`
	Database  any       `json:"database"`
	Version   string    `json:"version" example:"1.0.0"`
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Pings the database and reports its statistics
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Version:   h.info.Version,
	}
	details, err := h.health(r.Context())
	if err != nil {
		resp.Status = "unhealthy"
		resp.Database = map[string]string{"status": "unreachable", "error": err.Error()}
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = details
	respondJSON(w, http.StatusOK, resp)
}

// Ping is a liveness check
// @Summary Ping
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "pong"})
}

// Version returns build information
// @Summary Version
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service":     h.info.Name,
		"version":     h.info.Version,
		"environment": h.info.Environment,
		"started_at":  h.info.StartedAt.Format(time.RFC3339),
	})
}

// SwaggerDoc serves the registered OpenAPI document
func (h *Handler) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		respondError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func uptime(since, now time.Time) map[string]any {
	d := now.Sub(since)
	return map[string]any{
		"started_at":     since.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(d.Seconds()),
		"uptime_human":   d.Truncate(time.Second).String(),
	}
}
