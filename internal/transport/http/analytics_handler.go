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

package http

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orgsvc/orgsvc/internal/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
	recentActivity    = 10
)

// DashboardResponse summarises the caller's organization
type DashboardResponse struct {
	Organization   OrganizationResponse `json:"organization"`
	Activity       ActivityCounts       `json:"activity"`
	DocumentCount  int64                `json:"document_count"`
	RecentActivity []audit.Event        `json:"recent_activity"`
	System         map[string]any       `json:"system"`
}

// ActivityCounts counts audit events over fixed windows
type ActivityCounts struct {
	Today    int64 `json:"today"`
	ThisWeek int64 `json:"this_week"`
	Total    int64 `json:"total"`
}

// Dashboard returns analytics for the caller's organization
// @Summary Organization dashboard
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DashboardResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /analytics/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	t, err := h.callerTenant(r.Context())
	if err != nil {
		respondDomainError(w, r, "dashboard", err)
		return
	}

	now := h.now().UTC()
	today := startOfDay(now)
	week := today.AddDate(0, 0, -7)

	var (
		resp DashboardResponse
		base = audit.Filter{TenantName: t.Name}
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		f := base
		f.Since = today
		n, err := h.auditStore.Count(ctx, f)
		resp.Activity.Today = n
		return err
	})
	g.Go(func() error {
		f := base
		f.Since = week
		n, err := h.auditStore.Count(ctx, f)
		resp.Activity.ThisWeek = n
		return err
	})
	g.Go(func() error {
		n, err := h.auditStore.Count(ctx, base)
		resp.Activity.Total = n
		return err
	})
	g.Go(func() error {
		n, err := h.tenantService.DocumentCount(ctx, t.Name)
		resp.DocumentCount = n
		return err
	})
	g.Go(func() error {
		f := base
		f.Limit = recentActivity
		events, err := h.auditStore.List(ctx, f)
		resp.RecentActivity = events
		return err
	})
	if err := g.Wait(); err != nil {
		respondDomainError(w, r, "dashboard", err)
		return
	}

	resp.Organization = organizationResponse("", t, "")
	resp.Organization.Success = false
	resp.System = uptime(h.info.StartedAt, now)
	respondJSON(w, http.StatusOK, resp)
}

// SystemMetrics returns service-wide counters
// @Summary System metrics
// @Tags Analytics
// @Produce json
// @Success 200 {object} map[string]any
// @Router /analytics/system [get]
func (h *Handler) SystemMetrics(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()

	var (
		tenants, admins, eventsTotal, eventsToday int64
		health                                    any
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		tenants, err = h.tenantService.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		admins, err = h.identityService.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		eventsTotal, err = h.auditStore.Count(ctx, audit.Filter{})
		return err
	})
	g.Go(func() (err error) {
		eventsToday, err = h.auditStore.Count(ctx, audit.Filter{Since: startOfDay(now)})
		return err
	})
	g.Go(func() error {
		details, err := h.health(ctx)
		if err != nil {
			health = map[string]string{"status": "unreachable", "error": err.Error()}
			return nil
		}
		health = details
		return nil
	})
	if err := g.Wait(); err != nil {
		respondDomainError(w, r, "system_metrics", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"organizations": map[string]int64{"total": tenants},
		"admin_users":   map[string]int64{"total": admins},
		"audit_events":  map[string]int64{"total": eventsTotal, "today": eventsToday},
		"database":      health,
		"uptime":        uptime(h.info.StartedAt, now),
		"service_info": map[string]string{
			"name":        h.info.Name,
			"version":     h.info.Version,
			"environment": h.info.Environment,
		},
	})
}

// PerformanceResponse reports timings of a directory query
type PerformanceResponse struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	Timestamp      time.Time         `json:"timestamp"`
	ResponseTimeMS float64           `json:"response_time_ms"`
	Database       DatabaseTiming    `json:"database"`
	Uptime         map[string]any    `json:"uptime"`
	Benchmarks     map[string]string `json:"benchmarks"`
}

// DatabaseTiming describes the store during a performance check
type DatabaseTiming struct {
	Status      string  `json:"status"`
	QueryTimeMS float64 `json:"query_time_ms"`
	Health      any     `json:"health"`
}

var performanceTargets = map[string]string{
	"avg_response_time_ms":   "< 100",
	"database_query_time_ms": "< 50",
	"uptime_target":          "99.9%",
}

// PerformanceMetrics times a directory count and a health check
// @Summary Performance metrics
// @Tags Analytics
// @Produce json
// @Success 200 {object} PerformanceResponse
// @Router /analytics/performance [get]
func (h *Handler) PerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	db := DatabaseTiming{Status: "healthy"}
	details, err := h.health(ctx)
	if err != nil {
		db.Status = "unreachable"
		details = map[string]string{"error": err.Error()}
	}
	db.Health = details

	queryStart := time.Now()
	if _, err := h.tenantService.Count(ctx); err != nil {
		respondDomainError(w, r, "performance_metrics", err)
		return
	}
	db.QueryTimeMS = millis(time.Since(queryStart))

	now := h.now().UTC()
	respondJSON(w, http.StatusOK, PerformanceResponse{
		Success:        true,
		Message:        "performance metrics retrieved successfully",
		Timestamp:      now,
		ResponseTimeMS: millis(time.Since(start)),
		Database:       db,
		Uptime:         uptime(h.info.StartedAt, now),
		Benchmarks:     performanceTargets,
	})
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// AuditLogsResponse is a page of the caller's audit trail
type AuditLogsResponse struct {
	Logs       []audit.Event     `json:"logs"`
	Pagination Pagination        `json:"pagination"`
	Filters    map[string]string `json:"filters"`
}

// Pagination describes a result page
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Skip    int   `json:"skip"`
	HasMore bool  `json:"has_more"`
}

// AuditLogs pages through the caller's audit trail
// @Summary Audit logs
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (1-1000)" default(50)
// @Param skip query int false "Events to skip" default(0)
// @Param action query string false "Only events of this action"
// @Success 200 {object} AuditLogsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /analytics/audit-logs [get]
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultAuditLimit)
	if err != nil || limit < 1 || limit > maxAuditLimit {
		respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	skip, err := intParam(q.Get("skip"), 0)
	if err != nil || skip < 0 {
		respondError(w, http.StatusBadRequest, "skip must be zero or greater")
		return
	}
	action := q.Get("action")

	t, err := h.callerTenant(r.Context())
	if err != nil {
		respondDomainError(w, r, "audit_logs", err)
		return
	}

	filter := audit.Filter{TenantName: t.Name, Type: action}

	var (
		events []audit.Event
		total  int64
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		page := filter
		page.Limit, page.Skip = limit, skip
		events, err = h.auditStore.List(ctx, page)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.auditStore.Count(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		respondDomainError(w, r, "audit_logs", err)
		return
	}

	respondJSON(w, http.StatusOK, AuditLogsResponse{
		Logs: events,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Skip:    skip,
			HasMore: int64(skip+len(events)) < total,
		},
		Filters: map[string]string{
			"organization_name": t.Name,
			"action":            action,
		},
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
