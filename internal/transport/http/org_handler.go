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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/identity"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
	"github.com/orgsvc/orgsvc/internal/tenant"
)

// OrganizationRequest is the body of create and update calls
type OrganizationRequest struct {
	OrganizationName string `json:"organization_name" example:"acme_corp"`
	Email            string `json:"email" example:"admin@acme.com"`
	Password         string `json:"password" example:"s3cretpass"`
}

// OrganizationResponse describes one organization
type OrganizationResponse struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	OrganizationID   string    `json:"organization_id,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	CollectionName   string    `json:"collection_name,omitempty"`
	AdminEmail       string    `json:"admin_email,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
}

func organizationResponse(message string, t *tenant.Tenant, adminEmail string) OrganizationResponse {
	if adminEmail == "" {
		adminEmail = t.AdminEmail
	}
	return OrganizationResponse{
		Success:          true,
		Message:          message,
		OrganizationID:   t.ID,
		OrganizationName: t.Name,
		CollectionName:   t.StorageID,
		AdminEmail:       adminEmail,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// CreateOrganization registers an organization and its admin
// @Summary Create organization
// @Description Creates the admin account, the directory entry and the organization's collection
// @Tags Organizations
// @Accept json
// @Produce json
// @Param request body OrganizationRequest true "Organization and admin credentials"
// @Success 201 {object} OrganizationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org/create [post]
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	name := tenant.NormalizeName(req.OrganizationName)
	if err := tenant.ValidateName(name); err != nil {
		respondDomainError(w, r, "create_organization", err)
		return
	}
	if err := identity.ValidateCredentials(req.Email, req.Password); err != nil {
		respondDomainError(w, r, "create_organization", err)
		return
	}
	// Fail fast before an admin account is provisioned for a taken name.
	if _, err := h.tenantService.Lookup(ctx, name); err == nil {
		respondDomainError(w, r, "create_organization", tenant.ErrTenantExists)
		return
	} else if !errors.Is(err, tenant.ErrTenantNotFound) {
		respondDomainError(w, r, "create_organization", err)
		return
	}

	admin, err := h.identityService.ProvisionAdmin(ctx, req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, "create_organization", err)
		return
	}

	t, err := h.tenantService.Create(ctx, tenant.CreateParams{
		Name:       name,
		AdminRef:   admin.ID,
		AdminEmail: admin.Email,
	})
	if err != nil {
		h.discardAdmin(ctx, admin.ID)
		respondDomainError(w, r, "create_organization", err)
		return
	}

	if err := h.identityService.AssignTenant(ctx, admin.ID, t.ID); err != nil {
		cctx := context.WithoutCancel(ctx)
		if derr := h.tenantService.Delete(cctx, t.Name); derr != nil {
			slog.ErrorContext(ctx, "failed to remove organization after admin assignment failed",
				logger.TenantName(t.Name),
				logger.Error(derr),
			)
		}
		h.discardAdmin(ctx, admin.ID)
		respondDomainError(w, r, "create_organization", err)
		return
	}

	respondJSON(w, http.StatusCreated, organizationResponse("organization created successfully", t, admin.Email))
}

// discardAdmin removes an admin provisioned for a create that did not complete.
func (h *Handler) discardAdmin(ctx context.Context, adminID string) {
	if err := h.identityService.DeleteAdmin(context.WithoutCancel(ctx), adminID); err != nil {
		slog.ErrorContext(ctx, "failed to remove admin after organization create failed",
			logger.AdminID(adminID),
			logger.Error(err),
		)
	}
}

// GetOrganization looks an organization up by name
// @Summary Get organization
// @Tags Organizations
// @Produce json
// @Param organization_name query string true "Organization name"
// @Success 200 {object} OrganizationResponse
// @Failure 404 {object} ErrorResponse
// @Router /org/get [get]
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("organization_name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "organization_name is required")
		return
	}

	t, err := h.tenantService.Lookup(r.Context(), name)
	if err != nil {
		respondDomainError(w, r, "get_organization", err)
		return
	}
	respondJSON(w, http.StatusOK, organizationResponse("organization retrieved successfully", t, ""))
}

// callerTenant resolves the active organization bound to the session.
func (h *Handler) callerTenant(ctx context.Context) (*tenant.Tenant, error) {
	tenantID := GetTenantID(ctx)
	if tenantID == "" {
		return nil, tenant.ErrTenantNotFound
	}
	t, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive() {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

// UpdateOrganization renames the caller's organization and replaces the admin credentials
// @Summary Update organization
// @Description Renaming migrates every document to the collection of the new name. A failed update leaves name and credentials unchanged.
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OrganizationRequest true "New name and admin credentials"
// @Success 200 {object} OrganizationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org/update [put]
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	newName := tenant.NormalizeName(req.OrganizationName)
	if err := tenant.ValidateName(newName); err != nil {
		respondDomainError(w, r, "update_organization", err)
		return
	}
	if err := identity.ValidateCredentials(req.Email, req.Password); err != nil {
		respondDomainError(w, r, "update_organization", err)
		return
	}

	t, err := h.callerTenant(ctx)
	if err != nil {
		respondDomainError(w, r, "update_organization", err)
		return
	}
	oldName := t.Name

	event := audit.Event{
		Type:       audit.TypeOrgUpdated,
		TenantID:   t.ID,
		TenantName: t.Name,
		Resource:   "admin_credentials",
		Metadata:   map[string]any{"renamed": newName != oldName},
	}
	fail := func(err error) {
		event.Outcome, event.Reason = outcomeOf(err), reasonOf(err)
		h.auditLogger.Log(ctx, event)
		respondDomainError(w, r, "update_organization", err)
	}

	// Email conflicts and hashing are settled before anything is migrated.
	change, err := h.identityService.PrepareCredentials(ctx, GetAdminID(ctx), req.Email, req.Password)
	if err != nil {
		fail(err)
		return
	}
	event.Metadata["email_changed"] = change.EmailChanged()

	if newName != oldName {
		t, err = h.tenantService.Rename(ctx, oldName, newName)
		if err != nil {
			fail(err)
			return
		}
		event.TenantName = t.Name
	}

	admin, err := h.identityService.ApplyCredentials(ctx, change)
	if err != nil {
		if t.Name != oldName {
			err = h.revertRename(ctx, t.Name, oldName, err)
			event.TenantName = oldName
		}
		fail(err)
		return
	}

	if t.AdminEmail != admin.Email {
		updated, err := h.tenantService.UpdateAdminEmail(ctx, t.Name, admin.Email)
		if err != nil {
			slog.WarnContext(ctx, "admin credentials updated but organization keeps the previous admin email",
				logger.TenantName(t.Name),
				logger.AdminID(admin.ID),
				logger.Error(err),
			)
		} else {
			t = updated
		}
	}

	event.Outcome = audit.OutcomeSuccess
	h.auditLogger.Log(ctx, event)
	respondJSON(w, http.StatusOK, organizationResponse("organization updated successfully", t, admin.Email))
}

// revertRename moves an organization back to its previous name after a
// later step of an update failed. If that fails too the caller sees an
// inconsistent outcome naming the committed rename.
func (h *Handler) revertRename(ctx context.Context, from, to string, cause error) error {
	if _, err := h.tenantService.Rename(context.WithoutCancel(ctx), from, to); err != nil {
		slog.ErrorContext(ctx, "failed to restore organization name after credential update failed",
			logger.ErrorType("inconsistent"),
			logger.String("old_name", to),
			logger.String("new_name", from),
			logger.Error(err),
		)
		return fmt.Errorf("%w: organization renamed to %s but credentials were not updated: %w", tenant.ErrInconsistent, from, cause)
	}
	return cause
}

// DeleteOrganization removes the caller's organization, its data and its admin
// @Summary Delete organization
// @Description Irreversible. The directory entry goes first; the collection drop is best-effort.
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param organization_name query string true "Organization name"
// @Success 200 {object} OrganizationResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /org/delete [delete]
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("organization_name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "organization_name is required")
		return
	}

	ctx := r.Context()
	t, err := h.tenantService.Lookup(ctx, name)
	if err != nil {
		respondDomainError(w, r, "delete_organization", err)
		return
	}
	if t.ID != GetTenantID(ctx) {
		respondError(w, http.StatusForbidden, "you can only delete your own organization")
		return
	}

	if err := h.tenantService.Delete(ctx, t.Name); err != nil {
		respondDomainError(w, r, "delete_organization", err)
		return
	}

	if err := h.identityService.DeleteAdmin(context.WithoutCancel(ctx), GetAdminID(ctx)); err != nil && !errors.Is(err, identity.ErrAdminNotFound) {
		slog.WarnContext(ctx, "organization deleted but admin removal failed",
			logger.TenantName(t.Name),
			logger.AdminID(GetAdminID(ctx)),
			logger.Error(err),
		)
	}

	respondJSON(w, http.StatusOK, OrganizationResponse{
		Success:          true,
		Message:          "organization deleted successfully",
		OrganizationID:   t.ID,
		OrganizationName: t.Name,
	})
}

// StatsResponse summarises the whole directory
type StatsResponse struct {
	TotalOrganizations  int64                  `json:"total_organizations"`
	TotalAdminUsers     int64                  `json:"total_admin_users"`
	RecentOrganizations []OrganizationResponse `json:"recent_organizations"`
	DatabaseHealth      any                    `json:"database_health"`
}

// OrganizationStats returns system-wide organization statistics
// @Summary Organization statistics
// @Tags Organizations
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /org/stats [get]
func (h *Handler) OrganizationStats(w http.ResponseWriter, r *http.Request) {
	var (
		stats  *tenant.Stats
		admins int64
		health any
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats, err = h.tenantService.Stats(ctx, 5)
		return err
	})
	g.Go(func() error {
		var err error
		admins, err = h.identityService.Count(ctx)
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
		respondDomainError(w, r, "organization_stats", err)
		return
	}

	recent := make([]OrganizationResponse, 0, len(stats.Recent))
	for _, t := range stats.Recent {
		o := organizationResponse("", t, "")
		o.Success, o.Message = false, ""
		recent = append(recent, o)
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		TotalOrganizations:  stats.TotalTenants,
		TotalAdminUsers:     admins,
		RecentOrganizations: recent,
		DatabaseHealth:      health,
	})
}

func outcomeOf(err error) string {
	if err != nil {
		return audit.OutcomeFailure
	}
	return audit.OutcomeSuccess
}

func reasonOf(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
