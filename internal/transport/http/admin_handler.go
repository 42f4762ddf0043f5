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
	"log/slog"
	"net/http"
	"time"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
)

// LoginRequest is the body of /admin/login
type LoginRequest struct {
	Email    string `json:"email" example:"admin@acme.com"`
	Password string `json:"password" example:"s3cretpass"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	AccessToken    string `json:"access_token"`
	TokenType      string `json:"token_type" example:"bearer"`
	ExpiresIn      int64  `json:"expires_in" example:"1800"`
	AdminID        string `json:"admin_id"`
	OrganizationID string `json:"organization_id"`
}

// ProfileResponse describes the signed-in admin and their organization
type ProfileResponse struct {
	AdminID          string     `json:"admin_id"`
	Email            string     `json:"email"`
	OrganizationID   string     `json:"organization_id"`
	OrganizationName string     `json:"organization_name,omitempty"`
	CollectionName   string     `json:"collection_name,omitempty"`
	IsActive         bool       `json:"is_active"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Login authenticates an admin and issues a bearer token
// @Summary Admin login
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Admin credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, "admin_login", err)
		return
	}

	token, err := h.sessionService.Issue(admin)
	if err != nil {
		respondDomainError(w, r, "admin_login", err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:        true,
		Message:        "login successful",
		AccessToken:    token.AccessToken,
		TokenType:      "bearer",
		ExpiresIn:      token.ExpiresIn,
		AdminID:        admin.ID,
		OrganizationID: admin.TenantID,
	})
}

// Profile returns the signed-in admin
// @Summary Admin profile
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin, err := h.identityService.GetAdmin(ctx, GetAdminID(ctx))
	if err != nil {
		respondDomainError(w, r, "admin_profile", err)
		return
	}

	resp := ProfileResponse{
		AdminID:        admin.ID,
		Email:          admin.Email,
		OrganizationID: admin.TenantID,
		IsActive:       admin.IsActive,
		LastLogin:      admin.LastLogin,
		CreatedAt:      admin.CreatedAt,
	}
	if t, err := h.callerTenant(ctx); err == nil {
		resp.OrganizationName = t.Name
		resp.CollectionName = t.StorageID
	} else {
		slog.DebugContext(ctx, "profile without active organization",
			logger.AdminID(admin.ID),
			logger.Error(err),
		)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout records the end of a session. Tokens are stateless and stay valid
// until they expire.
// @Summary Admin logout
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /admin/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	event := audit.Event{
		Type:     audit.TypeAdminLogout,
		TenantID: GetTenantID(ctx),
		Resource: "session",
		Outcome:  audit.OutcomeSuccess,
	}
	if t, err := h.callerTenant(ctx); err == nil {
		event.TenantName = t.Name
	}
	h.auditLogger.Log(ctx, event)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged out; discard the access token",
	})
}
