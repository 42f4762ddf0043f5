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
	"log/slog"
	"net/http"

	"github.com/orgsvc/orgsvc/internal/identity"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
	"github.com/orgsvc/orgsvc/internal/tenant"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error" example:"tenant not found"`
	Code  string `json:"error_code,omitempty" example:"not_found"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order; ErrInconsistent comes first because an inconsistent
// failure can also wrap a conflict or a transient cause.
var errorMappings = []errorMapping{
	{tenant.ErrInconsistent, http.StatusInternalServerError, "inconsistent", "storage is inconsistent; an operator has been alerted"},
	{tenant.ErrInvalidName, http.StatusBadRequest, "invalid_name", "organization name must be 3-50 characters of letters, digits and underscores"},
	{tenant.ErrTenantNotFound, http.StatusNotFound, "not_found", "organization not found"},
	{tenant.ErrTenantExists, http.StatusConflict, "conflict", "organization already exists"},
	{tenant.ErrConcurrentUpdate, http.StatusConflict, "conflict", "organization was modified concurrently; retry"},
	{tenant.ErrTransient, http.StatusServiceUnavailable, "transient", "storage temporarily unavailable; retry"},
	{identity.ErrEmailTaken, http.StatusConflict, "email_taken", "email already registered"},
	{identity.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email address"},
	{identity.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password must be at least 8 characters"},
	{identity.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{identity.ErrAdminInactive, http.StatusForbidden, "inactive", "admin account is disabled"},
	{identity.ErrAdminNotFound, http.StatusNotFound, "not_found", "admin not found"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "operation timed out"},
	{context.Canceled, http.StatusServiceUnavailable, "canceled", "request canceled"},
}

// tenantErrorStatus maps a domain error to a status code, a stable error
// code and a client-safe message.
func tenantErrorStatus(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, "internal", "internal server error"
}

// respondDomainError logs server-side failures and writes the mapped response.
func respondDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, message := tenantErrorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.Operation(op),
			logger.ErrorType(code),
			logger.Error(err),
		)
	}
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
