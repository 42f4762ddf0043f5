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

	"github.com/orgsvc/orgsvc/internal/session"
)

type contextKey string

const (
	adminIDKey  contextKey = "admin_id"
	tenantIDKey contextKey = "tenant_id"
	emailKey    contextKey = "admin_email"
)

func withClaims(ctx context.Context, claims *session.Claims) context.Context {
	ctx = context.WithValue(ctx, adminIDKey, claims.AdminID)
	ctx = context.WithValue(ctx, tenantIDKey, claims.TenantID)
	return context.WithValue(ctx, emailKey, claims.Email)
}

// GetAdminID retrieves the authenticated admin ID from context.
func GetAdminID(ctx context.Context) string {
	if val, ok := ctx.Value(adminIDKey).(string); ok {
		return val
	}
	return ""
}

// GetTenantID retrieves the tenant ID carried by the session token.
func GetTenantID(ctx context.Context) string {
	if val, ok := ctx.Value(tenantIDKey).(string); ok {
		return val
	}
	return ""
}

// GetAdminEmail retrieves the authenticated admin email from context.
func GetAdminEmail(ctx context.Context) string {
	if val, ok := ctx.Value(emailKey).(string); ok {
		return val
	}
	return ""
}
