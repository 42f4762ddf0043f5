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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrAdminInactive      = errors.New("admin account is disabled")
)

// Admin is the single administrator credential of a tenant. A tenant's
// directory entry refers to it by ID.
type Admin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	TenantID     string     `json:"organization_id"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AdminRepository defines the interface for admin persistence
type AdminRepository interface {
	// Create stores a new admin; ErrEmailTaken if the email is in use.
	Create(ctx context.Context, admin *Admin) error

	GetByID(ctx context.Context, id string) (*Admin, error)

	GetByEmail(ctx context.Context, email string) (*Admin, error)

	// Update replaces email, password hash, tenant and active flag.
	Update(ctx context.Context, admin *Admin) error

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	Delete(ctx context.Context, id string) error

	Count(ctx context.Context) (int64, error)
}
