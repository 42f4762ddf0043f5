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
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/id"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
)

const minPasswordLength = 8

// Service provides admin credential business logic
type Service struct {
	repo        AdminRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new identity service
func NewService(repo AdminRepository, hasher *PasswordHasher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// ProvisionAdmin creates an active admin that is not yet attached to a tenant.
func (s *Service) ProvisionAdmin(ctx context.Context, email, password string) (*Admin, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrAdminNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	admin := &Admin{
		ID:           id.NewUUIDv7(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

// AssignTenant records which tenant the admin manages.
func (s *Service) AssignTenant(ctx context.Context, adminID, tenantID string) error {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	admin.TenantID = tenantID
	admin.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, admin)
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:       audit.TypeAdminLoginFailed,
			ActorEmail: email,
			Resource:   "login",
			Outcome:    audit.OutcomeFailure,
			Reason:     "admin_not_found",
		})
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, admin.PasswordHash)
	if err != nil || !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:       audit.TypeAdminLoginFailed,
			TenantID:   admin.TenantID,
			ActorID:    admin.ID,
			ActorEmail: admin.Email,
			Resource:   "login",
			Outcome:    audit.OutcomeFailure,
			Reason:     "invalid_password",
		})
		return nil, ErrInvalidCredentials
	}

	if !admin.IsActive {
		s.auditLogger.Log(ctx, audit.Event{
			Type:       audit.TypeAdminLoginFailed,
			TenantID:   admin.TenantID,
			ActorID:    admin.ID,
			ActorEmail: admin.Email,
			Resource:   "login",
			Outcome:    audit.OutcomeFailure,
			Reason:     "inactive",
		})
		return nil, ErrAdminInactive
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to record last login",
			logger.Component("identity"),
			logger.AdminID(admin.ID),
			logger.Error(err),
		)
	} else {
		admin.LastLogin = &now
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeAdminLogin,
		TenantID:   admin.TenantID,
		ActorID:    admin.ID,
		ActorEmail: admin.Email,
		Resource:   "login",
	})
	return admin, nil
}

// GetAdmin retrieves an admin by ID
func (s *Service) GetAdmin(ctx context.Context, adminID string) (*Admin, error) {
	return s.repo.GetByID(ctx, adminID)
}

// CredentialChange is a checked credential update that has not been
// stored yet.
type CredentialChange struct {
	admin *Admin
	email string
	hash  string
}

// Email returns the normalized email the change will store.
func (c *CredentialChange) Email() string {
	return c.email
}

// EmailChanged reports whether the change replaces the admin's email.
func (c *CredentialChange) EmailChanged() bool {
	return c.email != c.admin.Email
}

// PrepareCredentials validates a new email and password for an admin,
// checks that the email is free and hashes the password. Nothing is
// written.
func (s *Service) PrepareCredentials(ctx context.Context, adminID, email, password string) (*CredentialChange, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}

	if email != admin.Email {
		other, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != admin.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, ErrAdminNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &CredentialChange{admin: admin, email: email, hash: hash}, nil
}

// ApplyCredentials stores a prepared change. The repository still rejects
// an email claimed by another admin in the meantime with ErrEmailTaken.
func (s *Service) ApplyCredentials(ctx context.Context, c *CredentialChange) (*Admin, error) {
	admin := *c.admin
	admin.Email = c.email
	admin.PasswordHash = c.hash
	admin.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &admin); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}
	return &admin, nil
}

// UpdateCredentials replaces the email and password of an admin.
func (s *Service) UpdateCredentials(ctx context.Context, adminID, email, password string) (*Admin, error) {
	change, err := s.PrepareCredentials(ctx, adminID, email, password)
	if err != nil {
		return nil, err
	}
	return s.ApplyCredentials(ctx, change)
}

// DeleteAdmin removes an admin record.
func (s *Service) DeleteAdmin(ctx context.Context, adminID string) error {
	return s.repo.Delete(ctx, adminID)
}

// Count returns the number of admins.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// ValidateCredentials checks an email and password pair without touching
// storage.
func ValidateCredentials(email, password string) error {
	if _, err := normalizeEmail(email); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	return email, nil
}
