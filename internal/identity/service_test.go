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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgsvc/orgsvc/internal/audit"
)

// MockAdminRepository is a simple in-memory implementation of AdminRepository
type MockAdminRepository struct {
	mu     sync.Mutex
	admins map[string]*Admin
}

func NewMockAdminRepository() *MockAdminRepository {
	return &MockAdminRepository{admins: make(map[string]*Admin)}
}

func (m *MockAdminRepository) Create(_ context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == admin.Email {
			return ErrEmailTaken
		}
	}
	cp := *admin
	m.admins[admin.ID] = &cp
	return nil
}

func (m *MockAdminRepository) GetByID(_ context.Context, id string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAdminRepository) GetByEmail(_ context.Context, email string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAdminNotFound
}

func (m *MockAdminRepository) Update(_ context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.ID]; !ok {
		return ErrAdminNotFound
	}
	cp := *admin
	m.admins[admin.ID] = &cp
	return nil
}

func (m *MockAdminRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return ErrAdminNotFound
	}
	a.LastLogin = &at
	return nil
}

func (m *MockAdminRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return ErrAdminNotFound
	}
	delete(m.admins, id)
	return nil
}

func (m *MockAdminRepository) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.admins)), nil
}

type capturingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *capturingAudit) Log(ctx context.Context, e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, audit.Prepare(ctx, e))
}

func (c *capturingAudit) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func newTestService() (*Service, *MockAdminRepository, *capturingAudit) {
	repo := NewMockAdminRepository()
	rec := &capturingAudit{}
	// low-cost parameters keep the suite fast
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)
	return NewService(repo, hasher, rec), repo, rec
}

// TestPurpose: Validates the admin authentication flow for correct and incorrect credentials.
// Scope: Unit Test
// Security: Authentication mechanisms and audit of failed logins
// Expected: Success with the right password records last_login; wrong password and unknown email both yield ErrInvalidCredentials.
// Test Case ID: IDN-01
func TestIdentity_Service_Authenticate(t *testing.T) {
	s, repo, rec := newTestService()
	ctx := context.Background()

	admin, err := s.ProvisionAdmin(ctx, "Owner@Acme.test", "SecurePassword123")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", admin.Email)
	assert.NotContains(t, admin.PasswordHash, "SecurePassword123")

	got, err := s.Authenticate(ctx, "owner@acme.test", "SecurePassword123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	stored, err := repo.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)

	_, err = s.Authenticate(ctx, "owner@acme.test", "WrongPassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody@acme.test", "SecurePassword123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{
		audit.TypeAdminLogin,
		audit.TypeAdminLoginFailed,
		audit.TypeAdminLoginFailed,
	}, rec.types())
}

// TestPurpose: Validates that provisioning an admin fails if the email is already registered.
// Scope: Unit Test
// Security: Data Integrity and Unique Constraint Enforcement
// Expected: ErrEmailTaken on the second provisioning with the same email.
// Test Case ID: IDN-02
func TestIdentity_Service_ProvisionAdmin_Conflict(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	_, err := s.ProvisionAdmin(ctx, "conflict@example.com", "SecurePassword123")
	require.NoError(t, err)

	_, err = s.ProvisionAdmin(ctx, "CONFLICT@example.com", "SecurePassword123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// TestPurpose: Validates input checks on admin provisioning.
// Scope: Unit Test
// Expected: Short passwords yield ErrWeakPassword; malformed emails yield ErrInvalidEmail.
// Test Case ID: IDN-03
func TestIdentity_Service_ProvisionAdmin_Validation(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	_, err := s.ProvisionAdmin(ctx, "owner@acme.test", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	for _, email := range []string{"", "not-an-email", "Owner <owner@acme.test>"} {
		_, err := s.ProvisionAdmin(ctx, email, "SecurePassword123")
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

// TestPurpose: Validates credential updates, including email uniqueness across admins.
// Scope: Unit Test
// Security: Credential rotation
// Expected: New password authenticates, old one fails; taking another admin's email yields ErrEmailTaken.
// Test Case ID: IDN-04
func TestIdentity_Service_UpdateCredentials(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	a, err := s.ProvisionAdmin(ctx, "a@acme.test", "PasswordA123")
	require.NoError(t, err)
	_, err = s.ProvisionAdmin(ctx, "b@acme.test", "PasswordB123")
	require.NoError(t, err)

	_, err = s.UpdateCredentials(ctx, a.ID, "b@acme.test", "PasswordA456")
	assert.ErrorIs(t, err, ErrEmailTaken)

	updated, err := s.UpdateCredentials(ctx, a.ID, "a2@acme.test", "PasswordA456")
	require.NoError(t, err)
	assert.Equal(t, "a2@acme.test", updated.Email)

	_, err = s.Authenticate(ctx, "a2@acme.test", "PasswordA456")
	assert.NoError(t, err)
	_, err = s.Authenticate(ctx, "a2@acme.test", "PasswordA123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestPurpose: Validates that preparing a credential change checks the email and writes nothing.
// Scope: Unit Test
// Security: Credential rotation
// Expected: A taken email fails at prepare; a prepared change leaves the stored admin untouched until applied.
// Test Case ID: IDN-08
func TestIdentity_Service_PrepareCredentials(t *testing.T) {
	s, repo, _ := newTestService()
	ctx := context.Background()

	a, err := s.ProvisionAdmin(ctx, "a@acme.test", "PasswordA123")
	require.NoError(t, err)
	_, err = s.ProvisionAdmin(ctx, "b@acme.test", "PasswordB123")
	require.NoError(t, err)

	_, err = s.PrepareCredentials(ctx, a.ID, "B@acme.test", "PasswordA456")
	assert.ErrorIs(t, err, ErrEmailTaken)

	change, err := s.PrepareCredentials(ctx, a.ID, " A3@acme.test ", "PasswordA456")
	require.NoError(t, err)
	assert.Equal(t, "a3@acme.test", change.Email())
	assert.True(t, change.EmailChanged())

	stored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@acme.test", stored.Email)

	updated, err := s.ApplyCredentials(ctx, change)
	require.NoError(t, err)
	assert.Equal(t, "a3@acme.test", updated.Email)

	_, err = s.Authenticate(ctx, "a3@acme.test", "PasswordA456")
	assert.NoError(t, err)
}

// TestPurpose: Validates that disabled admins cannot log in even with the right password.
// Scope: Unit Test
// Security: Account state enforcement
// Expected: ErrAdminInactive.
// Test Case ID: IDN-05
func TestIdentity_Service_Authenticate_Inactive(t *testing.T) {
	s, repo, _ := newTestService()
	ctx := context.Background()

	a, err := s.ProvisionAdmin(ctx, "off@acme.test", "SecurePassword123")
	require.NoError(t, err)
	a.IsActive = false
	require.NoError(t, repo.Update(ctx, a))

	_, err = s.Authenticate(ctx, "off@acme.test", "SecurePassword123")
	assert.ErrorIs(t, err, ErrAdminInactive)
}

// TestPurpose: Validates tenant assignment and deletion of admins.
// Scope: Unit Test
// Expected: AssignTenant persists the tenant id; DeleteAdmin removes the record.
// Test Case ID: IDN-06
func TestIdentity_Service_AssignAndDelete(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	a, err := s.ProvisionAdmin(ctx, "owner@acme.test", "SecurePassword123")
	require.NoError(t, err)
	require.NoError(t, s.AssignTenant(ctx, a.ID, "tenant-1"))

	got, err := s.GetAdmin(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", got.TenantID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteAdmin(ctx, a.ID))
	_, err = s.GetAdmin(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAdminNotFound)
}

// TestPurpose: Validates hash encoding and tamper detection of the Argon2id hasher.
// Scope: Unit Test
// Security: Password storage (CWE-916)
// Expected: Two hashes of one password differ by salt; both verify; malformed hashes return an error.
// Test Case ID: IDN-07
func TestIdentity_PasswordHasher(t *testing.T) {
	h := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	h1, err := h.Hash("correct-horse")
	require.NoError(t, err)
	h2, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Contains(t, h1, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := h.Verify("correct-horse", h2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-horse", h1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("correct-horse", "$bcrypt$whatever")
	assert.Error(t, err)
}
