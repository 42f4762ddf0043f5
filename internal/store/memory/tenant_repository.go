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

// Package memory provides process-local implementations of the storage
// interfaces, for development runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orgsvc/orgsvc/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
}

// NewTenantRepository creates an empty directory
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{tenants: make(map[string]*tenant.Tenant)}
}

func clone(t *tenant.Tenant) *tenant.Tenant {
	cp := *t
	if t.DeletedAt != nil {
		at := *t.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}

// activeByName must be called with mu held.
func (r *TenantRepository) activeByName(name string) *tenant.Tenant {
	for _, t := range r.tenants {
		if t.IsActive() && t.Name == name {
			return t
		}
	}
	return nil
}

// Create inserts a directory entry
func (r *TenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeByName(t.Name) != nil {
		return tenant.ErrTenantExists
	}
	r.tenants[t.ID] = clone(t)
	return nil
}

// GetByID retrieves an entry by ID
func (r *TenantRepository) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return clone(t), nil
}

// GetByName retrieves the active entry with name
func (r *TenantRepository) GetByName(_ context.Context, name string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := r.activeByName(name)
	if t == nil {
		return nil, tenant.ErrTenantNotFound
	}
	return clone(t), nil
}

// Rename applies a compare-and-swap rename
func (r *TenantRepository) Rename(_ context.Context, t *tenant.Tenant, expectedName string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tenants[t.ID]
	if !ok || !cur.IsActive() || cur.Name != expectedName || cur.Version != expectedVersion {
		return tenant.ErrConcurrentUpdate
	}
	if other := r.activeByName(t.Name); other != nil && other.ID != t.ID {
		return tenant.ErrTenantExists
	}
	cur.Name = t.Name
	cur.StorageID = t.StorageID
	cur.Version = t.Version
	cur.UpdatedAt = t.UpdatedAt
	return nil
}

// UpdateAdminEmail applies a compare-and-swap update of the admin email
func (r *TenantRepository) UpdateAdminEmail(_ context.Context, id, email string, expectedVersion int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tenants[id]
	if !ok || !cur.IsActive() {
		return tenant.ErrTenantNotFound
	}
	if cur.Version != expectedVersion {
		return tenant.ErrConcurrentUpdate
	}
	cur.AdminEmail = email
	cur.Version++
	cur.UpdatedAt = at
	return nil
}

// MarkDeleted soft-deletes an entry
func (r *TenantRepository) MarkDeleted(_ context.Context, id string, expectedVersion int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tenants[id]
	if !ok || !cur.IsActive() {
		return tenant.ErrTenantNotFound
	}
	if cur.Version != expectedVersion {
		return tenant.ErrConcurrentUpdate
	}
	cur.Status = tenant.StatusDeleted
	cur.Version++
	cur.UpdatedAt = at
	cur.DeletedAt = &at
	return nil
}

// List returns active entries, newest first
func (r *TenantRepository) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	r.mu.RLock()
	active := make([]*tenant.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		if t.IsActive() {
			active = append(active, clone(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID > active[j].ID
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	if offset >= len(active) {
		return []*tenant.Tenant{}, nil
	}
	active = active[offset:]
	if limit > 0 && limit < len(active) {
		active = active[:limit]
	}
	return active, nil
}

// Count returns the number of active entries
func (r *TenantRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, t := range r.tenants {
		if t.IsActive() {
			n++
		}
	}
	return n, nil
}
