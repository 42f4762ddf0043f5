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

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/orgsvc/orgsvc/internal/identity"
)

// AdminRepository implements identity.AdminRepository
type AdminRepository struct {
	mu     sync.RWMutex
	admins map[string]*identity.Admin
}

// NewAdminRepository creates an empty admin store
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]*identity.Admin)}
}

func cloneAdmin(a *identity.Admin) *identity.Admin {
	cp := *a
	if a.LastLogin != nil {
		at := *a.LastLogin
		cp.LastLogin = &at
	}
	return &cp
}

// Create stores a new admin
func (r *AdminRepository) Create(_ context.Context, admin *identity.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return identity.ErrEmailTaken
		}
	}
	r.admins[admin.ID] = cloneAdmin(admin)
	return nil
}

// GetByID retrieves an admin by ID
func (r *AdminRepository) GetByID(_ context.Context, id string) (*identity.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, identity.ErrAdminNotFound
	}
	return cloneAdmin(a), nil
}

// GetByEmail retrieves an admin by email
func (r *AdminRepository) GetByEmail(_ context.Context, email string) (*identity.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Email == email {
			return cloneAdmin(a), nil
		}
	}
	return nil, identity.ErrAdminNotFound
}

// Update replaces an admin record
func (r *AdminRepository) Update(_ context.Context, admin *identity.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[admin.ID]; !ok {
		return identity.ErrAdminNotFound
	}
	for _, a := range r.admins {
		if a.ID != admin.ID && a.Email == admin.Email {
			return identity.ErrEmailTaken
		}
	}
	r.admins[admin.ID] = cloneAdmin(admin)
	return nil
}

// UpdateLastLogin records a successful login
func (r *AdminRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return identity.ErrAdminNotFound
	}
	a.LastLogin = &at
	return nil
}

// Delete removes an admin
func (r *AdminRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[id]; !ok {
		return identity.ErrAdminNotFound
	}
	delete(r.admins, id)
	return nil
}

// Count returns the number of admins
func (r *AdminRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.admins)), nil
}
