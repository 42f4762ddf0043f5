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

package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tenant is a directory entry: an organization and the collection that
// holds its data.
type Tenant struct {
	ID         string     `json:"id"`
	Name       string     `json:"organization_name"`
	StorageID  string     `json:"collection_name"`
	AdminRef   string     `json:"admin_user_id"`
	AdminEmail string     `json:"admin_email,omitempty"`
	Plan       string     `json:"plan,omitempty"`
	Status     string     `json:"status"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the tenant is reachable by name.
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// Status constants
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// PlanBasic is assigned to every new tenant.
const PlanBasic = "basic"

// StorageIDPrefix prefixes every tenant collection name.
const StorageIDPrefix = "org_"

// MetadataDocumentID is the _id of the descriptor document kept in every
// tenant collection. It is never copied by a migration.
const MetadataDocumentID = "metadata"

// SchemaVersion is written to the metadata document of new collections.
const SchemaVersion = "1.0"

const (
	minNameLength = 3
	maxNameLength = 50
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeName trims and lower-cases a tenant name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName checks a normalized name.
func ValidateName(name string) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidName, minNameLength, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: only letters, numbers and underscores are allowed", ErrInvalidName)
	}
	return nil
}

// StorageIDFor derives the collection name for a normalized tenant name.
// Create and rename both go through this function so the directory and the
// physical collection never disagree.
func StorageIDFor(name string) string {
	return StorageIDPrefix + name
}

// NameFromStorageID is the inverse of StorageIDFor.
func NameFromStorageID(storageID string) (string, bool) {
	if !strings.HasPrefix(storageID, StorageIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(storageID, StorageIDPrefix), true
}

// CollectionMetadata is the descriptor upserted into a tenant collection.
type CollectionMetadata struct {
	TenantID      string
	TenantName    string
	SchemaVersion string
	UpdatedAt     time.Time
}

func metadataFor(t *Tenant) CollectionMetadata {
	return CollectionMetadata{
		TenantID:      t.ID,
		TenantName:    t.Name,
		SchemaVersion: SchemaVersion,
		UpdatedAt:     t.UpdatedAt,
	}
}

// Stats summarises the directory.
type Stats struct {
	TotalTenants int64     `json:"total_organizations"`
	Recent       []*Tenant `json:"recent_organizations"`
}

// ReconcileReport lists what a reconciliation sweep found and did.
type ReconcileReport struct {
	// Orphans are tenant collections that no active directory entry owns.
	Orphans []string `json:"orphans"`
	// Dropped is the subset of Orphans that was removed.
	Dropped []string `json:"dropped"`
	// Pending are unowned collections too recent to judge. They may belong
	// to a create or rename still in flight in another process.
	Pending []string `json:"pending"`
	// Missing are active tenants whose collection does not exist.
	Missing []string `json:"missing"`
}
