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
	"context"
	"errors"
	"time"
)

var (
	// ErrTenantNotFound means the name or id does not resolve to an active tenant.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantExists means the name is already held by an active tenant.
	ErrTenantExists = errors.New("tenant already exists")
	// ErrConcurrentUpdate means the directory entry changed between read and write.
	ErrConcurrentUpdate = errors.New("tenant was modified concurrently")
	// ErrInvalidName rejects names outside the allowed alphabet or length.
	ErrInvalidName = errors.New("invalid tenant name")
	// ErrTransient marks storage failures that are safe to retry.
	ErrTransient = errors.New("transient storage failure")
	// ErrInconsistent means the directory and physical storage disagree.
	ErrInconsistent = errors.New("tenant directory and storage are inconsistent")

	// ErrCollectionExists is returned by Storage.CreateCollection.
	ErrCollectionExists = errors.New("collection already exists")
	// ErrCollectionNotFound is returned when a source collection is missing.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrMetadataNotFound is returned by Storage.ReadMetadata.
	ErrMetadataNotFound = errors.New("collection metadata not found")
)

// Repository stores directory entries.
type Repository interface {
	// Create inserts an entry; ErrTenantExists if an active entry holds the name.
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	// GetByName returns the active entry with the given normalized name.
	GetByName(ctx context.Context, name string) (*Tenant, error)
	// Rename replaces name, storage id, version and updated_at of tenant.ID,
	// provided the stored entry is still active with expectedName and
	// expectedVersion. ErrConcurrentUpdate otherwise.
	Rename(ctx context.Context, tenant *Tenant, expectedName string, expectedVersion int64) error
	// UpdateAdminEmail replaces the admin email of an active entry that
	// still has expectedVersion and bumps the version. ErrTenantNotFound
	// if the entry is gone, ErrConcurrentUpdate if the version moved.
	UpdateAdminEmail(ctx context.Context, id, email string, expectedVersion int64, at time.Time) error
	// MarkDeleted soft-deletes the entry if it still has expectedVersion.
	MarkDeleted(ctx context.Context, id string, expectedVersion int64, at time.Time) error
	// List returns active entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
	// Count returns the number of active entries.
	Count(ctx context.Context) (int64, error)
}

// Storage manages the physical per-tenant collections.
type Storage interface {
	// CreateCollection fails with ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, storageID string) error
	// DropCollection succeeds if the collection is already gone.
	DropCollection(ctx context.Context, storageID string) error
	CollectionExists(ctx context.Context, storageID string) (bool, error)
	// CopyIndexes recreates the secondary indexes of src on dst.
	CopyIndexes(ctx context.Context, src, dst string) error
	// UpsertMetadata writes the metadata document, creating it if absent.
	UpsertMetadata(ctx context.Context, storageID string, meta CollectionMetadata) error
	// ReadMetadata returns the metadata document. ErrMetadataNotFound if
	// the collection or the document does not exist.
	ReadMetadata(ctx context.Context, storageID string) (*CollectionMetadata, error)
	// CopyDocuments streams every document except the metadata document
	// from src into dst. ErrCollectionNotFound if src does not exist.
	CopyDocuments(ctx context.Context, src, dst string) (int64, error)
	// CountDocuments counts documents other than the metadata document.
	CountDocuments(ctx context.Context, storageID string) (int64, error)
	// ListCollections returns collection names starting with prefix.
	ListCollections(ctx context.Context, prefix string) ([]string, error)
}
