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
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/orgsvc/orgsvc/internal/tenant"
)

// Document is a stored record; "_id" identifies it within its collection.
type Document map[string]any

// Index describes a secondary index.
type Index struct {
	Name   string
	Keys   []string
	Unique bool
}

type collection struct {
	docs    []Document
	indexes []Index
}

// CollectionStore implements tenant.Storage
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewCollectionStore creates an empty store
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{collections: make(map[string]*collection)}
}

// CreateCollection creates an empty collection
func (s *CollectionStore) CreateCollection(_ context.Context, storageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[storageID]; ok {
		return tenant.ErrCollectionExists
	}
	s.collections[storageID] = &collection{}
	return nil
}

// DropCollection removes a collection if present
func (s *CollectionStore) DropCollection(_ context.Context, storageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, storageID)
	return nil
}

// CollectionExists reports whether storageID exists
func (s *CollectionStore) CollectionExists(_ context.Context, storageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[storageID]
	return ok, nil
}

// CopyIndexes recreates the indexes of src on dst
func (s *CollectionStore) CopyIndexes(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.collections[src]
	if !ok {
		return fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, src)
	}
	to, ok := s.collections[dst]
	if !ok {
		return fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, dst)
	}
	for _, idx := range from.indexes {
		idx.Keys = slices.Clone(idx.Keys)
		to.indexes = append(to.indexes, idx)
	}
	return nil
}

// UpsertMetadata writes the metadata document, creating the collection
// implicitly as a document store would.
func (s *CollectionStore) UpsertMetadata(_ context.Context, storageID string, meta tenant.CollectionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[storageID]
	if !ok {
		c = &collection{}
		s.collections[storageID] = c
	}
	for _, d := range c.docs {
		if d["_id"] == tenant.MetadataDocumentID {
			d["organization_name"] = meta.TenantName
			d["tenant_id"] = meta.TenantID
			d["updated_at"] = meta.UpdatedAt
			return nil
		}
	}
	c.docs = append(c.docs, Document{
		"_id":               tenant.MetadataDocumentID,
		"organization_name": meta.TenantName,
		"tenant_id":         meta.TenantID,
		"schema_version":    meta.SchemaVersion,
		"created_at":        meta.UpdatedAt,
		"updated_at":        meta.UpdatedAt,
	})
	return nil
}

// ReadMetadata returns the metadata document of a collection
func (s *CollectionStore) ReadMetadata(_ context.Context, storageID string) (*tenant.CollectionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[storageID]
	if !ok {
		return nil, tenant.ErrMetadataNotFound
	}
	for _, d := range c.docs {
		if d["_id"] != tenant.MetadataDocumentID {
			continue
		}
		meta := &tenant.CollectionMetadata{}
		meta.TenantID, _ = d["tenant_id"].(string)
		meta.TenantName, _ = d["organization_name"].(string)
		meta.SchemaVersion, _ = d["schema_version"].(string)
		meta.UpdatedAt, _ = d["updated_at"].(time.Time)
		return meta, nil
	}
	return nil, tenant.ErrMetadataNotFound
}

// CopyDocuments copies every non-metadata document from src to dst
func (s *CollectionStore) CopyDocuments(_ context.Context, src, dst string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.collections[src]
	if !ok {
		return 0, fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, src)
	}
	to, ok := s.collections[dst]
	if !ok {
		return 0, fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, dst)
	}
	var n int64
	for _, d := range from.docs {
		if d["_id"] == tenant.MetadataDocumentID {
			continue
		}
		to.docs = append(to.docs, maps.Clone(d))
		n++
	}
	return n, nil
}

// CountDocuments counts non-metadata documents; a missing collection has none
func (s *CollectionStore) CountDocuments(_ context.Context, storageID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[storageID]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, d := range c.docs {
		if d["_id"] != tenant.MetadataDocumentID {
			n++
		}
	}
	return n, nil
}

// ListCollections returns sorted collection names with prefix
func (s *CollectionStore) ListCollections(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.collections {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Insert adds documents to an existing collection. Documents without an
// "_id" get a sequential one.
func (s *CollectionStore) Insert(storageID string, docs ...Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[storageID]
	if !ok {
		return fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, storageID)
	}
	for _, d := range docs {
		d = maps.Clone(d)
		if _, ok := d["_id"]; !ok {
			d["_id"] = fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(c.docs))
		}
		c.docs = append(c.docs, d)
	}
	return nil
}

// CreateIndex adds an index definition to a collection.
func (s *CollectionStore) CreateIndex(storageID string, idx Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[storageID]
	if !ok {
		return fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, storageID)
	}
	c.indexes = append(c.indexes, idx)
	return nil
}

// Documents returns copies of all documents in a collection, metadata included.
func (s *CollectionStore) Documents(storageID string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[storageID]
	if !ok {
		return nil
	}
	out := make([]Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = maps.Clone(d)
	}
	return out
}

// Indexes returns the index definitions of a collection.
func (s *CollectionStore) Indexes(storageID string) []Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[storageID]
	if !ok {
		return nil
	}
	return slices.Clone(c.indexes)
}
