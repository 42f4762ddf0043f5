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

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/orgsvc/orgsvc/internal/tenant"
)

type tenantMetadata struct {
	AdminEmail string `bson:"admin_email,omitempty"`
	Plan       string `bson:"plan,omitempty"`
}

type tenantDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"organization_name"`
	StorageID string         `bson:"collection_name"`
	AdminRef  string         `bson:"admin_user_id"`
	Status    string         `bson:"status"`
	Version   int64          `bson:"version"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
	DeletedAt *time.Time     `bson:"deleted_at,omitempty"`
	Metadata  tenantMetadata `bson:"metadata"`
}

func toTenantDocument(t *tenant.Tenant) tenantDocument {
	return tenantDocument{
		ID:        t.ID,
		Name:      t.Name,
		StorageID: t.StorageID,
		AdminRef:  t.AdminRef,
		Status:    t.Status,
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		DeletedAt: t.DeletedAt,
		Metadata:  tenantMetadata{AdminEmail: t.AdminEmail, Plan: t.Plan},
	}
}

func (d *tenantDocument) tenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:         d.ID,
		Name:       d.Name,
		StorageID:  d.StorageID,
		AdminRef:   d.AdminRef,
		AdminEmail: d.Metadata.AdminEmail,
		Plan:       d.Metadata.Plan,
		Status:     d.Status,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
		DeletedAt:  d.DeletedAt,
	}
}

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	coll *mongo.Collection
}

// NewTenantRepository creates a new directory repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{coll: db.db.Collection(OrganizationsCollection)}
}

// Create inserts a directory entry
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if _, err := r.coll.InsertOne(ctx, toTenantDocument(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", tenant.ErrTenantExists, t.Name)
		}
		return fmt.Errorf("failed to insert organization: %w", classify(err))
	}
	return nil
}

func (r *TenantRepository) findOne(ctx context.Context, filter bson.D) (*tenant.Tenant, error) {
	var doc tenantDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", classify(err))
	}
	return doc.tenant(), nil
}

// GetByID retrieves an entry by ID, including deleted ones
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByName retrieves the active entry with name
func (r *TenantRepository) GetByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	return r.findOne(ctx, bson.D{
		{Key: "organization_name", Value: name},
		{Key: "status", Value: tenant.StatusActive},
	})
}

// Rename applies a compare-and-swap update on name and version
func (r *TenantRepository) Rename(ctx context.Context, t *tenant.Tenant, expectedName string, expectedVersion int64) error {
	filter := bson.D{
		{Key: "_id", Value: t.ID},
		{Key: "organization_name", Value: expectedName},
		{Key: "version", Value: expectedVersion},
		{Key: "status", Value: tenant.StatusActive},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "organization_name", Value: t.Name},
		{Key: "collection_name", Value: t.StorageID},
		{Key: "version", Value: t.Version},
		{Key: "updated_at", Value: t.UpdatedAt},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", tenant.ErrTenantExists, t.Name)
		}
		return fmt.Errorf("failed to rename organization: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return tenant.ErrConcurrentUpdate
	}
	return nil
}

// UpdateAdminEmail applies a compare-and-swap update of metadata.admin_email
func (r *TenantRepository) UpdateAdminEmail(ctx context.Context, id, email string, expectedVersion int64, at time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "version", Value: expectedVersion},
		{Key: "status", Value: tenant.StatusActive},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "metadata.admin_email", Value: email},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", classify(err))
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.missOrConflict(ctx, id)
}

// missOrConflict explains why a versioned update matched nothing.
func (r *TenantRepository) missOrConflict(ctx context.Context, id string) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !cur.IsActive() {
		return tenant.ErrTenantNotFound
	}
	return tenant.ErrConcurrentUpdate
}

// MarkDeleted soft-deletes an entry
func (r *TenantRepository) MarkDeleted(ctx context.Context, id string, expectedVersion int64, at time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "version", Value: expectedVersion},
		{Key: "status", Value: tenant.StatusActive},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: tenant.StatusDeleted},
			{Key: "deleted_at", Value: at},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", classify(err))
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.missOrConflict(ctx, id)
}

// List returns active entries, newest first
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, bson.D{{Key: "status", Value: tenant.StatusActive}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", classify(err))
	}
	defer cur.Close(ctx)

	var docs []tenantDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode organizations: %w", classify(err))
	}

	tenants := make([]*tenant.Tenant, 0, len(docs))
	for i := range docs {
		tenants = append(tenants, docs[i].tenant())
	}
	return tenants, nil
}

// Count returns the number of active entries
func (r *TenantRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "status", Value: tenant.StatusActive}})
	if err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", classify(err))
	}
	return n, nil
}
