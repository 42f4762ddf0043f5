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

	"github.com/orgsvc/orgsvc/internal/identity"
)

type adminDocument struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	TenantID     string     `bson:"organization_id,omitempty"`
	IsActive     bool       `bson:"is_active"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func (d *adminDocument) admin() *identity.Admin {
	return &identity.Admin{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		TenantID:     d.TenantID,
		IsActive:     d.IsActive,
		LastLogin:    d.LastLogin,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// AdminRepository implements identity.AdminRepository
type AdminRepository struct {
	coll *mongo.Collection
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{coll: db.db.Collection(AdminsCollection)}
}

// Create stores a new admin
func (r *AdminRepository) Create(ctx context.Context, admin *identity.Admin) error {
	doc := adminDocument{
		ID:           admin.ID,
		Email:        admin.Email,
		PasswordHash: admin.PasswordHash,
		TenantID:     admin.TenantID,
		IsActive:     admin.IsActive,
		LastLogin:    admin.LastLogin,
		CreatedAt:    admin.CreatedAt,
		UpdatedAt:    admin.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert admin: %w", classify(err))
	}
	return nil
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.D) (*identity.Admin, error) {
	var doc adminDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, identity.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", classify(err))
	}
	return doc.admin(), nil
}

// GetByID retrieves an admin by ID
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*identity.Admin, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByEmail retrieves an admin by email
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*identity.Admin, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// Update replaces the mutable fields of an admin
func (r *AdminRepository) Update(ctx context.Context, admin *identity.Admin) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "email", Value: admin.Email},
		{Key: "password_hash", Value: admin.PasswordHash},
		{Key: "organization_id", Value: admin.TenantID},
		{Key: "is_active", Value: admin.IsActive},
		{Key: "updated_at", Value: admin.UpdatedAt},
	}}}
	res, err := r.coll.UpdateByID(ctx, admin.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to update admin: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// UpdateLastLogin records a successful login
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "last_login", Value: at}}}})
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// Delete removes an admin
func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", classify(err))
	}
	if res.DeletedCount == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// Count returns the number of admins
func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", classify(err))
	}
	return n, nil
}
