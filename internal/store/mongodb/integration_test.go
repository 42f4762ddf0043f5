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

//go:build integration
// +build integration

package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/tenant"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	uri := os.Getenv("MONGODB_URL")
	if uri == "" {
		// docker-compose default
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, Config{
		URI:           uri,
		Database:      fmt.Sprintf("orgsvc_it_%d", time.Now().UnixNano()),
		Timeout:       3 * time.Second,
		CopyBatchSize: 2,
	})
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to mongodb: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Database().Drop(ctx)
		_ = db.Close(ctx)
	})
	require.NoError(t, db.EnsureIndexes(ctx))
	return db
}

// TestPurpose: Validates the full create, rename and delete lifecycle against a real MongoDB.
// Scope: Database Integration Test
// Security: Tenant data isolation
// Expected: Documents and indexes follow the rename; metadata is rewritten, not copied; delete drops the collection.
// Test Case ID: MDB-01
func TestMongo_TenantLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	storage := NewCollectionStore(db)
	svc := tenant.NewService(NewTenantRepository(db), storage, audit.NewStoreLogger(NewAuditRepository(db)))

	created, err := svc.Create(ctx, tenant.CreateParams{Name: "acme", AdminRef: "admin-1", AdminEmail: "a@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "org_acme", created.StorageID)

	coll := db.Database().Collection("org_acme")
	for i := 0; i < 5; i++ {
		_, err := coll.InsertOne(ctx, bson.D{{Key: "_id", Value: fmt.Sprintf("doc-%d", i)}, {Key: "sku", Value: i}})
		require.NoError(t, err)
	}
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetName("uniq_sku").SetUnique(true),
	})
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, "acme", "acme_corp")
	require.NoError(t, err)
	assert.Equal(t, "org_acme_corp", renamed.StorageID)

	n, err := storage.CountDocuments(ctx, "org_acme_corp")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	var meta bson.M
	require.NoError(t, db.Database().Collection("org_acme_corp").FindOne(ctx, bson.D{{Key: "_id", Value: tenant.MetadataDocumentID}}).Decode(&meta))
	assert.Equal(t, "acme_corp", meta["organization_name"])

	specs, err := db.Database().Collection("org_acme_corp").Indexes().ListSpecifications(ctx)
	require.NoError(t, err)
	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "uniq_sku")

	exists, err := storage.CollectionExists(ctx, "org_acme")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Lookup(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	require.NoError(t, svc.Delete(ctx, "acme_corp"))
	exists, err = storage.CollectionExists(ctx, "org_acme_corp")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Create(ctx, tenant.CreateParams{Name: "acme_corp"})
	assert.NoError(t, err)
}

// TestPurpose: Validates that the partial unique index rejects a second active entry with the same name.
// Scope: Database Integration Test
// Expected: Create returns ErrTenantExists; a soft-deleted entry does not block the name.
// Test Case ID: MDB-02
func TestMongo_TenantRepository_UniqueActiveName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTenantRepository(db)
	now := time.Now().UTC()

	first := &tenant.Tenant{ID: "t-1", Name: "acme", StorageID: "org_acme", Status: tenant.StatusActive, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, first))

	dup := &tenant.Tenant{ID: "t-2", Name: "acme", StorageID: "org_acme", Status: tenant.StatusActive, Version: 1, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.Create(ctx, dup), tenant.ErrTenantExists)

	assert.ErrorIs(t, repo.MarkDeleted(ctx, "t-1", 7, now), tenant.ErrConcurrentUpdate)
	require.NoError(t, repo.MarkDeleted(ctx, "t-1", 1, now))
	assert.ErrorIs(t, repo.MarkDeleted(ctx, "t-1", 2, now), tenant.ErrTenantNotFound)

	require.NoError(t, repo.Create(ctx, dup))
	got, err := repo.GetByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "t-2", got.ID)

	stale := *got
	stale.Name = "acme_corp"
	stale.Version = 2
	assert.ErrorIs(t, repo.Rename(ctx, &stale, "acme", 5), tenant.ErrConcurrentUpdate)
}

// TestPurpose: Validates that creating an existing collection maps to ErrCollectionExists and that reconcile finds orphans.
// Scope: Database Integration Test
// Expected: ErrCollectionExists; a stale unowned org_ collection is dropped, a fresh one is left pending.
// Test Case ID: MDB-03
func TestMongo_CollectionStore_ExistsAndReconcile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	storage := NewCollectionStore(db)

	require.NoError(t, storage.CreateCollection(ctx, "org_ghost"))
	assert.ErrorIs(t, storage.CreateCollection(ctx, "org_ghost"), tenant.ErrCollectionExists)

	_, err := storage.CopyDocuments(ctx, "org_missing", "org_ghost")
	assert.ErrorIs(t, err, tenant.ErrCollectionNotFound)

	_, err = storage.ReadMetadata(ctx, "org_ghost")
	assert.ErrorIs(t, err, tenant.ErrMetadataNotFound)

	stale := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	require.NoError(t, storage.UpsertMetadata(ctx, "org_ghost", tenant.CollectionMetadata{
		TenantID:      "t-ghost",
		TenantName:    "ghost",
		SchemaVersion: tenant.SchemaVersion,
		UpdatedAt:     stale,
	}))
	meta, err := storage.ReadMetadata(ctx, "org_ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", meta.TenantName)
	assert.True(t, stale.Equal(meta.UpdatedAt))

	require.NoError(t, storage.UpsertMetadata(ctx, "org_fresh", tenant.CollectionMetadata{
		TenantName: "fresh",
		UpdatedAt:  time.Now().UTC(),
	}))

	svc := tenant.NewService(NewTenantRepository(db), storage, nil, tenant.WithReconcileGrace(10*time.Minute))
	report, err := svc.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"org_ghost"}, report.Dropped)
	assert.Equal(t, []string{"org_fresh"}, report.Pending)
}

// TestPurpose: Validates that index options beyond keys and uniqueness follow a rename.
// Scope: Database Integration Test
// Expected: Partial filter expression and collation are present on the copied index.
// Test Case ID: MDB-04
func TestMongo_CollectionStore_CopyIndexesKeepsOptions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	storage := NewCollectionStore(db)

	require.NoError(t, storage.CreateCollection(ctx, "org_src"))
	require.NoError(t, storage.CreateCollection(ctx, "org_dst"))
	_, err := db.Database().Collection("org_src").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "region", Value: -1}},
		Options: options.Index().
			SetName("active_email").
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	require.NoError(t, err)

	require.NoError(t, storage.CopyIndexes(ctx, "org_src", "org_dst"))

	cur, err := db.Database().Collection("org_dst").Indexes().List(ctx)
	require.NoError(t, err)
	var indexes []bson.Raw
	require.NoError(t, cur.All(ctx, &indexes))

	var copied bson.Raw
	for _, idx := range indexes {
		if name, ok := idx.Lookup("name").StringValueOK(); ok && name == "active_email" {
			copied = idx
		}
	}
	require.NotNil(t, copied, "index copied")
	assert.True(t, copied.Lookup("unique").Boolean())
	assert.True(t, copied.Lookup("partialFilterExpression", "active").Boolean())
	assert.Equal(t, "en", copied.Lookup("collation", "locale").StringValue())
	assert.EqualValues(t, 2, copied.Lookup("collation", "strength").Int32())
}

// TestPurpose: Validates the versioned admin email update of a directory entry.
// Scope: Database Integration Test
// Expected: metadata.admin_email changes and the version moves; a stale version yields ErrConcurrentUpdate.
// Test Case ID: MDB-05
func TestMongo_TenantRepository_UpdateAdminEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTenantRepository(db)
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &tenant.Tenant{
		ID: "t-1", Name: "acme", StorageID: "org_acme", AdminEmail: "old@acme.test",
		Status: tenant.StatusActive, Version: 1, CreatedAt: now, UpdatedAt: now,
	}))

	assert.ErrorIs(t, repo.UpdateAdminEmail(ctx, "t-1", "new@acme.test", 4, now), tenant.ErrConcurrentUpdate)
	require.NoError(t, repo.UpdateAdminEmail(ctx, "t-1", "new@acme.test", 1, now))

	got, err := repo.GetByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "new@acme.test", got.AdminEmail)
	assert.EqualValues(t, 2, got.Version)

	assert.ErrorIs(t, repo.UpdateAdminEmail(ctx, "t-missing", "x@acme.test", 1, now), tenant.ErrTenantNotFound)
}
