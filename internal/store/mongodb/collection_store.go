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
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/orgsvc/orgsvc/internal/tenant"
)

// codeNamespaceExists is returned by the create command when the
// collection already exists.
const codeNamespaceExists = 48

// CollectionStore implements tenant.Storage
type CollectionStore struct {
	db        *mongo.Database
	batchSize int
}

// NewCollectionStore creates a store over the master database
func NewCollectionStore(db *DB) *CollectionStore {
	return &CollectionStore{db: db.db, batchSize: db.batchSize}
}

// CreateCollection creates an empty collection
func (s *CollectionStore) CreateCollection(ctx context.Context, storageID string) error {
	err := s.db.CreateCollection(ctx, storageID)
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return tenant.ErrCollectionExists
	}
	return fmt.Errorf("failed to create collection %s: %w", storageID, classify(err))
}

// DropCollection drops a collection; a missing collection is not an error
func (s *CollectionStore) DropCollection(ctx context.Context, storageID string) error {
	if err := s.db.Collection(storageID).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", storageID, classify(err))
	}
	return nil
}

// CollectionExists reports whether storageID exists
func (s *CollectionStore) CollectionExists(ctx context.Context, storageID string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: storageID}})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", classify(err))
	}
	return len(names) > 0, nil
}

// CopyIndexes recreates the secondary indexes of src on dst. The index
// documents are passed through as listed, so options such as partial
// filters and collations survive.
func (s *CollectionStore) CopyIndexes(ctx context.Context, src, dst string) error {
	cur, err := s.db.Collection(src).Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes of %s: %w", src, classify(err))
	}
	defer cur.Close(ctx)

	var indexes bson.A
	for cur.Next(ctx) {
		var spec bson.D
		if err := cur.Decode(&spec); err != nil {
			return fmt.Errorf("failed to decode index of %s: %w", src, err)
		}
		if name, _ := lookupString(spec, "name"); name == "_id_" {
			continue
		}
		indexes = append(indexes, indexSpec(spec))
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("failed to list indexes of %s: %w", src, classify(err))
	}
	if len(indexes) == 0 {
		return nil
	}

	cmd := bson.D{
		{Key: "createIndexes", Value: dst},
		{Key: "indexes", Value: indexes},
	}
	if err := s.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", dst, classify(err))
	}
	return nil
}

// indexSpec strips the fields listIndexes reports but createIndexes
// derives itself.
func indexSpec(spec bson.D) bson.D {
	out := make(bson.D, 0, len(spec))
	for _, e := range spec {
		if e.Key == "v" || e.Key == "ns" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func lookupString(doc bson.D, key string) (string, bool) {
	for _, e := range doc {
		if e.Key == key {
			v, ok := e.Value.(string)
			return v, ok
		}
	}
	return "", false
}

// UpsertMetadata writes the metadata document of a tenant collection
func (s *CollectionStore) UpsertMetadata(ctx context.Context, storageID string, meta tenant.CollectionMetadata) error {
	filter := bson.D{{Key: "_id", Value: tenant.MetadataDocumentID}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "type", Value: "organization_metadata"},
			{Key: "organization_id", Value: meta.TenantID},
			{Key: "organization_name", Value: meta.TenantName},
			{Key: "schema_version", Value: meta.SchemaVersion},
			{Key: "updated_at", Value: meta.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "created_at", Value: meta.UpdatedAt},
		}},
	}

	_, err := s.db.Collection(storageID).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write metadata to %s: %w", storageID, classify(err))
	}
	return nil
}

type metadataDocument struct {
	TenantID      string    `bson:"organization_id"`
	TenantName    string    `bson:"organization_name"`
	SchemaVersion string    `bson:"schema_version"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// ReadMetadata returns the metadata document of a tenant collection
func (s *CollectionStore) ReadMetadata(ctx context.Context, storageID string) (*tenant.CollectionMetadata, error) {
	var doc metadataDocument
	err := s.db.Collection(storageID).FindOne(ctx, bson.D{{Key: "_id", Value: tenant.MetadataDocumentID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tenant.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("failed to read metadata of %s: %w", storageID, classify(err))
	}
	return &tenant.CollectionMetadata{
		TenantID:      doc.TenantID,
		TenantName:    doc.TenantName,
		SchemaVersion: doc.SchemaVersion,
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}

// CopyDocuments streams every data document of src into dst in batches
func (s *CollectionStore) CopyDocuments(ctx context.Context, src, dst string) (int64, error) {
	ok, err := s.CollectionExists(ctx, src)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", tenant.ErrCollectionNotFound, src)
	}

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$ne", Value: tenant.MetadataDocumentID}}}}
	cur, err := s.db.Collection(src).Find(ctx, filter, options.Find().SetBatchSize(int32(s.batchSize)))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src, classify(err))
	}
	defer cur.Close(ctx)

	target := s.db.Collection(dst)
	var copied int64
	batch := make([]any, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := target.InsertMany(ctx, batch)
		if res != nil {
			copied += int64(len(res.InsertedIDs))
		}
		if err != nil {
			return fmt.Errorf("failed to write to %s after %d documents: %w", dst, copied, classify(err))
		}
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		// Current is reused by the cursor.
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		batch = append(batch, doc)
		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				return copied, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return copied, fmt.Errorf("failed to read %s: %w", src, classify(err))
	}
	if err := flush(); err != nil {
		return copied, err
	}
	return copied, nil
}

// CountDocuments counts data documents; a missing collection counts zero
func (s *CollectionStore) CountDocuments(ctx context.Context, storageID string) (int64, error) {
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$ne", Value: tenant.MetadataDocumentID}}}}
	n, err := s.db.Collection(storageID).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", storageID, classify(err))
	}
	return n, nil
}

// ListCollections returns collection names starting with prefix
func (s *CollectionStore) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(prefix)}}}}
	names, err := s.db.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", classify(err))
	}
	return names, nil
}
