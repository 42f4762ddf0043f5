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

// Package mongodb implements the storage interfaces on MongoDB. The master
// database holds the directory, admin and audit collections next to one
// collection per tenant.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/orgsvc/orgsvc/internal/tenant"
)

// Collection names in the master database
const (
	OrganizationsCollection = "organizations"
	AdminsCollection        = "admin_users"
	AuditCollection         = "audit_logs"
)

// DefaultCopyBatchSize is the number of documents inserted per round trip
// during a collection copy.
const DefaultCopyBatchSize = 500

// DB wraps the MongoDB client and master database
type DB struct {
	client    *mongo.Client
	db        *mongo.Database
	batchSize int
}

// Config holds database configuration
type Config struct {
	URI           string
	Database      string
	Timeout       time.Duration
	MaxPoolSize   uint64
	CopyBatchSize int
}

// New creates a new database connection
func New(ctx context.Context, cfg Config) (*DB, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetServerSelectionTimeout(cfg.Timeout)
		opts.SetConnectTimeout(cfg.Timeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping mongodb: %w", classify(err))
	}

	batch := cfg.CopyBatchSize
	if batch <= 0 {
		batch = DefaultCopyBatchSize
	}
	return &DB{client: client, db: client.Database(cfg.Database), batchSize: batch}, nil
}

// Close disconnects the client
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable
func (db *DB) Ping(ctx context.Context) error {
	return classify(db.client.Ping(ctx, readpref.Primary()))
}

// Database returns the master database
func (db *DB) Database() *mongo.Database {
	return db.db
}

// Stats is a subset of the dbStats command output
type Stats struct {
	Database    string  `bson:"db" json:"database"`
	Collections int64   `bson:"collections" json:"collections"`
	Objects     int64   `bson:"objects" json:"objects"`
	DataSize    float64 `bson:"dataSize" json:"data_size"`
	StorageSize float64 `bson:"storageSize" json:"storage_size"`
	Indexes     int64   `bson:"indexes" json:"indexes"`
}

// Health pings the server and returns database statistics
func (db *DB) Health(ctx context.Context) (*Stats, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}
	var stats Stats
	if err := db.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to read database stats: %w", classify(err))
	}
	return &stats, nil
}

// EnsureIndexes creates the indexes of the master collections. Names are
// unique only among active organizations so a deleted tenant's name can be
// registered again.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		OrganizationsCollection: {
			{
				Keys: bson.D{{Key: "organization_name", Value: 1}},
				Options: options.Index().
					SetName("uniq_active_organization_name").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: tenant.StatusActive}}),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_status_created_at"),
			},
		},
		AdminsCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		},
		AuditCollection: {
			{
				Keys:    bson.D{{Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_timestamp"),
			},
			{
				Keys:    bson.D{{Key: "organization_name", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_organization_timestamp"),
			},
		},
	}

	for coll, models := range specs {
		if _, err := db.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, classify(err))
		}
	}
	return nil
}

// classify marks driver errors that are safe to retry with tenant.ErrTransient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tenant.ErrTransient) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", tenant.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("RetryableWriteError") || labeled.HasErrorLabel("TransientTransactionError")
	}
	return false
}
