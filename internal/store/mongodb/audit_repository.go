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
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/orgsvc/orgsvc/internal/audit"
)

type auditDocument struct {
	ID         string         `bson:"_id"`
	Type       string         `bson:"action"`
	TenantID   string         `bson:"organization_id,omitempty"`
	TenantName string         `bson:"organization_name,omitempty"`
	ActorID    string         `bson:"admin_id,omitempty"`
	ActorEmail string         `bson:"admin_email,omitempty"`
	Resource   string         `bson:"resource,omitempty"`
	Outcome    string         `bson:"outcome"`
	Reason     string         `bson:"reason,omitempty"`
	Metadata   map[string]any `bson:"details,omitempty"`
	Timestamp  time.Time      `bson:"timestamp"`
	IPAddress  string         `bson:"ip_address,omitempty"`
	UserAgent  string         `bson:"user_agent,omitempty"`
}

// AuditRepository implements audit.Store
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{coll: db.db.Collection(AuditCollection)}
}

// Save inserts an audit event
func (r *AuditRepository) Save(ctx context.Context, e audit.Event) error {
	doc := auditDocument(e)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", classify(err))
	}
	return nil
}

func auditFilter(f audit.Filter) bson.D {
	filter := bson.D{}
	if f.TenantName != "" {
		filter = append(filter, bson.E{Key: "organization_name", Value: f.TenantName})
	}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "action", Value: f.Type})
	}
	if !f.Since.IsZero() {
		filter = append(filter, bson.E{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: f.Since}}})
	}
	return filter
}

// List returns matching events, newest first
func (r *AuditRepository) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Skip > 0 {
		opts.SetSkip(int64(f.Skip))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.coll.Find(ctx, auditFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", classify(err))
	}
	defer cur.Close(ctx)

	var docs []auditDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode audit events: %w", classify(err))
	}

	events := make([]audit.Event, 0, len(docs))
	for _, d := range docs {
		e := audit.Event(d)
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	return events, nil
}

// Count returns the number of matching events
func (r *AuditRepository) Count(ctx context.Context, f audit.Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, auditFilter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", classify(err))
	}
	return n, nil
}
