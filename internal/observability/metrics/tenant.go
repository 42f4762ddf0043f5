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

package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TenantInstruments records tenant directory operations and collection
// migrations. It satisfies tenant.Recorder.
type TenantInstruments struct {
	operations metric.Int64Counter
	migrations metric.Float64Histogram
	documents  metric.Int64Counter
}

// NewTenantInstruments registers the tenant instruments on m
func NewTenantInstruments(m *Meter) (*TenantInstruments, error) {
	ops, err := m.CreateCounter("orgsvc.tenant.operations", "Tenant directory operations by kind and outcome")
	if err != nil {
		return nil, err
	}
	mig, err := m.CreateHistogram("orgsvc.tenant.migration.duration", "Duration of collection migrations", "s")
	if err != nil {
		return nil, err
	}
	docs, err := m.CreateCounter("orgsvc.tenant.migration.documents", "Documents copied by collection migrations")
	if err != nil {
		return nil, err
	}
	return &TenantInstruments{operations: ops, migrations: mig, documents: docs}, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "failure")
	}
	return attribute.String("outcome", "success")
}

// RecordOperation counts one create, rename, delete or reconcile call
func (t *TenantInstruments) RecordOperation(ctx context.Context, op string, err error) {
	t.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), outcome(err)))
}

// RecordMigration records the duration and document count of one migration
func (t *TenantInstruments) RecordMigration(ctx context.Context, d time.Duration, documents int64, err error) {
	attrs := metric.WithAttributes(outcome(err))
	t.migrations.Record(ctx, d.Seconds(), attrs)
	if documents > 0 {
		t.documents.Add(ctx, documents, attrs)
	}
}
