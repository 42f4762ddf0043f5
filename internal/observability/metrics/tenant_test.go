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

package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgsvc/orgsvc/internal/observability/metrics"
	"github.com/orgsvc/orgsvc/internal/store/memory"
	"github.com/orgsvc/orgsvc/internal/tenant"
)

var _ tenant.Recorder = (*metrics.TenantInstruments)(nil)

// TestPurpose: Validates that tenant instruments can be registered and driven by the tenant service.
// Scope: Unit Test
// Expected: No panics with a disabled meter; the service accepts the recorder.
// Test Case ID: MET-01
func TestTenantInstruments_Record(t *testing.T) {
	inst, err := metrics.NewTenantInstruments(metrics.New(metrics.Config{Enabled: false}, "orgsvc-test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		inst.RecordOperation(ctx, tenant.OpCreate, nil)
		inst.RecordOperation(ctx, tenant.OpRename, errors.New("boom"))
		inst.RecordMigration(ctx, 120*time.Millisecond, 42, nil)
		inst.RecordMigration(ctx, time.Millisecond, 0, errors.New("boom"))
	})

	svc := tenant.NewService(memory.NewTenantRepository(), memory.NewCollectionStore(), nil, tenant.WithRecorder(inst))
	_, err = svc.Create(ctx, tenant.CreateParams{Name: "acme"})
	require.NoError(t, err)
	_, err = svc.Rename(ctx, "acme", "acme_corp")
	require.NoError(t, err)
}
