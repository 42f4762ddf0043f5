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

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"hash", true},
		{"password_hash", true},
		{"credential", true},
		{"organization_name", false},
		{"old_storage_id", false},
		{"tenant_id", false},
		{"email", false},
		{"status", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.isSecret, isSecret(tt.key))
		})
	}
}

type recordingStore struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingStore) Save(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingStore) List(context.Context, Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...), nil
}

func (s *recordingStore) Count(context.Context, Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.events)), nil
}

// TestPurpose: Validates that persisted events carry request details from the context and never store secrets.
// Scope: Unit Test
// Security: Audit completeness and secret masking
// Expected: Event gets an id, timestamp, IP and user agent from ctx; password metadata is redacted.
// Test Case ID: AUD-02
func TestAudit_StoreLogger_EnrichesAndRedacts(t *testing.T) {
	store := &recordingStore{}
	l := NewStoreLogger(store)

	ctx := WithRequestInfo(context.Background(), RequestInfo{IPAddress: "10.0.0.1", UserAgent: "curl/8"})
	ctx = WithActor(ctx, Actor{ID: "admin-1", Email: "owner@acme.test"})

	l.Log(ctx, Event{
		Type:       TypeOrgCreated,
		TenantName: "acme",
		Metadata:   map[string]any{"password": "hunter22", "plan": "basic"},
	})

	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, OutcomeSuccess, ev.Outcome)
	assert.Equal(t, "10.0.0.1", ev.IPAddress)
	assert.Equal(t, "curl/8", ev.UserAgent)
	assert.Equal(t, "admin-1", ev.ActorID)
	assert.Equal(t, "owner@acme.test", ev.ActorEmail)
	assert.Equal(t, "[REDACTED]", ev.Metadata["password"])
	assert.Equal(t, "basic", ev.Metadata["plan"])
}

// TestPurpose: Validates that a failing audit store does not propagate into the audited action.
// Scope: Unit Test
// Expected: Log returns normally when the store rejects the write.
// Test Case ID: AUD-03
func TestAudit_StoreLogger_SwallowsStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	l := NewStoreLogger(store)

	assert.NotPanics(t, func() {
		l.Log(context.Background(), Event{Type: TypeOrgDeleted, Outcome: OutcomeFailure})
	})
	assert.Empty(t, store.events)
}

// TestPurpose: Validates that fan-out delivers the same event identity to every sink.
// Scope: Unit Test
// Expected: Both stores receive one event with an identical id and timestamp.
// Test Case ID: AUD-04
func TestAudit_MultiLogger_SharesEventIdentity(t *testing.T) {
	a, b := &recordingStore{}, &recordingStore{}
	m := NewMultiLogger(NewStoreLogger(a), nil, NewStoreLogger(b), NewSlogLogger())

	m.Log(context.Background(), Event{Type: TypeOrgRenamed, TenantName: "acme_corp"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, a.events[0].ID, b.events[0].ID)
	assert.Equal(t, a.events[0].Timestamp, b.events[0].Timestamp)
}
