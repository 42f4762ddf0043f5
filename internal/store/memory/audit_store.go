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
	"maps"
	"sync"

	"github.com/orgsvc/orgsvc/internal/audit"
)

// AuditStore implements audit.Store
type AuditStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

// NewAuditStore creates an empty audit store
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Save appends an event
func (s *AuditStore) Save(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Metadata = maps.Clone(event.Metadata)
	s.events = append(s.events, event)
	return nil
}

func matches(e audit.Event, f audit.Filter) bool {
	if f.TenantName != "" && e.TenantName != f.TenantName {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// List returns matching events, newest first
func (s *AuditStore) List(_ context.Context, f audit.Filter) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []audit.Event{}
	skipped := 0
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if !matches(e, f) {
			continue
		}
		if skipped < f.Skip {
			skipped++
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of matching events
func (s *AuditStore) Count(_ context.Context, f audit.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.events {
		if matches(e, f) {
			n++
		}
	}
	return n, nil
}
