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
	"log/slog"
	"time"
)

// Filter selects persisted audit events.
type Filter struct {
	TenantName string
	Type       string
	Since      time.Time
	Limit      int
	Skip       int
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// StoreLogger writes audit events to a Store.
// A failed write is logged and dropped so the audited action is never
// failed by the audit trail.
type StoreLogger struct {
	store Store
}

// NewStoreLogger creates a Logger that persists to store.
func NewStoreLogger(store Store) *StoreLogger {
	return &StoreLogger{store: store}
}

// Log persists the event
func (l *StoreLogger) Log(ctx context.Context, event Event) {
	event = Prepare(ctx, event)
	event.Metadata = Redact(event.Metadata)

	// The event is recorded even if the request that produced it is gone.
	ctx = context.WithoutCancel(ctx)
	if err := l.store.Save(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to persist audit event",
			slog.String("audit_id", event.ID),
			slog.String("audit_type", event.Type),
			slog.String("error", err.Error()),
			slog.String("component", "audit"),
		)
	}
}

// MultiLogger fans an event out to several loggers.
type MultiLogger []Logger

// NewMultiLogger combines loggers; nil entries are skipped.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Log forwards the event to every logger with the same id and timestamp.
func (m MultiLogger) Log(ctx context.Context, event Event) {
	event = Prepare(ctx, event)
	for _, l := range m {
		l.Log(ctx, event)
	}
}
