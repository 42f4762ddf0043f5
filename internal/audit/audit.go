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
	"strings"
	"time"

	"github.com/orgsvc/orgsvc/internal/id"
)

// Event types
const (
	TypeOrgCreated       = "organization_created"
	TypeOrgRenamed       = "organization_renamed"
	TypeOrgUpdated       = "organization_updated"
	TypeOrgDeleted       = "organization_deleted"
	TypeAdminLogin       = "admin_login"
	TypeAdminLoginFailed = "admin_login_failed"
	TypeAdminLogout      = "admin_logout"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Common metadata keys
const (
	AttrOldStorageID = "old_storage_id"
	AttrNewStorageID = "new_storage_id"
	AttrOldName      = "old_name"
	AttrNewName      = "new_name"
	AttrPhase        = "phase"
	AttrNoop         = "noop"
)

// Event represents an auditable action
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"action"`
	TenantID   string         `json:"organization_id,omitempty"`
	TenantName string         `json:"organization_name,omitempty"`
	ActorID    string         `json:"admin_id,omitempty"`
	ActorEmail string         `json:"admin_email,omitempty"`
	Resource   string         `json:"resource,omitempty"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
}

// Succeeded reports whether the event records a successful action.
func (e Event) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// Prepare fills the fields every sink expects: id, timestamp, outcome and
// request or actor details carried by ctx.
func Prepare(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = id.NewUUIDv7()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeSuccess
	}
	if info, ok := RequestInfoFrom(ctx); ok {
		if event.IPAddress == "" {
			event.IPAddress = info.IPAddress
		}
		if event.UserAgent == "" {
			event.UserAgent = info.UserAgent
		}
	}
	if actor, ok := ActorFrom(ctx); ok {
		if event.ActorID == "" {
			event.ActorID = actor.ID
		}
		if event.ActorEmail == "" {
			event.ActorEmail = actor.Email
		}
	}
	return event
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	event = Prepare(ctx, event)

	attrs := []any{
		slog.String("audit_id", event.ID),
		slog.String("audit_type", event.Type),
		slog.String("outcome", event.Outcome),
		slog.String("tenant_id", event.TenantID),
		slog.String("tenant_name", event.TenantName),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range Redact(event.Metadata) {
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	level := slog.LevelInfo
	if !event.Succeeded() {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// Redact returns a copy of metadata with secret-looking values masked.
func Redact(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if isSecret(k) {
			v = "[REDACTED]"
		}
		out[k] = v
	}
	return out
}

var secretMarkers = []string{"password", "secret", "token", "key", "authorization", "hash", "credential"}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretMarkers {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
