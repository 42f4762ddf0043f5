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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// TestPurpose: Validates JSON output, level filtering and the service attribute.
// Scope: Unit Test
// Expected: Debug records are dropped at info level; emitted records carry service and typed attributes.
// Test Case ID: LOG-01
func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", ServiceName: "orgsvc", Output: &buf})

	l.Debug("hidden")
	l.Info("tenant created", TenantName("acme"), StorageID("org_acme"), DocumentCount(3))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "tenant created", rec["msg"])
	assert.Equal(t, "orgsvc", rec["service"])
	assert.Equal(t, "acme", rec["tenant_name"])
	assert.Equal(t, "org_acme", rec["storage_id"])
	assert.EqualValues(t, 3, rec["documents"])
}

// TestPurpose: Validates that trace and span ids are attached when the context carries a span.
// Scope: Unit Test
// Expected: trace_id and span_id appear in the record.
// Test Case ID: LOG-02
func TestTraceContextHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.InfoContext(ctx, "traced")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, sc.TraceID().String(), rec["trace_id"])
	assert.Equal(t, sc.SpanID().String(), rec["span_id"])
}

// TestPurpose: Validates fan-out to several sinks with independent levels.
// Scope: Unit Test
// Expected: Each sink receives only records at or above its level.
// Test Case ID: LOG-03
func TestFanoutHandler(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	l := slog.New(h).With(Component("tenant"))

	l.Info("routine")
	l.Error("broken")

	assert.Contains(t, debugBuf.String(), "routine")
	assert.Contains(t, debugBuf.String(), "broken")
	assert.NotContains(t, errorBuf.String(), "routine")
	assert.Contains(t, errorBuf.String(), "component=tenant")
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
