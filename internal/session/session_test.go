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

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgsvc/orgsvc/internal/identity"
)

func testAdmin() *identity.Admin {
	return &identity.Admin{ID: "admin-1", Email: "owner@acme.test", TenantID: "tenant-1"}
}

// TestPurpose: Validates that an issued token round-trips through verification with all admin claims.
// Scope: Unit Test
// Security: Token integrity
// Expected: Claims carry admin id, email and organization id; expires_in matches the TTL.
// Test Case ID: SES-01
func TestSession_IssueVerify(t *testing.T) {
	s, err := NewService(Config{Secret: "test-secret", Issuer: "orgsvc", TTL: 30 * time.Minute})
	require.NoError(t, err)

	tok, err := s.Issue(testAdmin())
	require.NoError(t, err)
	assert.EqualValues(t, 1800, tok.ExpiresIn)

	claims, err := s.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "owner@acme.test", claims.Email)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

// TestPurpose: Validates that expired tokens are rejected with a distinguishable error.
// Scope: Unit Test
// Security: Session lifetime enforcement
// Expected: ErrTokenExpired once the clock passes the expiry.
// Test Case ID: SES-02
func TestSession_Expired(t *testing.T) {
	s, err := NewService(Config{Secret: "test-secret", TTL: time.Minute})
	require.NoError(t, err)

	base := time.Now()
	s.now = func() time.Time { return base }
	tok, err := s.Issue(testAdmin())
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.Verify(tok.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

// TestPurpose: Validates rejection of tampered, foreign-key and algorithm-confusion tokens.
// Scope: Unit Test
// Security: Signature verification and alg=none attacks (CWE-347)
// Expected: ErrTokenInvalid in every case.
// Test Case ID: SES-03
func TestSession_RejectsForgedTokens(t *testing.T) {
	s, err := NewService(Config{Secret: "test-secret"})
	require.NoError(t, err)
	other, err := NewService(Config{Secret: "other-secret"})
	require.NoError(t, err)

	foreign, err := other.Issue(testAdmin())
	require.NoError(t, err)
	_, err = s.Verify(foreign.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		AdminID:          "admin-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

// TestPurpose: Validates that a signing secret is mandatory.
// Scope: Unit Test
// Expected: NewService fails without a secret and defaults the TTL to 30 minutes otherwise.
// Test Case ID: SES-04
func TestSession_Config(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)

	s, err := NewService(Config{Secret: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())
}
