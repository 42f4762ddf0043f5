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

package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that locks on different tenant names do not block each other.
// Scope: Unit Test
// Expected: A second key is acquired while the first is held.
// Test Case ID: LCK-01
func TestLockTable_DistinctKeysDoNotBlock(t *testing.T) {
	lt := newLockTable()
	ctx := context.Background()

	unlockA, err := lt.lock(ctx, "alpha")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := lt.lock(ctx, "bravo")
	require.NoError(t, err)
	unlockB()
}

// TestPurpose: Validates mutual exclusion on one key.
// Scope: Unit Test
// Expected: Critical sections on the same key never overlap.
// Test Case ID: LCK-02
func TestLockTable_SameKeyIsExclusive(t *testing.T) {
	lt := newLockTable()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := lt.lock(context.Background(), "acme")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Zero(t, lt.size())
}

// TestPurpose: Validates that a waiter gives up when its context ends and leaves no entries behind.
// Scope: Unit Test
// Expected: context.DeadlineExceeded; table is empty once the holder releases.
// Test Case ID: LCK-03
func TestLockTable_WaitHonoursContext(t *testing.T) {
	lt := newLockTable()
	unlock, err := lt.lock(context.Background(), "acme")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = lt.lock(ctx, "aaa", "acme")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	assert.Zero(t, lt.size())
}

// TestPurpose: Validates multi-key locking with duplicates and opposite argument order.
// Scope: Unit Test
// Expected: No self-deadlock on duplicate keys; opposite orders do not deadlock; unlock is idempotent.
// Test Case ID: LCK-04
func TestLockTable_MultiKey(t *testing.T) {
	lt := newLockTable()

	unlock, err := lt.lock(context.Background(), "acme", "acme")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Zero(t, lt.size())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			u, err := lt.lock(context.Background(), "alpha", "bravo")
			if err == nil {
				u()
			}
		}()
		go func() {
			defer wg.Done()
			u, err := lt.lock(context.Background(), "bravo", "alpha")
			if err == nil {
				u()
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock between opposite lock orders")
	}
	assert.Zero(t, lt.size())
}

// TestPurpose: Validates that compensations run newest first and that every failure is reported.
// Scope: Unit Test
// Expected: Reverse order; aggregated error includes both failures; steps are cleared after running.
// Test Case ID: LCK-05
func TestCompensator_RunsInReverse(t *testing.T) {
	var order []string
	var c compensator
	errFirst := errors.New("first failed")
	errThird := errors.New("third failed")

	c.push("first", func(context.Context) error { order = append(order, "first"); return errFirst })
	c.push("second", func(context.Context) error { order = append(order, "second"); return nil })
	c.push("third", func(context.Context) error { order = append(order, "third"); return errThird })

	err := c.run(context.Background())
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errThird)

	assert.NoError(t, c.run(context.Background()))

	c.push("dropped", func(context.Context) error { t.Fatal("discarded step ran"); return nil })
	c.discard()
	assert.NoError(t, c.run(context.Background()))
}

// TestPurpose: Validates tenant name normalization and validation rules.
// Scope: Unit Test
// Expected: 3-50 characters of [a-z0-9_] after lower-casing and trimming.
// Test Case ID: LCK-06
func TestValidateName(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"acme", true},
		{" Acme_Corp ", true},
		{"a1_", true},
		{"ab", false},
		{"acme corp", false},
		{"acme-corp", false},
		{"ácme", false},
		{"org$", false},
		{"0123456789012345678901234567890123456789012345678_", true},
		{"0123456789012345678901234567890123456789012345678_x", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateName(NormalizeName(tt.raw))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}

	assert.Equal(t, "org_acme_corp", StorageIDFor(NormalizeName(" Acme_Corp ")))
	name, ok := NameFromStorageID("org_acme")
	assert.True(t, ok)
	assert.Equal(t, "acme", name)
	_, ok = NameFromStorageID("audit_logs")
	assert.False(t, ok)
}
