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
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/orgsvc/orgsvc/internal/observability/logger"
)

// Migration phases, in execution order.
const (
	PhaseProvision = "provision"
	PhaseCopy      = "copy"
	PhaseCommit    = "commit"
)

// MigrationError reports the phase in which a rename failed. After a
// failure every step already taken has been compensated unless the error
// also matches ErrInconsistent.
type MigrationError struct {
	Phase string
	Err   error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("rename failed during %s: %v", e.Phase, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func migrationPhase(err error) string {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Phase
	}
	return ""
}

// compensation undoes one completed step.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// compensator runs registered compensations in reverse order.
type compensator struct {
	steps []compensation
}

func (c *compensator) push(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, compensation{name: name, undo: undo})
}

// run executes every compensation, last registered first, and keeps going
// after a failure. The returned error aggregates all failures.
func (c *compensator) run(ctx context.Context) error {
	var errs *multierror.Error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	c.steps = nil
	return errs.ErrorOrNil()
}

// discard forgets all compensations once the operation is committed.
func (c *compensator) discard() {
	c.steps = nil
}

// migrate copies src into the collection for newName and repoints the
// directory entry. Callers hold the locks for both names and have checked
// that newName is free.
func (s *Service) migrate(ctx context.Context, src *Tenant, newName string) (*Tenant, error) {
	start := time.Now()
	target := StorageIDFor(newName)
	var (
		comp   compensator
		copied int64
	)

	fail := func(phase string, cause error) (*Tenant, error) {
		err := s.abort(ctx, &comp, src, target, phase, cause)
		s.recorder.RecordMigration(ctx, time.Since(start), copied, err)
		return nil, err
	}

	// Provision
	ok, err := s.storage.CollectionExists(ctx, src.StorageID)
	if err != nil {
		return fail(PhaseProvision, fmt.Errorf("inspect source collection: %w", err))
	}
	if !ok {
		return fail(PhaseProvision, fmt.Errorf("%w: collection %s of tenant %s is missing", ErrInconsistent, src.StorageID, src.Name))
	}

	if err := s.storage.CreateCollection(ctx, target); err != nil {
		if !errors.Is(err, ErrCollectionExists) {
			return fail(PhaseProvision, fmt.Errorf("create collection %s: %w", target, err))
		}
		// No active tenant owns the name, so this is debris from an
		// earlier attempt or a deleted tenant.
		slog.WarnContext(ctx, "dropping stale collection at rename target",
			logger.Component("tenant"),
			logger.StorageID(target),
		)
		if err := s.recreate(ctx, target); err != nil {
			return fail(PhaseProvision, err)
		}
	}
	comp.push("drop "+target, func(ctx context.Context) error {
		return s.storage.DropCollection(ctx, target)
	})

	if err := s.storage.CopyIndexes(ctx, src.StorageID, target); err != nil {
		return fail(PhaseProvision, fmt.Errorf("copy indexes: %w", err))
	}

	next := *src
	next.Name = newName
	next.StorageID = target
	next.Version = src.Version + 1
	next.UpdatedAt = s.now().UTC()

	if err := s.storage.UpsertMetadata(ctx, target, metadataFor(&next)); err != nil {
		return fail(PhaseProvision, fmt.Errorf("write metadata: %w", err))
	}

	// Copy
	copied, err = s.storage.CopyDocuments(ctx, src.StorageID, target)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			err = fmt.Errorf("%w: collection %s of tenant %s is missing: %w", ErrInconsistent, src.StorageID, src.Name, err)
		}
		return fail(PhaseCopy, err)
	}

	// Commit
	if err := s.repo.Rename(ctx, &next, src.Name, src.Version); err != nil {
		return fail(PhaseCommit, fmt.Errorf("update directory entry: %w", err))
	}
	comp.discard()

	if err := s.storage.DropCollection(ctx, src.StorageID); err != nil {
		slog.WarnContext(ctx, "rename committed but old collection was not dropped; left for reconciliation",
			logger.Component("tenant"),
			logger.OldStorageID(src.StorageID),
			logger.NewStorageID(target),
			logger.Error(err),
		)
	}

	s.recorder.RecordMigration(ctx, time.Since(start), copied, nil)
	slog.InfoContext(ctx, "tenant renamed",
		logger.Component("tenant"),
		logger.TenantID(src.ID),
		logger.String("old_name", src.Name),
		logger.String("new_name", newName),
		logger.OldStorageID(src.StorageID),
		logger.NewStorageID(target),
		logger.DocumentCount(copied),
	)
	return &next, nil
}

// abort runs the compensations for a failed migration. When they fail too,
// the target collection may be orphaned and the returned error also matches
// ErrInconsistent.
func (s *Service) abort(ctx context.Context, comp *compensator, src *Tenant, target, phase string, cause error) error {
	merr := &MigrationError{Phase: phase, Err: cause}

	cerr := comp.run(ctx)
	if cerr == nil {
		slog.WarnContext(ctx, "rename rolled back",
			logger.Component("tenant"),
			logger.TenantName(src.Name),
			logger.NewStorageID(target),
			logger.Phase(phase),
			logger.Error(cause),
		)
		return merr
	}

	slog.ErrorContext(ctx, "rename rollback failed; storage needs operator attention",
		logger.Component("tenant"),
		logger.ErrorType("inconsistent"),
		logger.TenantName(src.Name),
		logger.OldStorageID(src.StorageID),
		logger.NewStorageID(target),
		logger.Phase(phase),
		logger.Error(cause),
		slog.String("compensation_error", cerr.Error()),
	)
	return multierror.Append(merr, fmt.Errorf("%w: %w", ErrInconsistent, cerr))
}
