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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orgsvc/orgsvc/internal/audit"
	"github.com/orgsvc/orgsvc/internal/id"
	"github.com/orgsvc/orgsvc/internal/observability/logger"
)

var tracer = otel.Tracer("github.com/orgsvc/orgsvc/internal/tenant")

// DefaultOperationTimeout bounds the detached part of a mutation.
const DefaultOperationTimeout = 5 * time.Minute

// Operation names used in metrics and logs.
const (
	OpCreate    = "create"
	OpRename    = "rename"
	OpDelete    = "delete"
	OpReconcile = "reconcile"
)

// Recorder receives operational measurements.
type Recorder interface {
	RecordOperation(ctx context.Context, op string, err error)
	RecordMigration(ctx context.Context, d time.Duration, documents int64, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, string, error) {}

func (nopRecorder) RecordMigration(context.Context, time.Duration, int64, error) {}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithOperationTimeout bounds the storage work of a mutation once it has
// passed validation. That work runs detached from the caller's
// cancellation so that cleanup always happens.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithReconcileGrace sets how old an unowned collection must be before
// Reconcile drops it. It should exceed the operation timeout of every
// process that mutates the directory. Defaults to twice the operation
// timeout.
func WithReconcileGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.grace = d
		}
	}
}

// Service is the tenant directory. Create, Rename and Delete are serialized
// per normalized name; operations on different tenants run in parallel.
type Service struct {
	repo        Repository
	storage     Storage
	auditLogger audit.Logger
	locks       *lockTable
	recorder    Recorder
	now         func() time.Time
	opTimeout   time.Duration
	grace       time.Duration
}

// NewService creates a new tenant service
func NewService(repo Repository, storage Storage, auditLogger audit.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		storage:     storage,
		auditLogger: auditLogger,
		locks:       newLockTable(),
		recorder:    nopRecorder{},
		now:         time.Now,
		opTimeout:   DefaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new tenant.
type CreateParams struct {
	Name       string
	AdminRef   string
	AdminEmail string
}

// Lookup returns the active tenant with the given name.
func (s *Service) Lookup(ctx context.Context, name string) (*Tenant, error) {
	name = NormalizeName(name)
	if ValidateName(name) != nil {
		return nil, ErrTenantNotFound
	}
	return s.repo.GetByName(ctx, name)
}

// GetByID returns a tenant by id, including deleted ones.
func (s *Service) GetByID(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}

// List lists active tenants, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// Count returns the number of active tenants.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Stats returns the active tenant count and the most recently created tenants.
func (s *Service) Stats(ctx context.Context, recent int) (*Stats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tenants: %w", err)
	}
	latest, err := s.repo.List(ctx, recent, 0)
	if err != nil {
		return nil, fmt.Errorf("list recent tenants: %w", err)
	}
	return &Stats{TotalTenants: total, Recent: latest}, nil
}

// DocumentCount returns the number of data documents stored for a tenant.
func (s *Service) DocumentCount(ctx context.Context, name string) (int64, error) {
	t, err := s.Lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.storage.CountDocuments(ctx, t.StorageID)
}

// Create registers a tenant and provisions its collection.
func (s *Service) Create(ctx context.Context, p CreateParams) (t *Tenant, err error) {
	name := NormalizeName(p.Name)
	ctx, span := tracer.Start(ctx, "tenant.Create", trace.WithAttributes(attribute.String("tenant.name", name)))
	defer func() { s.finish(ctx, span, OpCreate, err) }()

	event := audit.Event{
		Type:       audit.TypeOrgCreated,
		TenantName: name,
		Resource:   StorageIDFor(name),
	}
	defer func() { s.audit(ctx, event, err) }()

	if err := ValidateName(name); err != nil {
		return nil, err
	}

	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.ensureAbsent(ctx, name); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t = &Tenant{
		ID:         id.NewUUIDv7(),
		Name:       name,
		StorageID:  StorageIDFor(name),
		AdminRef:   p.AdminRef,
		AdminEmail: p.AdminEmail,
		Plan:       PlanBasic,
		Status:     StatusActive,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	event.TenantID = t.ID

	octx, cancel := s.detach(ctx)
	defer cancel()

	created, err := s.provision(octx, t)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(octx, t); err != nil {
		// A conflict here means another writer registered the name and now
		// owns the collection.
		if created && !errors.Is(err, ErrTenantExists) {
			if derr := s.storage.DropCollection(octx, t.StorageID); derr != nil {
				slog.ErrorContext(ctx, "failed to drop collection after directory insert failed",
					logger.Component("tenant"),
					logger.TenantName(name),
					logger.StorageID(t.StorageID),
					logger.Error(derr),
				)
			}
		}
		return nil, fmt.Errorf("register tenant %s: %w", name, err)
	}

	slog.InfoContext(ctx, "tenant created",
		logger.Component("tenant"),
		logger.TenantID(t.ID),
		logger.TenantName(name),
		logger.StorageID(t.StorageID),
	)
	return t, nil
}

// Rename moves a tenant to a new name, migrating its collection. The
// directory entry changes only after all documents are copied. A failed
// rename leaves the tenant usable under its old name.
func (s *Service) Rename(ctx context.Context, oldName, newName string) (t *Tenant, err error) {
	oldName, newName = NormalizeName(oldName), NormalizeName(newName)
	ctx, span := tracer.Start(ctx, "tenant.Rename", trace.WithAttributes(
		attribute.String("tenant.old_name", oldName),
		attribute.String("tenant.new_name", newName),
	))
	defer func() { s.finish(ctx, span, OpRename, err) }()

	event := audit.Event{
		Type:       audit.TypeOrgRenamed,
		TenantName: oldName,
		Resource:   StorageIDFor(oldName),
		Metadata: map[string]any{
			audit.AttrOldName:      oldName,
			audit.AttrNewName:      newName,
			audit.AttrOldStorageID: StorageIDFor(oldName),
			audit.AttrNewStorageID: StorageIDFor(newName),
		},
	}
	defer func() { s.audit(ctx, event, err) }()

	if err := ValidateName(newName); err != nil {
		return nil, err
	}

	if oldName == newName {
		event.Metadata[audit.AttrNoop] = true
		t, err = s.Lookup(ctx, oldName)
		if t != nil {
			event.TenantID = t.ID
		}
		return t, err
	}

	unlock, err := s.locks.lock(ctx, oldName, newName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	src, err := s.Lookup(ctx, oldName)
	if err != nil {
		return nil, err
	}
	event.TenantID = src.ID

	if err := s.ensureAbsent(ctx, newName); err != nil {
		return nil, err
	}

	mctx, cancel := s.detach(ctx)
	defer cancel()

	t, err = s.migrate(mctx, src, newName)
	if err != nil {
		if phase := migrationPhase(err); phase != "" {
			event.Metadata[audit.AttrPhase] = phase
		}
		return nil, err
	}
	event.TenantName = t.Name
	return t, nil
}

// UpdateAdminEmail records a new admin email on the directory entry. The
// write is a compare-and-swap on the version read under the tenant lock.
func (s *Service) UpdateAdminEmail(ctx context.Context, name, email string) (*Tenant, error) {
	name = NormalizeName(name)
	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := s.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if t.AdminEmail == email {
		return t, nil
	}

	uctx, cancel := s.detach(ctx)
	defer cancel()

	now := s.now().UTC()
	if err := s.repo.UpdateAdminEmail(uctx, t.ID, email, t.Version, now); err != nil {
		return nil, fmt.Errorf("update admin email of %s: %w", name, err)
	}
	t.AdminEmail = email
	t.Version++
	t.UpdatedAt = now
	return t, nil
}

// Delete removes a tenant. The directory entry goes first so the tenant is
// unreachable at once; the collection is dropped afterwards on a best-effort
// basis and left for Reconcile if that fails.
func (s *Service) Delete(ctx context.Context, name string) (err error) {
	name = NormalizeName(name)
	ctx, span := tracer.Start(ctx, "tenant.Delete", trace.WithAttributes(attribute.String("tenant.name", name)))
	defer func() { s.finish(ctx, span, OpDelete, err) }()

	event := audit.Event{
		Type:       audit.TypeOrgDeleted,
		TenantName: name,
		Resource:   StorageIDFor(name),
	}
	defer func() { s.audit(ctx, event, err) }()

	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	t, err := s.Lookup(ctx, name)
	if err != nil {
		return err
	}
	event.TenantID = t.ID

	dctx, cancel := s.detach(ctx)
	defer cancel()

	if err := s.repo.MarkDeleted(dctx, t.ID, t.Version, s.now().UTC()); err != nil {
		return fmt.Errorf("remove directory entry for %s: %w", name, err)
	}

	dropped := true
	if err := s.storage.DropCollection(dctx, t.StorageID); err != nil {
		dropped = false
		slog.WarnContext(ctx, "tenant removed but collection drop failed; left for reconciliation",
			logger.Component("tenant"),
			logger.TenantName(name),
			logger.StorageID(t.StorageID),
			logger.Error(err),
		)
	}
	event.Metadata = map[string]any{"collection_dropped": dropped}

	slog.InfoContext(ctx, "tenant deleted",
		logger.Component("tenant"),
		logger.TenantID(t.ID),
		logger.TenantName(name),
	)
	return nil
}

// Reconcile compares tenant collections with the directory. Collections no
// active tenant owns are dropped unless dryRun is set. Unowned collections
// younger than the reconcile grace are only reported as pending, since a
// create or rename in another process may be about to claim them. Active
// tenants without a collection are reported and logged as inconsistent but
// never repaired.
func (s *Service) Reconcile(ctx context.Context, dryRun bool) (report *ReconcileReport, err error) {
	ctx, span := tracer.Start(ctx, "tenant.Reconcile", trace.WithAttributes(attribute.Bool("dry_run", dryRun)))
	defer func() { s.finish(ctx, span, OpReconcile, err) }()

	collections, err := s.storage.ListCollections(ctx, StorageIDPrefix)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	present := make(map[string]bool, len(collections))
	for _, c := range collections {
		present[c] = true
	}

	owned := make(map[string]bool)
	report = &ReconcileReport{}
	const page = 500
	for offset := 0; ; offset += page {
		batch, err := s.repo.List(ctx, page, offset)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
		for _, t := range batch {
			owned[t.StorageID] = true
			if !present[t.StorageID] {
				report.Missing = append(report.Missing, t.Name)
				slog.ErrorContext(ctx, "active tenant has no collection",
					logger.Component("tenant"),
					logger.ErrorType("inconsistent"),
					logger.TenantName(t.Name),
					logger.StorageID(t.StorageID),
				)
			}
		}
		if len(batch) < page {
			break
		}
	}

	cutoff := s.now().UTC().Add(-s.reconcileGrace())
	var errs *multierror.Error
	for _, c := range collections {
		if owned[c] {
			continue
		}
		settled, err := s.settled(ctx, c, cutoff)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !settled {
			report.Pending = append(report.Pending, c)
			continue
		}
		report.Orphans = append(report.Orphans, c)
		if dryRun {
			continue
		}
		dropped, err := s.dropOrphan(ctx, c, cutoff)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if dropped {
			report.Dropped = append(report.Dropped, c)
		}
	}

	return report, errs.ErrorOrNil()
}

func (s *Service) reconcileGrace() time.Duration {
	if s.grace > 0 {
		return s.grace
	}
	return 2 * s.opTimeout
}

// settled reports whether an unowned collection was last touched before
// cutoff. Create and rename write the metadata document before any data, so
// a collection without metadata that already holds documents is debris, and
// an empty one without metadata may still be in flight.
func (s *Service) settled(ctx context.Context, storageID string, cutoff time.Time) (bool, error) {
	meta, err := s.storage.ReadMetadata(ctx, storageID)
	switch {
	case err == nil:
		return meta.UpdatedAt.Before(cutoff), nil
	case errors.Is(err, ErrMetadataNotFound):
		n, err := s.storage.CountDocuments(ctx, storageID)
		if err != nil {
			return false, fmt.Errorf("inspect %s: %w", storageID, err)
		}
		return n > 0, nil
	default:
		return false, fmt.Errorf("read metadata of %s: %w", storageID, err)
	}
}

// dropOrphan re-checks ownership and age before dropping. The tenant lock
// only serializes with writers in this process; the age check covers the
// others.
func (s *Service) dropOrphan(ctx context.Context, storageID string, cutoff time.Time) (bool, error) {
	name, ok := NameFromStorageID(storageID)
	if !ok {
		return false, nil
	}
	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrTenantNotFound) {
		return false, fmt.Errorf("check owner of %s: %w", storageID, err)
	}
	if settled, err := s.settled(ctx, storageID, cutoff); err != nil || !settled {
		return false, err
	}
	if err := s.storage.DropCollection(ctx, storageID); err != nil {
		return false, fmt.Errorf("drop orphan %s: %w", storageID, err)
	}
	slog.InfoContext(ctx, "dropped orphaned collection",
		logger.Component("tenant"),
		logger.StorageID(storageID),
	)
	return true, nil
}

// ensureAbsent fails with ErrTenantExists when name is held by an active tenant.
func (s *Service) ensureAbsent(ctx context.Context, name string) error {
	_, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrTenantExists, name)
	case errors.Is(err, ErrTenantNotFound):
		return nil
	default:
		return fmt.Errorf("check tenant %s: %w", name, err)
	}
}

// provision creates the collection for a new tenant and writes its metadata
// document. A collection left behind by an earlier partial attempt is reused.
// created reports whether this call created the collection.
func (s *Service) provision(ctx context.Context, t *Tenant) (created bool, err error) {
	err = s.storage.CreateCollection(ctx, t.StorageID)
	switch {
	case err == nil:
		created = true
	case errors.Is(err, ErrCollectionExists):
		n, cerr := s.storage.CountDocuments(ctx, t.StorageID)
		if cerr != nil {
			return false, fmt.Errorf("inspect existing collection %s: %w", t.StorageID, cerr)
		}
		if n > 0 {
			// Data from a tenant deleted earlier; never hand it to a new owner.
			slog.WarnContext(ctx, "replacing orphaned collection that still holds data",
				logger.Component("tenant"),
				logger.StorageID(t.StorageID),
				logger.DocumentCount(n),
			)
			if err := s.recreate(ctx, t.StorageID); err != nil {
				return false, err
			}
			created = true
		}
	default:
		return false, fmt.Errorf("create collection %s: %w", t.StorageID, err)
	}

	if err := s.storage.UpsertMetadata(ctx, t.StorageID, metadataFor(t)); err != nil {
		if created {
			if derr := s.storage.DropCollection(ctx, t.StorageID); derr != nil {
				err = multierror.Append(err, derr)
			}
		}
		return false, fmt.Errorf("write metadata to %s: %w", t.StorageID, err)
	}
	return created, nil
}

// recreate drops and creates a collection once.
func (s *Service) recreate(ctx context.Context, storageID string) error {
	if err := s.storage.DropCollection(ctx, storageID); err != nil {
		return fmt.Errorf("drop stale collection %s: %w", storageID, err)
	}
	if err := s.storage.CreateCollection(ctx, storageID); err != nil {
		return fmt.Errorf("recreate collection %s: %w", storageID, err)
	}
	return nil
}

// detach returns a context that ignores the caller's cancellation but keeps
// its values, bounded by the operation timeout.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

func (s *Service) audit(ctx context.Context, event audit.Event, err error) {
	if s.auditLogger == nil {
		return
	}
	event.Outcome = audit.OutcomeSuccess
	if err != nil {
		event.Outcome = audit.OutcomeFailure
		event.Reason = err.Error()
	}
	s.auditLogger.Log(context.WithoutCancel(ctx), event)
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.recorder.RecordOperation(ctx, op, err)
}
