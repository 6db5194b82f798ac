package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"didregistry/internal/registry/keys"
	"didregistry/internal/registry/models"
	"didregistry/internal/registry/notify"
	dErrors "didregistry/pkg/domain-errors"
	"didregistry/pkg/platform/sentinel"
	"didregistry/pkg/requestcontext"
)

// CreateDID registers a fresh identifier bound to subject, controlled by the
// caller. The counter advances exactly once; a hash collision with an
// existing identifier is an invariant violation, never an overwrite.
func (s *Service) CreateDID(ctx context.Context, caller, subject common.Address) (common.Hash, error) {
	start := time.Now()

	if subject == (common.Address{}) {
		return common.Hash{}, dErrors.New(dErrors.CodeInvalidInput, "subject cannot be the zero identity")
	}
	if caller == (common.Address{}) {
		return common.Hash{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	id, err := s.allocator.Allocate(ctx, caller)
	if err != nil {
		return common.Hash{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate identifier")
	}

	record, err := models.NewDIDRecord(id, subject, caller, requestcontext.Now(ctx))
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Statistically impossible for a keccak256-derived identifier;
			// reaching this line means the derivation invariant is broken.
			s.logger.ErrorContext(ctx, "identifier collision on create",
				"id", id.Hex(),
				"caller", caller.Hex(),
			)
			return common.Hash{}, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "identifier collision")
		}
		return common.Hash{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create record")
	}

	s.stream.Emit(ctx, notify.Event{
		Type:      notify.EventCreated,
		ID:        id,
		Timestamp: requestcontext.Now(ctx),
	})
	s.incrementCreated()
	if s.metrics != nil {
		s.metrics.ObserveCreateDID(start)
	}

	s.logger.InfoContext(ctx, "did created",
		"id", id.Hex(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return id, nil
}

// DeleteDID removes the record and its entire key set. Only the current
// controller may delete; the check and the removal share one atomic section.
func (s *Service) DeleteDID(ctx context.Context, caller common.Address, id common.Hash) error {
	start := time.Now()

	err := s.records.Delete(ctx, id, func(r *models.DIDRecord) error {
		return r.AuthorizeController(caller)
	})
	if err != nil {
		return s.mutationErr(ctx, err, "failed to delete record")
	}

	s.stream.Emit(ctx, notify.Event{
		Type:      notify.EventDeleted,
		ID:        id,
		Timestamp: requestcontext.Now(ctx),
	})
	s.incrementDeleted()
	if s.metrics != nil {
		s.metrics.ObserveMutation(start)
	}

	s.logger.InfoContext(ctx, "did deleted",
		"id", id.Hex(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// GetController returns the record's controller, or the zero identity when
// the identifier was never created or has been deleted. Read-only, no
// authorization.
func (s *Service) GetController(ctx context.Context, id common.Hash) (common.Address, error) {
	record, err := s.records.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return common.Address{}, nil
		}
		return common.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return record.Controller, nil
}

// GetSubject returns the record's subject with the same absence behavior as
// GetController.
func (s *Service) GetSubject(ctx context.Context, id common.Hash) (common.Address, error) {
	record, err := s.records.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return common.Address{}, nil
		}
		return common.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return record.Subject, nil
}

// GetKeys returns the record's keys as four equal-length aligned arrays,
// empty when the record is absent or keyless.
func (s *Service) GetKeys(ctx context.Context, id common.Hash) (keys.KeyList, error) {
	list, err := s.keys.ListKeys(ctx, id)
	if err != nil {
		return keys.KeyList{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list keys")
	}
	return list, nil
}

// SetController transfers control of the record. The old controller's
// authorization is revoked the moment the call commits.
func (s *Service) SetController(ctx context.Context, caller common.Address, id common.Hash, newController common.Address) error {
	start := time.Now()

	if newController == (common.Address{}) {
		// A record must always have a controller; handing it to the zero
		// identity would orphan it.
		return dErrors.New(dErrors.CodeInvalidInput, "new controller cannot be the zero identity")
	}

	now := requestcontext.Now(ctx)
	_, err := s.records.Execute(ctx, id,
		func(r *models.DIDRecord) error {
			return r.AuthorizeController(caller)
		},
		func(r *models.DIDRecord) {
			r.ApplyControllerChange(newController, now)
		},
	)
	if err != nil {
		return s.mutationErr(ctx, err, "failed to set controller")
	}

	s.stream.Emit(ctx, notify.Event{
		Type:          notify.EventControllerChanged,
		ID:            id,
		NewController: newController,
		Timestamp:     now,
	})
	s.incrementControllerChanges()
	if s.metrics != nil {
		s.metrics.ObserveMutation(start)
	}

	s.logger.InfoContext(ctx, "did controller changed",
		"id", id.Hex(),
		"new_controller", newController.Hex(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// AddKey appends a public key to the record's ordered key set. Append-only:
// keys are never removed, reordered, or deduplicated.
func (s *Service) AddKey(ctx context.Context, caller common.Address, id common.Hash, key models.Key) error {
	start := time.Now()

	now := requestcontext.Now(ctx)
	_, err := s.records.Execute(ctx, id,
		func(r *models.DIDRecord) error {
			return r.AuthorizeController(caller)
		},
		func(r *models.DIDRecord) {
			r.ApplyKey(key, now)
		},
	)
	if err != nil {
		return s.mutationErr(ctx, err, "failed to add key")
	}

	s.incrementKeysAdded()
	if s.metrics != nil {
		s.metrics.ObserveMutation(start)
	}
	return nil
}

// mutationErr translates store-boundary errors for mutating operations.
// Absent identifiers surface as NotFound; wrong callers keep their
// Unauthorized code.
func (s *Service) mutationErr(ctx context.Context, err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "identifier is not registered")
	case dErrors.HasCode(err, dErrors.CodeUnauthorized):
		s.incrementAuthFailures()
		s.logger.WarnContext(ctx, "mutation rejected by controller check",
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
