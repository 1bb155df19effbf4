package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

// ViolationRepository implements storage.ViolationRepository for BadgerDB.
type ViolationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ViolationRepository = (*ViolationRepository)(nil)

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(backend *Backend) (*ViolationRepository, error) {
	idSeq, err := backend.GetSequence(violationIDSeq)
	if err != nil {
		return nil, err
	}

	return &ViolationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ViolationRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ViolationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddViolations adds one or more violations to storage.
func (r *ViolationRepository) AddViolations(ctx context.Context, violations ...*core.Violation) ([]*core.Violation, error) {
	for _, violation := range violations {
		if err := core.ValidateViolation(violation); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, violation := range violations {
			if violation.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				violation.Id = core.ID(nextID)
			}
			if violation.DetectedAt.IsZero() {
				violation.DetectedAt = core.NormalizeTime(time.Now())
			}

			key := makeViolationKey(violation.Id)
			if err := tx.Set(key, storage.MarshalViolation(violation)); err != nil {
				return err
			}

			auditKey := makeViolationAuditKey(violation.OrgId, violation.AuditDocumentId, violation.DetectedAt, violation.Id)
			if err := tx.Set(auditKey, storage.MarshalID(violation.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return violations, err
}

// GetViolation retrieves a single violation by ID.
func (r *ViolationRepository) GetViolation(ctx context.Context, id core.ID) (*core.Violation, error) {
	var result *core.Violation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readViolation(tx, makeViolationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListViolationsByAudit retrieves all violations of an audit document within
// one organization, ordered by detection time. An audit id belonging to a
// different organization yields nothing.
func (r *ViolationRepository) ListViolationsByAudit(ctx context.Context, orgID, auditID core.ID) ([]*core.Violation, error) {
	var results []*core.Violation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialViolationAuditKey(orgID, auditID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var violationID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				violationID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			violation, err := readViolation(tx, makeViolationKey(violationID))
			if err != nil {
				return err
			}
			if violation != nil {
				results = append(results, violation)
			}
		}
		return nil
	}, false)

	return results, err
}

// AttachRemediation stores a remediation suggestion on an existing violation.
func (r *ViolationRepository) AttachRemediation(ctx context.Context, id core.ID, remediation string) (*core.Violation, error) {
	var result *core.Violation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeViolationKey(id)
		violation, err := readViolation(tx, key)
		if err != nil {
			return err
		}
		if violation == nil {
			return storage.ErrNotFound
		}

		violation.Remediation = remediation
		if err := tx.Set(key, storage.MarshalViolation(violation)); err != nil {
			return err
		}
		result = violation
		return tx.Commit()
	}, true)
	return result, err
}

// DeleteViolationsByAudit removes all violations of an audit document within
// one organization.
func (r *ViolationRepository) DeleteViolationsByAudit(ctx context.Context, orgID, auditID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialViolationAuditKey(orgID, auditID)

		var indexKeys [][]byte
		var violationIDs []core.ID

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var violationID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				violationID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}

			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
			violationIDs = append(violationIDs, violationID)
		}
		iter.Close()

		for i, indexKey := range indexKeys {
			if err := tx.Delete(indexKey); err != nil {
				return err
			}
			if err := tx.Delete(makeViolationKey(violationIDs[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readViolation reads a violation from the transaction.
func readViolation(tx *badger.Txn, key []byte) (*core.Violation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var violation *core.Violation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		violation, unmarshalErr = storage.UnmarshalViolation(val)
		return unmarshalErr
	})
	return violation, err
}
