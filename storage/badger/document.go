package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocument adds a document to storage.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if doc.Id == 0 {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			doc.Id = core.ID(nextID)
		}

		if doc.Status == 0 {
			doc.Status = core.StatusUploaded
		}
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = core.NormalizeTime(time.Now())
		}
		doc.UpdatedAt = core.NormalizeTime(time.Now())

		key := makeDocumentKey(doc.Id)
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		orgKey := makeDocumentOrgKey(doc.OrgId, doc.UploadedAt, doc.Id)
		if err := tx.Set(orgKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return doc, err
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
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

// UpdateDocumentStatus moves a document to a new status.
// The transition is checked against the document lifecycle inside the
// transaction, so concurrent updaters cannot both win the same move.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus, reason string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if !core.CanTransition(doc.Status, status) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, doc.Status, status)
		}

		doc.Status = status
		doc.FailureReason = reason
		doc.UpdatedAt = core.NormalizeTime(time.Now())

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		result = doc
		return tx.Commit()
	}, true)
	return result, err
}

// AttachBlob records the stored blob location and size on a document.
func (r *DocumentRepository) AttachBlob(ctx context.Context, id core.ID, blobPath string, fileSize int64) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.BlobPath = blobPath
		doc.FileSize = fileSize
		doc.UpdatedAt = core.NormalizeTime(time.Now())

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		result = doc
		return tx.Commit()
	}, true)
	return result, err
}

// ListDocumentsByOrg retrieves documents owned by an organization ordered by
// upload time, optionally filtered by kind.
func (r *DocumentRepository) ListDocumentsByOrg(ctx context.Context, orgID core.ID, kind core.DocumentKind) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialDocumentOrgKey(orgID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var docID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			doc, err := readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if kind != core.KindAny && doc.Kind != kind {
				continue
			}
			results = append(results, doc)
		}
		return nil
	}, false)

	return results, err
}

// readDocument reads a document from the transaction.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
