package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

// SegmentRepository implements storage.SegmentRepository for BadgerDB.
type SegmentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SegmentRepository = (*SegmentRepository)(nil)

// NewSegmentRepository creates a new SegmentRepository.
func NewSegmentRepository(backend *Backend) (*SegmentRepository, error) {
	idSeq, err := backend.GetSequence(segmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &SegmentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SegmentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SegmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceSegments atomically replaces all segments of a document.
// Old segments are deleted and new ones written in one transaction, so a
// reader sees either the previous generation or the new one, never a mix.
func (r *SegmentRepository) ReplaceSegments(ctx context.Context, documentID core.ID, segments []*core.Segment) ([]*core.Segment, error) {
	for _, segment := range segments {
		if err := core.ValidateSegment(segment); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteSegmentsByDocumentTx(tx, documentID); err != nil {
			return err
		}

		for _, segment := range segments {
			if segment.Id == 0 {
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
				segment.Id = core.ID(nextID)
			}

			key := makeSegmentKey(segment.Id)
			if err := tx.Set(key, storage.MarshalSegment(segment)); err != nil {
				return err
			}

			docKey := makeSegmentDocKey(segment.DocumentId, segment.Index)
			if err := tx.Set(docKey, storage.MarshalID(segment.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return segments, err
}

// GetSegment retrieves a single segment by ID.
func (r *SegmentRepository) GetSegment(ctx context.Context, id core.ID) (*core.Segment, error) {
	var result *core.Segment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSegment(tx, makeSegmentKey(id))
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

// GetSegmentsByDocument retrieves all segments of a document ordered by index.
func (r *SegmentRepository) GetSegmentsByDocument(ctx context.Context, documentID core.ID) ([]*core.Segment, error) {
	var results []*core.Segment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialSegmentDocKey(documentID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var segmentID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				segmentID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			segment, err := readSegment(tx, makeSegmentKey(segmentID))
			if err != nil {
				return err
			}
			if segment != nil {
				results = append(results, segment)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteSegmentsByDocument removes all segments of a document.
func (r *SegmentRepository) DeleteSegmentsByDocument(ctx context.Context, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteSegmentsByDocumentTx(tx, documentID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteSegmentsByDocumentTx removes a document's segments and index entries
// within an open transaction.
func deleteSegmentsByDocumentTx(tx *badger.Txn, documentID core.ID) error {
	startKey := makePartialSegmentDocKey(documentID)

	// Collect first: badger iterators must not observe writes made mid-scan.
	var indexKeys [][]byte
	var segmentIDs []core.ID

	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
			break
		}

		var segmentID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			segmentID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			iter.Close()
			return err
		}

		indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		segmentIDs = append(segmentIDs, segmentID)
	}
	iter.Close()

	for i, indexKey := range indexKeys {
		if err := tx.Delete(indexKey); err != nil {
			return err
		}
		if err := tx.Delete(makeSegmentKey(segmentIDs[i])); err != nil {
			return err
		}
	}
	return nil
}

// readSegment reads a segment from the transaction.
func readSegment(tx *badger.Txn, key []byte) (*core.Segment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var segment *core.Segment
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		segment, unmarshalErr = storage.UnmarshalSegment(val)
		return unmarshalErr
	})
	return segment, err
}
