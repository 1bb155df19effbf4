package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
//
// Records are keyed under a per-organization prefix, so every scan is
// confined to one tenant's namespace before any similarity math runs.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	return &EmbeddingRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EmbeddingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertEmbeddings inserts or replaces embedding records in the
// organization's namespace, keyed by segment ID.
func (r *EmbeddingRepository) UpsertEmbeddings(ctx context.Context, orgID core.ID, records ...*core.EmbeddingRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			record.OrgId = orgID
			key := makeEmbeddingKey(orgID, record.SegmentId)
			if err := tx.Set(key, storage.MarshalEmbeddingRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// QuerySimilar finds the k most similar records in the organization's
// namespace. Similarity is cosine, computed as dot product because stored
// and query vectors are normalized. Ordering is score descending with ties
// broken by segment ID ascending; an empty namespace yields no matches.
func (r *EmbeddingRepository) QuerySimilar(ctx context.Context, orgID core.ID, vector []float32, k int, kind core.DocumentKind) ([]*core.SegmentMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	var results []*core.SegmentMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		namespace := makeEmbeddingNamespace(orgID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = namespace
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) == 0 {
				continue
			}
			if kind != core.KindAny && record.Kind != kind {
				continue
			}

			results = append(results, &core.SegmentMatch{
				Record: record,
				Score:  dotProduct(vector, record.Vector),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SegmentMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Deterministic order for equal scores
		if a.Record.SegmentId < b.Record.SegmentId {
			return -1
		}
		if a.Record.SegmentId > b.Record.SegmentId {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// DeleteByDocument removes all embedding records of one document from the
// organization's namespace.
func (r *EmbeddingRepository) DeleteByDocument(ctx context.Context, orgID, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		namespace := makeEmbeddingNamespace(orgID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = namespace

		var keys [][]byte
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}
			if record != nil && record.DocumentId == documentID {
				keys = append(keys, iter.Item().KeyCopy(nil))
			}
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountByOrg returns the number of records in the organization's namespace.
func (r *EmbeddingRepository) CountByOrg(ctx context.Context, orgID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		namespace := makeEmbeddingNamespace(orgID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = namespace
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
