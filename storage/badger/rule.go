package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

// RuleRepository implements storage.RuleRepository for BadgerDB.
type RuleRepository struct {
	backend *Backend
}

var _ storage.RuleRepository = (*RuleRepository)(nil)

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(backend *Backend) (*RuleRepository, error) {
	return &RuleRepository{
		backend: backend,
	}, nil
}

// Close releases resources. RuleRepository has no resources to release.
func (r *RuleRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RuleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRules adds one or more rules to storage.
func (r *RuleRepository) AddRules(ctx context.Context, rules ...*core.Rule) ([]*core.Rule, error) {
	for _, rule := range rules {
		if err := core.ValidateRule(rule); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, rule := range rules {
			// Use content-based ID if not set
			if rule.Id == 0 {
				rule.Id = core.RuleID(rule.PolicyId, rule.SourceSegmentId, rule.RuleText)
			}
			if rule.CreatedAt.IsZero() {
				rule.CreatedAt = core.NormalizeTime(time.Now())
			}

			key := makeRuleKey(rule.Id)
			if err := tx.Set(key, storage.MarshalRule(rule)); err != nil {
				return err
			}

			policyKey := makeRulePolicyKey(rule.OrgId, rule.PolicyId, rule.Id)
			if err := tx.Set(policyKey, storage.MarshalID(rule.Id)); err != nil {
				return err
			}

			segmentKey := makeRuleSegmentKey(rule.OrgId, rule.SourceSegmentId, rule.Id)
			if err := tx.Set(segmentKey, storage.MarshalID(rule.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return rules, err
}

// GetRule retrieves a single rule by ID.
func (r *RuleRepository) GetRule(ctx context.Context, id core.ID) (*core.Rule, error) {
	var result *core.Rule
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRule(tx, makeRuleKey(id))
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

// GetRulesBySourceSegments retrieves rules extracted from any of the given
// segments, scoped to one organization.
func (r *RuleRepository) GetRulesBySourceSegments(ctx context.Context, orgID core.ID, segmentIDs ...core.ID) ([]*core.Rule, error) {
	var results []*core.Rule
	seen := make(map[core.ID]bool)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for _, segmentID := range segmentIDs {
			startKey := makePartialRuleSegmentKey(orgID, segmentID)
			for iter.Seek(startKey); iter.Valid(); iter.Next() {
				key := iter.Item().Key()
				if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
					break
				}

				var ruleID core.ID
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					ruleID, err = storage.UnmarshalID(val)
					return err
				}); err != nil {
					return err
				}

				if seen[ruleID] {
					continue
				}
				seen[ruleID] = true

				rule, err := readRule(tx, makeRuleKey(ruleID))
				if err != nil {
					return err
				}
				if rule != nil {
					results = append(results, rule)
				}
			}
		}
		return nil
	}, false)

	return results, err
}

// ListRulesByOrg retrieves rules owned by an organization, optionally
// filtered by source policy.
func (r *RuleRepository) ListRulesByOrg(ctx context.Context, orgID core.ID, policyID core.ID) ([]*core.Rule, error) {
	var results []*core.Rule
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialRulePolicyKey(orgID, policyID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var ruleID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				ruleID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			rule, err := readRule(tx, makeRuleKey(ruleID))
			if err != nil {
				return err
			}
			if rule != nil {
				results = append(results, rule)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteRulesByPolicy removes all rules extracted from a policy document.
func (r *RuleRepository) DeleteRulesByPolicy(ctx context.Context, orgID, policyID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialRulePolicyKey(orgID, policyID)

		var indexKeys [][]byte
		var rules []*core.Rule

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var ruleID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				ruleID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}

			rule, err := readRule(tx, makeRuleKey(ruleID))
			if err != nil {
				iter.Close()
				return err
			}
			if rule != nil {
				rules = append(rules, rule)
			}
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, indexKey := range indexKeys {
			if err := tx.Delete(indexKey); err != nil {
				return err
			}
		}
		for _, rule := range rules {
			if err := tx.Delete(makeRuleKey(rule.Id)); err != nil {
				return err
			}
			segmentKey := makeRuleSegmentKey(rule.OrgId, rule.SourceSegmentId, rule.Id)
			if err := tx.Delete(segmentKey); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readRule reads a rule from the transaction.
func readRule(tx *badger.Txn, key []byte) (*core.Rule, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var rule *core.Rule
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		rule, unmarshalErr = storage.UnmarshalRule(val)
		return unmarshalErr
	})
	return rule, err
}
