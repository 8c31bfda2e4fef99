package kv

import (
	"context"
	"sort"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveWarmKeys replaces the cached warm key grants for one
// (epoch, participant) with the given set. An empty set is stored explicitly
// so readers can tell "fetched, none granted" apart from "never fetched".
func (k *Store) SaveWarmKeys(ctx context.Context, epochID uint64, participantID string, keys []*types.WarmKey) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveWarmKeys")
	defer span.End()

	if keys == nil {
		keys = []*types.WarmKey{}
	}
	enc, err := encode(ctx, keys)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(warmKeysBucket).Put(epochScopedKey(epochID, participantID), enc)
	})
}

// WarmKeys returns the cached warm key grants for one (epoch, participant).
// The result is three-valued: nil means never fetched, an empty slice means
// fetched and confirmed empty, otherwise grants ordered by granted_at
// descending.
func (k *Store) WarmKeys(ctx context.Context, epochID uint64, participantID string) ([]*types.WarmKey, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.WarmKeys")
	defer span.End()

	var keys []*types.WarmKey
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(warmKeysBucket).Get(epochScopedKey(epochID, participantID))
		if enc == nil {
			return nil
		}
		keys = []*types.WarmKey{}
		return decode(ctx, enc, &keys)
	})
	if err != nil || keys == nil {
		return nil, err
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].GrantedAt > keys[j].GrantedAt })
	return keys, nil
}
