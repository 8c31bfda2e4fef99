package kv

import (
	"bytes"
	"context"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveJailStatuses upserts validator jail overlay rows keyed by
// (epoch, participant). Rows for participants not in the batch are left
// untouched.
func (k *Store) SaveJailStatuses(ctx context.Context, statuses []*types.JailStatus) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveJailStatuses")
	defer span.End()

	encoded := make([][]byte, len(statuses))
	for i, status := range statuses {
		enc, err := encode(ctx, status)
		if err != nil {
			return err
		}
		encoded[i] = enc
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(jailStatusBucket)
		for i, status := range statuses {
			key := epochScopedKey(status.EpochID, status.ParticipantIndex)
			if err := bkt.Put(key, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// JailStatuses returns every jail overlay row recorded for an epoch, or nil
// if the overlay was never refreshed for it.
func (k *Store) JailStatuses(ctx context.Context, epochID uint64) ([]*types.JailStatus, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.JailStatuses")
	defer span.End()

	var statuses []*types.JailStatus
	prefix := uint64Key(epochID)
	err := k.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(jailStatusBucket).Cursor()
		for key, enc := c.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, enc = c.Next() {
			status := &types.JailStatus{}
			if err := decode(ctx, enc, status); err != nil {
				return err
			}
			statuses = append(statuses, status)
		}
		return nil
	})
	return statuses, err
}
