package kv

import (
	"bytes"
	"context"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveSnapshotBatch persists the fused participant snapshots for one
// (epoch, height) as a single atomic record, preserving participant order.
func (k *Store) SaveSnapshotBatch(ctx context.Context, batch *types.SnapshotBatch) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveSnapshotBatch")
	defer span.End()

	enc, err := encode(ctx, batch)
	if err != nil {
		return err
	}
	if err := k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(statsBucket).Put(epochHeightKey(batch.EpochID, batch.Height), enc)
	}); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"epoch":        batch.EpochID,
		"height":       batch.Height,
		"participants": len(batch.Participants),
	}).Debug("Saved participant snapshots")
	return nil
}

// SnapshotBatch retrieves the snapshot batch saved at an exact
// (epoch, height), or nil if none was cached there.
func (k *Store) SnapshotBatch(ctx context.Context, epochID, height uint64) (*types.SnapshotBatch, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SnapshotBatch")
	defer span.End()

	var batch *types.SnapshotBatch
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(statsBucket).Get(epochHeightKey(epochID, height))
		if enc == nil {
			return nil
		}
		batch = &types.SnapshotBatch{}
		return decode(ctx, enc, batch)
	})
	return batch, err
}

// LatestSnapshotBatch retrieves the snapshot batch cached at the highest
// height for an epoch, or nil if the epoch has no snapshots at all.
func (k *Store) LatestSnapshotBatch(ctx context.Context, epochID uint64) (*types.SnapshotBatch, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.LatestSnapshotBatch")
	defer span.End()

	var batch *types.SnapshotBatch
	err := k.db.View(func(tx *bolt.Tx) error {
		prefix := uint64Key(epochID)
		c := tx.Bucket(statsBucket).Cursor()
		key, enc := c.Seek(uint64Key(epochID + 1))
		if key == nil {
			key, enc = c.Last()
		} else {
			key, enc = c.Prev()
		}
		if key == nil || !bytes.HasPrefix(key, prefix) {
			return nil
		}
		batch = &types.SnapshotBatch{}
		return decode(ctx, enc, batch)
	})
	return batch, err
}

// DeleteEpochStats removes every cached snapshot for an epoch along with its
// finished marker, forcing the next read to refetch from upstream.
func (k *Store) DeleteEpochStats(ctx context.Context, epochID uint64) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.DeleteEpochStats")
	defer span.End()

	prefix := uint64Key(epochID)
	return k.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(statsBucket).Cursor()
		for key, _ := c.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return tx.Bucket(epochStatusBucket).Delete(uint64Key(epochID))
	})
}
