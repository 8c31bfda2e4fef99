package kv

import (
	"bytes"
	"context"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveModelRows upserts the aggregated per-model weight rows for an epoch.
func (k *Store) SaveModelRows(ctx context.Context, epochID uint64, rows []*types.ModelRow) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveModelRows")
	defer span.End()

	encoded := make([][]byte, len(rows))
	for i, row := range rows {
		enc, err := encode(ctx, row)
		if err != nil {
			return err
		}
		encoded[i] = enc
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(modelsBucket)
		for i, row := range rows {
			if err := bkt.Put(epochScopedKey(epochID, row.ModelID), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ModelRows returns the aggregated model rows cached for an epoch, or nil if
// no aggregation was cached for it.
func (k *Store) ModelRows(ctx context.Context, epochID uint64) ([]*types.ModelRow, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.ModelRows")
	defer span.End()

	var rows []*types.ModelRow
	prefix := uint64Key(epochID)
	err := k.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(modelsBucket).Cursor()
		for key, enc := c.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, enc = c.Next() {
			row := &types.ModelRow{}
			if err := decode(ctx, enc, row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// SaveModelsAPICache stores the raw upstream model payloads fetched for an
// (epoch, height), so responses can fall back to them when a live fetch
// fails.
func (k *Store) SaveModelsAPICache(ctx context.Context, cache *types.ModelsAPICache) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveModelsAPICache")
	defer span.End()

	enc, err := encode(ctx, cache)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(modelsAPICacheBucket).Put(epochHeightKey(cache.EpochID, cache.Height), enc)
	})
}

// ModelsAPICache returns the payloads cached for an (epoch, height). A zero
// height selects the payloads cached at the highest height for the epoch.
// Nil when nothing was cached.
func (k *Store) ModelsAPICache(ctx context.Context, epochID, height uint64) (*types.ModelsAPICache, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.ModelsAPICache")
	defer span.End()

	var cache *types.ModelsAPICache
	err := k.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(modelsAPICacheBucket)
		if height != 0 {
			enc := bkt.Get(epochHeightKey(epochID, height))
			if enc == nil {
				return nil
			}
			cache = &types.ModelsAPICache{}
			return decode(ctx, enc, cache)
		}
		prefix := uint64Key(epochID)
		c := bkt.Cursor()
		key, enc := c.Seek(uint64Key(epochID + 1))
		if key == nil {
			key, enc = c.Last()
		} else {
			key, enc = c.Prev()
		}
		if key == nil || !bytes.HasPrefix(key, prefix) {
			return nil
		}
		cache = &types.ModelsAPICache{}
		return decode(ctx, enc, cache)
	})
	return cache, err
}
