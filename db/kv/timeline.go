package kv

import (
	"context"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveTimeline replaces the cached timeline snapshot. There is only ever one.
func (k *Store) SaveTimeline(ctx context.Context, snapshot *types.TimelineSnapshot) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveTimeline")
	defer span.End()

	enc, err := encode(ctx, snapshot)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(timelineBucket).Put(timelineKey, enc)
	})
}

// Timeline returns the cached timeline snapshot, or nil if none was saved.
func (k *Store) Timeline(ctx context.Context) (*types.TimelineSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.Timeline")
	defer span.End()

	var snapshot *types.TimelineSnapshot
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(timelineBucket).Get(timelineKey)
		if enc == nil {
			return nil
		}
		snapshot = &types.TimelineSnapshot{}
		return decode(ctx, enc, snapshot)
	})
	return snapshot, err
}
