package kv

import (
	"context"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveNodeHealth upserts the latest health probe results. Health rows are
// global per participant, with no epoch dimension.
func (k *Store) SaveNodeHealth(ctx context.Context, statuses []*types.NodeHealth) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveNodeHealth")
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
		bkt := tx.Bucket(nodeHealthBucket)
		for i, status := range statuses {
			if err := bkt.Put([]byte(status.ParticipantIndex), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// NodeHealth returns the latest probe result for every known participant, or
// nil if no probes have completed yet.
func (k *Store) NodeHealth(ctx context.Context) ([]*types.NodeHealth, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.NodeHealth")
	defer span.End()

	var statuses []*types.NodeHealth
	err := k.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(nodeHealthBucket).ForEach(func(_, enc []byte) error {
			status := &types.NodeHealth{}
			if err := decode(ctx, enc, status); err != nil {
				return err
			}
			statuses = append(statuses, status)
			return nil
		})
	})
	return statuses, err
}
