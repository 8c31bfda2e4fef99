package kv

import (
	"context"
	"sort"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveHardwareNodes replaces the cached hardware registry rows for one
// (epoch, participant) with the given set. An empty set is stored explicitly
// so readers can tell "fetched, no nodes" apart from "never fetched".
func (k *Store) SaveHardwareNodes(ctx context.Context, epochID uint64, participantID string, nodes []*types.HardwareNode) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveHardwareNodes")
	defer span.End()

	if nodes == nil {
		nodes = []*types.HardwareNode{}
	}
	enc, err := encode(ctx, nodes)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(hardwareNodesBucket).Put(epochScopedKey(epochID, participantID), enc)
	})
}

// HardwareNodes returns the cached hardware registry rows for one
// (epoch, participant). The result is three-valued: nil means never fetched,
// an empty slice means fetched and confirmed empty, otherwise rows ordered by
// local id ascending.
func (k *Store) HardwareNodes(ctx context.Context, epochID uint64, participantID string) ([]*types.HardwareNode, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.HardwareNodes")
	defer span.End()

	var nodes []*types.HardwareNode
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(hardwareNodesBucket).Get(epochScopedKey(epochID, participantID))
		if enc == nil {
			return nil
		}
		nodes = []*types.HardwareNode{}
		return decode(ctx, enc, &nodes)
	})
	if err != nil || nodes == nil {
		return nil, err
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].LocalID < nodes[j].LocalID })
	return nodes, nil
}
