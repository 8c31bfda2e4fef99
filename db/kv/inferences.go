package kv

import (
	"context"
	"sort"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveParticipantInferences replaces the cached inference list for one
// (epoch, participant). An empty list is stored as a single sentinel row so
// "fetched, confirmed empty" survives restarts.
func (k *Store) SaveParticipantInferences(ctx context.Context, epochID uint64, participantID string, inferences []*types.InferenceRecord) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveParticipantInferences")
	defer span.End()

	if len(inferences) == 0 {
		inferences = []*types.InferenceRecord{{
			EpochID:             epochID,
			ParticipantID:       participantID,
			Status:              types.EmptyMarker,
			StartBlockHeight:    "0",
			StartBlockTimestamp: "0",
			ValidatedBy:         []string{},
		}}
	}
	enc, err := encode(ctx, inferences)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(inferencesBucket).Put(epochScopedKey(epochID, participantID), enc)
	})
}

// ParticipantInferences returns the cached inferences for one
// (epoch, participant), newest first. The result is three-valued: nil means
// never fetched, an empty slice means fetched and confirmed empty. Sentinel
// rows are stripped from the result.
func (k *Store) ParticipantInferences(ctx context.Context, epochID uint64, participantID string) ([]*types.InferenceRecord, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.ParticipantInferences")
	defer span.End()

	var stored []*types.InferenceRecord
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(inferencesBucket).Get(epochScopedKey(epochID, participantID))
		if enc == nil {
			return nil
		}
		return decode(ctx, enc, &stored)
	})
	if err != nil || stored == nil {
		return nil, err
	}

	hasMarker := false
	records := make([]*types.InferenceRecord, 0, len(stored))
	for _, rec := range stored {
		if rec.Status == types.EmptyMarker {
			hasMarker = true
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		if hasMarker {
			return []*types.InferenceRecord{}, nil
		}
		return nil, nil
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartBlockTimestamp > records[j].StartBlockTimestamp
	})
	return records, nil
}
