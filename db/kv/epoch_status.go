package kv

import (
	"context"
	"time"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// MarkEpochFinished records that an epoch was observed as finished at the
// given height. Cached snapshots for a finished epoch are treated as
// immutable by readers.
func (k *Store) MarkEpochFinished(ctx context.Context, epochID, finishHeight uint64) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.MarkEpochFinished")
	defer span.End()

	enc, err := encode(ctx, &types.EpochStatus{
		EpochID:      epochID,
		IsFinished:   true,
		FinishHeight: finishHeight,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(epochStatusBucket).Put(uint64Key(epochID), enc)
	}); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"epoch":  epochID,
		"height": finishHeight,
	}).Info("Marked epoch as finished")
	return nil
}

// IsEpochFinished reports whether an epoch was marked finished locally.
// Unknown epochs are not finished.
func (k *Store) IsEpochFinished(ctx context.Context, epochID uint64) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.IsEpochFinished")
	defer span.End()

	var finished bool
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(epochStatusBucket).Get(uint64Key(epochID))
		if enc == nil {
			return nil
		}
		status := &types.EpochStatus{}
		if err := decode(ctx, enc, status); err != nil {
			return err
		}
		finished = status.IsFinished
		return nil
	})
	return finished, err
}
