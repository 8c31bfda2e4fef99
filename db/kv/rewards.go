package kv

import (
	"context"
	"sort"

	"github.com/gonka-ai/dashboard-backend/types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveRewards upserts per-participant epoch reward rows.
func (k *Store) SaveRewards(ctx context.Context, rewards []*types.Reward) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveRewards")
	defer span.End()

	encoded := make([][]byte, len(rewards))
	for i, reward := range rewards {
		enc, err := encode(ctx, reward)
		if err != nil {
			return err
		}
		encoded[i] = enc
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(rewardsBucket)
		for i, reward := range rewards {
			key := epochScopedKey(reward.EpochID, reward.ParticipantID)
			if err := bkt.Put(key, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reward returns one participant's cached reward for an epoch, or nil if no
// reward was cached.
func (k *Store) Reward(ctx context.Context, epochID uint64, participantID string) (*types.Reward, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.Reward")
	defer span.End()

	var reward *types.Reward
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(rewardsBucket).Get(epochScopedKey(epochID, participantID))
		if enc == nil {
			return nil
		}
		reward = &types.Reward{}
		return decode(ctx, enc, reward)
	})
	return reward, err
}

// RewardsForParticipant returns the cached rewards a participant has in the
// given epochs, ordered by epoch descending. Epochs with no cached row are
// absent from the result.
func (k *Store) RewardsForParticipant(ctx context.Context, participantID string, epochIDs []uint64) ([]*types.Reward, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.RewardsForParticipant")
	defer span.End()

	ids := make([]uint64, len(epochIDs))
	copy(ids, epochIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var rewards []*types.Reward
	err := k.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(rewardsBucket)
		for _, id := range ids {
			enc := bkt.Get(epochScopedKey(id, participantID))
			if enc == nil {
				continue
			}
			reward := &types.Reward{}
			if err := decode(ctx, enc, reward); err != nil {
				return err
			}
			rewards = append(rewards, reward)
		}
		return nil
	})
	return rewards, err
}

// SaveEpochTotalRewards stores the finalized reward total for an epoch.
func (k *Store) SaveEpochTotalRewards(ctx context.Context, total *types.EpochTotalRewards) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.SaveEpochTotalRewards")
	defer span.End()

	enc, err := encode(ctx, total)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(totalRewardsBucket).Put(uint64Key(total.EpochID), enc)
	})
}

// EpochTotalRewards returns the cached reward total for an epoch, or nil if
// no total was finalized yet.
func (k *Store) EpochTotalRewards(ctx context.Context, epochID uint64) (*types.EpochTotalRewards, error) {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.EpochTotalRewards")
	defer span.End()

	var total *types.EpochTotalRewards
	err := k.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(totalRewardsBucket).Get(uint64Key(epochID))
		if enc == nil {
			return nil
		}
		total = &types.EpochTotalRewards{}
		return decode(ctx, enc, total)
	})
	return total, err
}

// DeleteEpochTotalRewards evicts a cached total so it can be recomputed.
// Totals of zero are evicted this way: published rewards are never zero, so a
// zero means the sum ran before the chain had the data.
func (k *Store) DeleteEpochTotalRewards(ctx context.Context, epochID uint64) error {
	ctx, span := trace.StartSpan(ctx, "DashboardDB.DeleteEpochTotalRewards")
	defer span.End()

	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(totalRewardsBucket).Delete(uint64Key(epochID))
	})
}
