package aggregator

import (
	"context"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gonka-ai/dashboard-backend/types"
)

// PollRewards refreshes the reward cache for every current epoch group member
// across the six most recent epochs. Claimed rewards are final and skipped;
// anything else is refetched so claim flips converge. It is the scheduler's
// per-tick entry point.
func (s *Service) PollRewards(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("rewards"))
	defer timer.ObserveDuration()

	log.Info("Polling participant rewards")
	height, err := s.client.GetLatestHeight(ctx)
	if err != nil {
		return err
	}
	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return err
	}
	currentEpoch := uint64(group.EpochGroupID)

	var batch []*types.Reward
	for i := range group.Participants {
		participantID := group.Participants[i].Index
		for offset := uint64(1); offset <= 6; offset++ {
			if currentEpoch <= offset {
				continue
			}
			epochID := currentEpoch - offset
			cached, err := s.db.Reward(ctx, epochID, participantID)
			if err != nil {
				return err
			}
			if cached != nil && cached.Claimed {
				continue
			}
			summary, err := s.client.GetEpochPerformanceSummary(ctx, epochID, participantID, height)
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"participant": participantID,
					"epoch":       epochID,
				}).Debug("Could not fetch reward")
				continue
			}
			batch = append(batch, &types.Reward{
				EpochID:       epochID,
				ParticipantID: participantID,
				RewardedCoins: summary.RewardedCoins,
				Claimed:       summary.Claimed,
				UpdatedAt:     time.Now().UTC(),
			})
		}
	}
	if len(batch) > 0 {
		if err := s.db.SaveRewards(ctx, batch); err != nil {
			return err
		}
		log.WithField("count", len(batch)).Info("Saved refreshed reward records")
	}
	return nil
}

// PollWarmKeys refetches every current member's warm key grants so revoked
// and newly added grants converge without waiting for a details read. It is
// the scheduler's per-tick entry point.
func (s *Service) PollWarmKeys(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("warm_keys"))
	defer timer.ObserveDuration()

	log.Info("Polling warm keys")
	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return err
	}
	epochID := uint64(group.EpochGroupID)
	for i := range group.Participants {
		participantID := group.Participants[i].Index
		grants, err := s.client.GetWarmKeys(ctx, participantID)
		if err != nil {
			log.WithError(err).WithField("participant", participantID).Debug("Could not fetch warm keys")
			continue
		}
		rows := warmKeyRows(epochID, participantID, grants)
		if err := s.db.SaveWarmKeys(ctx, epochID, participantID, rows); err != nil {
			log.WithError(err).WithField("participant", participantID).Debug("Could not save warm keys")
			continue
		}
		log.WithFields(logrus.Fields{
			"participant": participantID,
			"count":       len(rows),
		}).Debug("Updated warm keys")
	}
	log.WithField("participants", len(group.Participants)).Info("Completed warm keys polling")
	return nil
}

// PollHardwareNodes refetches every current member's registered ml nodes. It
// is the scheduler's per-tick entry point.
func (s *Service) PollHardwareNodes(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("hardware_nodes"))
	defer timer.ObserveDuration()

	log.Info("Polling hardware nodes")
	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return err
	}
	epochID := uint64(group.EpochGroupID)
	for i := range group.Participants {
		participantID := group.Participants[i].Index
		nodes, err := s.client.GetHardwareNodes(ctx, participantID)
		if err != nil {
			log.WithError(err).WithField("participant", participantID).Debug("Could not fetch hardware nodes")
			continue
		}
		rows := hardwareRows(epochID, participantID, nodes)
		if err := s.db.SaveHardwareNodes(ctx, epochID, participantID, rows); err != nil {
			log.WithError(err).WithField("participant", participantID).Debug("Could not save hardware nodes")
			continue
		}
		log.WithFields(logrus.Fields{
			"participant": participantID,
			"count":       len(rows),
		}).Debug("Updated hardware nodes")
	}
	log.WithField("participants", len(group.Participants)).Info("Completed hardware nodes polling")
	return nil
}

// PollTotalRewards backfills the finalized reward totals for the five epochs
// before the current one. A cached zero is a failed earlier calculation: it
// is evicted and recomputed. It is the scheduler's per-tick entry point.
func (s *Service) PollTotalRewards(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("total_rewards"))
	defer timer.ObserveDuration()

	log.Info("Polling epoch total rewards")
	latest, err := s.client.GetLatestEpoch(ctx)
	if err != nil {
		return err
	}
	currentEpoch := uint64(latest.LatestEpoch.Index)
	for offset := uint64(1); offset <= 5; offset++ {
		if currentEpoch <= offset {
			continue
		}
		epochID := currentEpoch - offset
		cached, err := s.db.EpochTotalRewards(ctx, epochID)
		if err != nil {
			return err
		}
		if cached != nil && cached.TotalGNK > 0 {
			log.WithFields(logrus.Fields{
				"epoch":    epochID,
				"totalGNK": cached.TotalGNK,
			}).Debug("Total rewards already cached")
			continue
		}
		if cached != nil && cached.TotalGNK == 0 {
			log.WithField("epoch", epochID).Warn("Cached total rewards are zero, evicting and recalculating")
			if err := s.db.DeleteEpochTotalRewards(ctx, epochID); err != nil {
				return err
			}
		}
		s.calculateTotalRewards(ctx, epochID)
	}
	log.Info("Completed epoch total rewards polling")
	return nil
}

// calculateTotalRewards sums every group member's assigned reward for an
// epoch and caches the per-participant rows plus the whole-gnk total. A sum
// of zero from successful fetches means the chain has not published the
// epoch's rewards yet and is not cached, so a later run can fill in the real
// value. The calculation never fails the caller.
func (s *Service) calculateTotalRewards(ctx context.Context, epochID uint64) {
	log.WithField("epoch", epochID).Info("Calculating total assigned rewards")

	group, err := s.client.GetEpochGroup(ctx, epochID)
	if err != nil {
		log.WithError(err).WithField("epoch", epochID).Error("Could not calculate epoch total rewards")
		return
	}

	total := new(big.Int)
	fetched := 0
	withRewards := 0
	var batch []*types.Reward
	for i := range group.Participants {
		participantID := group.Participants[i].Index
		summary, err := s.client.GetEpochPerformanceSummary(ctx, epochID, participantID, 0)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"participant": participantID,
				"epoch":       epochID,
			}).Debug("Could not fetch reward")
			continue
		}
		amount, ok := new(big.Int).SetString(summary.RewardedCoins, 10)
		if !ok {
			log.WithFields(logrus.Fields{
				"participant": participantID,
				"epoch":       epochID,
				"coins":       summary.RewardedCoins,
			}).Debug("Skipping malformed reward amount")
			continue
		}
		total.Add(total, amount)
		fetched++
		if amount.Sign() > 0 {
			withRewards++
		}
		batch = append(batch, &types.Reward{
			EpochID:       epochID,
			ParticipantID: participantID,
			RewardedCoins: summary.RewardedCoins,
			Claimed:       summary.Claimed,
			UpdatedAt:     time.Now().UTC(),
		})
	}

	if total.Sign() == 0 && fetched > 0 {
		log.WithFields(logrus.Fields{
			"epoch":   epochID,
			"fetched": fetched,
		}).Warn("Rewards sum to zero, not caching the total yet")
		return
	}
	if len(batch) > 0 {
		if err := s.db.SaveRewards(ctx, batch); err != nil {
			log.WithError(err).WithField("epoch", epochID).Error("Could not cache participant rewards")
			return
		}
	}

	totalGNK := new(big.Int).Quo(total, big.NewInt(ugnkPerGNK)).Int64()
	if err := s.db.SaveEpochTotalRewards(ctx, &types.EpochTotalRewards{
		EpochID:   epochID,
		TotalGNK:  totalGNK,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		log.WithError(err).WithField("epoch", epochID).Error("Could not cache epoch total rewards")
		return
	}
	log.WithFields(logrus.Fields{
		"epoch":       epochID,
		"totalGNK":    totalGNK,
		"fetched":     fetched,
		"members":     len(group.Participants),
		"withRewards": withRewards,
	}).Info("Calculated and cached total rewards")
}

// ensureParticipantCaches backfills the per-participant reward, warm key and
// hardware caches for one epoch's stats rows. It runs in the background after
// a stats rebuild so the first details read finds everything warm. Store
// read failures abort the pass; fetch failures skip the one record.
func (s *Service) ensureParticipantCaches(ctx context.Context, epochID uint64, participants []*ParticipantStats) {
	log.WithFields(logrus.Fields{
		"epoch":        epochID,
		"participants": len(participants),
	}).Info("Ensuring participant caches")

	for _, p := range participants {
		if ctx.Err() != nil {
			return
		}
		participantID := p.Index

		reward, err := s.db.Reward(ctx, epochID, participantID)
		if err != nil {
			log.WithError(err).Error("Could not ensure participant caches")
			return
		}
		if reward == nil {
			if summary, err := s.client.GetEpochPerformanceSummary(ctx, epochID, participantID, 0); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache reward")
			} else if err := s.db.SaveRewards(ctx, []*types.Reward{{
				EpochID:       epochID,
				ParticipantID: participantID,
				RewardedCoins: summary.RewardedCoins,
				Claimed:       summary.Claimed,
				UpdatedAt:     time.Now().UTC(),
			}}); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache reward")
			}
		}

		warmKeys, err := s.db.WarmKeys(ctx, epochID, participantID)
		if err != nil {
			log.WithError(err).Error("Could not ensure participant caches")
			return
		}
		if warmKeys == nil {
			if grants, err := s.client.GetWarmKeys(ctx, participantID); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache warm keys")
			} else if err := s.db.SaveWarmKeys(ctx, epochID, participantID, warmKeyRows(epochID, participantID, grants)); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache warm keys")
			}
		}

		hardware, err := s.db.HardwareNodes(ctx, epochID, participantID)
		if err != nil {
			log.WithError(err).Error("Could not ensure participant caches")
			return
		}
		if hardware == nil {
			if nodes, err := s.client.GetHardwareNodes(ctx, participantID); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache hardware nodes")
			} else if err := s.db.SaveHardwareNodes(ctx, epochID, participantID, hardwareRows(epochID, participantID, nodes)); err != nil {
				log.WithError(err).WithField("participant", participantID).Debug("Could not cache hardware nodes")
			}
		}
	}
	log.WithField("epoch", epochID).Info("Completed participant cache population")
}
