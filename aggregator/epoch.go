package aggregator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

// CurrentEpochStats returns the fused stats for the epoch in progress,
// serving the in-memory copy while it is within its TTL. reload bypasses the
// TTL check and always rebuilds. When a rebuild fails and a previously built
// response exists, the stale copy is served instead of the error.
func (s *Service) CurrentEpochStats(ctx context.Context, reload bool) (*EpochStatsResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.CurrentEpochStats")
	defer span.End()

	if !reload {
		if resp, ok := s.cachedCurrent(); ok {
			currentStatsCacheHits.Inc()
			log.Debug("Returning cached current epoch stats")
			return resp, nil
		}
	}

	resp, err := s.rebuildCurrent(ctx)
	if err != nil {
		log.WithError(err).Error("Could not rebuild current epoch stats")
		if stale, ok := s.staleCurrent(); ok {
			currentStatsStaleServes.Inc()
			log.Info("Returning stale current epoch stats after upstream failure")
			return stale, nil
		}
		return nil, err
	}
	return resp, nil
}

// RefreshCurrentStats rebuilds the current-epoch response unconditionally.
// It is the scheduler's per-tick entry point.
func (s *Service) RefreshCurrentStats(ctx context.Context) error {
	_, err := s.CurrentEpochStats(ctx, true)
	return err
}

func (s *Service) rebuildCurrent(ctx context.Context) (*EpochStatsResponse, error) {
	log.Info("Fetching fresh current epoch stats")
	height, err := s.client.GetLatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return nil, err
	}
	epochID := uint64(group.EpochGroupID)

	if err := s.markEpochFinishedIfNeeded(ctx, epochID); err != nil {
		return nil, err
	}

	registry, err := s.client.GetParticipants(ctx, height)
	if err != nil {
		return nil, err
	}

	snapshots, stats := buildParticipants(registry, group)
	stats = s.mergeJailAndHealth(ctx, epochID, stats, height, group.Participants)

	now := time.Now().UTC()
	cachedAt := now.Format(time.RFC3339)
	resp := &EpochStatsResponse{
		EpochID:      epochID,
		Height:       height,
		Participants: stats,
		CachedAt:     &cachedAt,
		IsCurrent:    true,
	}

	if err := s.db.SaveSnapshotBatch(ctx, &types.SnapshotBatch{
		EpochID:      epochID,
		Height:       height,
		Participants: snapshots,
		CachedAt:     now,
	}); err != nil {
		return nil, err
	}

	s.storeCurrent(resp)
	currentStatsRebuilds.Inc()

	go s.ensureParticipantCaches(s.ctx, epochID, stats)

	log.WithFields(logrus.Fields{
		"epoch":        epochID,
		"height":       height,
		"participants": len(stats),
	}).Info("Fetched current epoch stats")
	return resp, nil
}

// HistoricalEpochStats returns the fused stats for a past epoch at its
// canonical height, or at the requested height within the epoch's window.
// Cache misses rebuild from chain state pinned at the target height and
// persist the result; unqualified reads of an unfinished epoch also mark it
// finished. rewardsSync makes a cached read compute missing epoch totals
// before returning instead of in the background.
func (s *Service) HistoricalEpochStats(ctx context.Context, epochID uint64, requestedHeight uint64, rewardsSync bool) (*EpochStatsResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.HistoricalEpochStats")
	defer span.End()

	isFinished, err := s.db.IsEpochFinished(ctx, epochID)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveHeight(ctx, epochID, requestedHeight)
	if err != nil {
		log.WithError(err).WithField("epoch", epochID).Error("Could not determine target height")
		return nil, err
	}

	batch, err := s.db.SnapshotBatch(ctx, epochID, target)
	if err != nil {
		return nil, err
	}
	if batch != nil {
		return s.historicalFromCache(ctx, epochID, target, batch, rewardsSync)
	}

	historicalCacheHits.WithLabelValues("miss").Inc()
	log.WithFields(logrus.Fields{"epoch": epochID, "height": target}).Info("Fetching historical epoch stats")

	registry, err := s.client.GetParticipants(ctx, target)
	if err != nil {
		return nil, err
	}
	group, err := s.client.GetEpochGroup(ctx, epochID)
	if err != nil {
		return nil, err
	}

	snapshots, stats := buildParticipants(registry, group)

	now := time.Now().UTC()
	if err := s.db.SaveSnapshotBatch(ctx, &types.SnapshotBatch{
		EpochID:      epochID,
		Height:       target,
		Participants: snapshots,
		CachedAt:     now,
	}); err != nil {
		return nil, err
	}

	// An unqualified read observed the epoch at its canonical height, which
	// is the moment it counts as finished.
	if requestedHeight == 0 && !isFinished {
		if err := s.db.MarkEpochFinished(ctx, epochID, target); err != nil {
			return nil, err
		}
	}

	stats = s.mergeJailAndHealth(ctx, epochID, stats, target, group.Participants)

	totals, err := s.db.EpochTotalRewards(ctx, epochID)
	if err != nil {
		return nil, err
	}
	if totals == nil {
		go s.calculateTotalRewards(s.ctx, epochID)
	}

	cachedAt := now.Format(time.RFC3339)
	resp := &EpochStatsResponse{
		EpochID:                 epochID,
		Height:                  target,
		Participants:            stats,
		CachedAt:                &cachedAt,
		IsCurrent:               false,
		TotalAssignedRewardsGNK: totalGNKValue(totals),
	}

	go s.ensureParticipantCaches(s.ctx, epochID, stats)

	log.WithFields(logrus.Fields{
		"epoch":        epochID,
		"height":       target,
		"participants": len(stats),
	}).Info("Fetched and cached historical epoch stats")
	return resp, nil
}

// historicalFromCache rebuilds the response from a persisted snapshot batch,
// re-applying the live overlays and the epoch's total rewards.
func (s *Service) historicalFromCache(ctx context.Context, epochID, target uint64, batch *types.SnapshotBatch, rewardsSync bool) (*EpochStatsResponse, error) {
	historicalCacheHits.WithLabelValues("hit").Inc()
	log.WithFields(logrus.Fields{"epoch": epochID, "height": target}).Info("Returning cached historical epoch stats")

	stats := make([]*ParticipantStats, 0, len(batch.Participants))
	for _, snap := range batch.Participants {
		stats = append(stats, newParticipantStats(snap))
	}

	group, err := s.client.GetEpochGroup(ctx, epochID)
	if err != nil {
		return nil, err
	}
	stats = s.mergeJailAndHealth(ctx, epochID, stats, target, group.Participants)

	totals, err := s.db.EpochTotalRewards(ctx, epochID)
	if err != nil {
		return nil, err
	}
	if totals == nil || totals.TotalGNK == 0 {
		if totals != nil && totals.TotalGNK == 0 {
			log.WithField("epoch", epochID).Warn("Cached total rewards are zero, evicting and recalculating")
			if err := s.db.DeleteEpochTotalRewards(ctx, epochID); err != nil {
				return nil, err
			}
		}
		if rewardsSync {
			log.WithField("epoch", epochID).Info("Calculating total rewards synchronously")
			s.calculateTotalRewards(ctx, epochID)
			if totals, err = s.db.EpochTotalRewards(ctx, epochID); err != nil {
				return nil, err
			}
		} else {
			go s.calculateTotalRewards(s.ctx, epochID)
		}
	}

	go s.ensureParticipantCaches(s.ctx, epochID, stats)

	cachedAt := batch.CachedAt.UTC().Format(time.RFC3339)
	return &EpochStatsResponse{
		EpochID:                 epochID,
		Height:                  target,
		Participants:            stats,
		CachedAt:                &cachedAt,
		IsCurrent:               false,
		TotalAssignedRewardsGNK: totalGNKValue(totals),
	}, nil
}

// markEpochFinishedIfNeeded finalizes the previously observed epoch when the
// chain has moved on to a new one: its stats are rebuilt at the canonical
// height and its total rewards are computed synchronously, exactly once. A
// failed finalization is logged and retried on the next transition check.
func (s *Service) markEpochFinishedIfNeeded(ctx context.Context, currentEpochID uint64) error {
	prev, ok := s.staleCurrent()
	if !ok || currentEpochID <= prev.EpochID {
		return nil
	}
	oldEpochID := prev.EpochID
	finished, err := s.db.IsEpochFinished(ctx, oldEpochID)
	if err != nil {
		return err
	}
	if finished {
		return nil
	}

	epochTransitions.Inc()
	log.WithFields(logrus.Fields{"from": oldEpochID, "to": currentEpochID}).Info("Epoch transition detected")
	if _, err := s.HistoricalEpochStats(ctx, oldEpochID, 0, true); err != nil {
		log.WithError(err).WithField("epoch", oldEpochID).Error("Could not finalize finished epoch")
		return nil
	}
	log.WithField("epoch", oldEpochID).Info("Marked epoch as finished and cached its final stats")
	return nil
}

// buildParticipants joins the registry rows with the epoch group, keeping
// registry order and only members of the group. The returned snapshots are
// what gets persisted; the stats are the same rows in response form.
func buildParticipants(registry []chainclient.Participant, group *chainclient.EpochGroup) ([]*types.ParticipantSnapshot, []*ParticipantStats) {
	members := make(map[string]*chainclient.EpochMember, len(group.Participants))
	for i := range group.Participants {
		members[group.Participants[i].Index] = &group.Participants[i]
	}

	snapshots := make([]*types.ParticipantSnapshot, 0, len(members))
	stats := make([]*ParticipantStats, 0, len(members))
	for _, p := range registry {
		member, ok := members[p.Index]
		if !ok {
			continue
		}
		models := member.Models
		if models == nil {
			models = []string{}
		}
		snap := &types.ParticipantSnapshot{
			Index:         p.Index,
			Address:       p.Address,
			Weight:        int64(member.Weight),
			ValidatorKey:  member.ValidatorKey,
			InferenceURL:  p.InferenceURL,
			Status:        p.Status,
			Models:        models,
			SeedSignature: member.Seed.Signature,
			MLNodesMap:    member.MLNodesMap(),
			Counters:      p.CurrentEpochStats,
		}
		snapshots = append(snapshots, snap)
		stats = append(stats, newParticipantStats(snap))
	}
	return snapshots, stats
}

func totalGNKValue(totals *types.EpochTotalRewards) *int64 {
	if totals == nil {
		return nil
	}
	v := totals.TotalGNK
	return &v
}
