package aggregator

import (
	"context"
	"time"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

// mergeJailAndHealth overlays the cached jail and health rows onto the stats
// rows, refreshing either cache inline when it is empty. Overlay failures
// only log: the base stats stay servable without overlays.
func (s *Service) mergeJailAndHealth(ctx context.Context, epochID uint64, stats []*ParticipantStats, height uint64, members []chainclient.EpochMember) []*ParticipantStats {
	jailRows, err := s.db.JailStatuses(ctx, epochID)
	if err != nil {
		log.WithError(err).Error("Could not merge jail and health overlays")
		return stats
	}
	if jailRows == nil {
		log.WithField("epoch", epochID).Info("No cached jail statuses, refreshing inline")
		s.cacheJailStatuses(ctx, epochID, height, members)
		if jailRows, err = s.db.JailStatuses(ctx, epochID); err != nil {
			log.WithError(err).Error("Could not merge jail and health overlays")
			return stats
		}
	}
	jailByIndex := make(map[string]*types.JailStatus, len(jailRows))
	for _, row := range jailRows {
		jailByIndex[row.ParticipantIndex] = row
	}

	healthRows, err := s.db.NodeHealth(ctx)
	if err != nil {
		log.WithError(err).Error("Could not merge jail and health overlays")
		return stats
	}
	if healthRows == nil {
		log.Info("No cached node health, probing inline")
		s.cacheNodeHealth(ctx, members)
		if healthRows, err = s.db.NodeHealth(ctx); err != nil {
			log.WithError(err).Error("Could not merge jail and health overlays")
			return stats
		}
	}
	healthByIndex := make(map[string]*types.NodeHealth, len(healthRows))
	for _, row := range healthRows {
		healthByIndex[row.ParticipantIndex] = row
	}

	for _, p := range stats {
		if row := jailByIndex[p.Index]; row != nil {
			applyJailOverlay(p, row)
		}
		if row := healthByIndex[p.Index]; row != nil {
			applyHealthOverlay(p, row)
		}
	}
	return stats
}

func applyJailOverlay(p *ParticipantStats, row *types.JailStatus) {
	p.IsJailed = boolPtr(row.IsJailed)
	p.JailedUntil = optString(row.JailedUntil)
	p.ReadyToUnjail = boolPtr(row.ReadyToUnjail)
	p.Moniker = optString(row.Moniker)
	p.Identity = optString(row.Identity)
	p.KeybaseUsername = optString(row.KeybaseUsername)
	p.KeybasePictureURL = optString(row.KeybasePictureURL)
	p.Website = optString(row.Website)
	p.ValidatorConsensusKey = optString(row.ValidatorConsensusKey)
	p.ConsensusKeyMismatch = row.ConsensusKeyMismatch
}

func applyHealthOverlay(p *ParticipantStats, row *types.NodeHealth) {
	p.NodeHealthy = boolPtr(row.IsHealthy)
	checkedAt := row.LastCheck.UTC().Format(time.RFC3339)
	p.NodeHealthCheckedAt = &checkedAt
}
