package aggregator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

// CurrentModels lists the governance models enriched with the current epoch's
// aggregated node weights and live traffic counters.
func (s *Service) CurrentModels(ctx context.Context) (*ModelsResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.CurrentModels")
	defer span.End()

	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return nil, err
	}
	epochID := uint64(group.EpochGroupID)
	height, err := s.client.GetLatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	return s.modelsResponse(ctx, epochID, height, true, group.Participants)
}

// HistoricalModels lists the governance models enriched with a past epoch's
// aggregated node weights. The weights are pinned to the epoch; the
// descriptors and traffic counters are live.
func (s *Service) HistoricalModels(ctx context.Context, epochID, requestedHeight uint64) (*ModelsResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.HistoricalModels")
	defer span.End()

	group, err := s.client.GetEpochGroup(ctx, epochID)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveHeight(ctx, epochID, requestedHeight)
	if err != nil {
		return nil, err
	}
	return s.modelsResponse(ctx, epochID, target, false, group.Participants)
}

func (s *Service) modelsResponse(ctx context.Context, epochID, height uint64, isCurrent bool, members []chainclient.EpochMember) (*ModelsResponse, error) {
	rows, err := s.db.ModelRows(ctx, epochID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		log.WithField("epoch", epochID).Info("Aggregating model weights")
		rows = aggregateModelRows(epochID, members)
		if len(rows) > 0 {
			if err := s.db.SaveModelRows(ctx, epochID, rows); err != nil {
				return nil, err
			}
		}
	} else {
		log.WithField("epoch", epochID).Info("Returning cached model weights")
	}

	stats, models, err := s.liveModelPayloads(ctx, epochID, height)
	if err != nil {
		return nil, err
	}

	byModel := make(map[string]*types.ModelRow, len(rows))
	for _, row := range rows {
		byModel[row.ModelID] = row
	}

	infos := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		var weight int64
		var count int
		if row, ok := byModel[m.ID]; ok {
			weight, count = row.TotalWeight, row.ParticipantCount
		}
		args := m.ModelArgs
		if args == nil {
			args = []string{}
		}
		infos = append(infos, ModelInfo{
			ID:                     m.ID,
			TotalWeight:            weight,
			ParticipantCount:       count,
			ProposedBy:             m.ProposedBy,
			VRAM:                   string(m.VRAM),
			ThroughputPerNonce:     string(m.ThroughputPerNonce),
			UnitsOfComputePerToken: string(m.UnitsOfComputePerToken),
			HFRepo:                 m.HFRepo,
			HFCommit:               m.HFCommit,
			ModelArgs:              args,
			ValidationThreshold:    rawJSON(m.ValidationThreshold),
		})
	}

	statsInfos := make([]ModelStats, 0, len(stats))
	for _, st := range stats {
		tokens := string(st.AITokens)
		if tokens == "" {
			tokens = "0"
		}
		statsInfos = append(statsInfos, ModelStats{
			Model:      st.Model,
			AITokens:   tokens,
			Inferences: int64(st.Inferences),
		})
	}

	return &ModelsResponse{
		EpochID:   epochID,
		Height:    height,
		Models:    infos,
		Stats:     statsInfos,
		CachedAt:  time.Now().UTC().Format(time.RFC3339),
		IsCurrent: isCurrent,
	}, nil
}

// aggregateModelRows sums node weights per model across the epoch members.
// models[] and ml_nodes[] correspond positionally; a length mismatch breaks
// the upstream contract, so the extras are logged and skipped.
func aggregateModelRows(epochID uint64, members []chainclient.EpochMember) []*types.ModelRow {
	weights := make(map[string]int64)
	supporters := make(map[string]map[string]bool)
	order := make([]string, 0)
	for i := range members {
		m := &members[i]
		pairs := len(m.Models)
		if len(m.MLNodes) < pairs {
			pairs = len(m.MLNodes)
		}
		if len(m.Models) != len(m.MLNodes) {
			log.WithFields(logrus.Fields{
				"participant": m.Index,
				"models":      len(m.Models),
				"bundles":     len(m.MLNodes),
			}).Warn("Model list and node bundles differ in length, skipping extras")
		}
		for j := 0; j < pairs; j++ {
			model := m.Models[j]
			if _, ok := weights[model]; !ok {
				weights[model] = 0
				supporters[model] = make(map[string]bool)
				order = append(order, model)
			}
			for _, node := range m.MLNodes[j].MLNodes {
				if node.PocWeight != nil {
					weights[model] += int64(*node.PocWeight)
				}
			}
			supporters[model][m.Index] = true
		}
	}

	rows := make([]*types.ModelRow, 0, len(order))
	for _, model := range order {
		rows = append(rows, &types.ModelRow{
			EpochID:          epochID,
			ModelID:          model,
			TotalWeight:      weights[model],
			ParticipantCount: len(supporters[model]),
		})
	}
	return rows
}

// liveModelPayloads fetches the traffic stats and model descriptors, caching
// the raw payloads per (epoch, height) so a later outage can serve them.
func (s *Service) liveModelPayloads(ctx context.Context, epochID, height uint64) ([]chainclient.ModelUsageStats, []chainclient.Model, error) {
	stats, statsRaw, err := s.client.GetModelsStats(ctx)
	if err != nil {
		return s.cachedModelPayloads(ctx, epochID, err)
	}
	models, modelsRaw, err := s.client.GetModels(ctx)
	if err != nil {
		return s.cachedModelPayloads(ctx, epochID, err)
	}
	if err := s.db.SaveModelsAPICache(ctx, &types.ModelsAPICache{
		EpochID:       epochID,
		Height:        height,
		ModelsPayload: modelsRaw,
		StatsPayload:  statsRaw,
		CachedAt:      time.Now().UTC(),
	}); err != nil {
		log.WithError(err).WithField("epoch", epochID).Warn("Could not cache model payloads")
	}
	return stats, models, nil
}

// cachedModelPayloads revives the payloads last cached for the epoch. The
// fetch error is returned unchanged when nothing usable is cached.
func (s *Service) cachedModelPayloads(ctx context.Context, epochID uint64, fetchErr error) ([]chainclient.ModelUsageStats, []chainclient.Model, error) {
	cached, err := s.db.ModelsAPICache(ctx, epochID, 0)
	if err != nil || cached == nil {
		return nil, nil, fetchErr
	}
	models, err := chainclient.ParseModels(cached.ModelsPayload)
	if err != nil {
		return nil, nil, fetchErr
	}
	stats, err := chainclient.ParseModelsStats(cached.StatsPayload)
	if err != nil {
		return nil, nil, fetchErr
	}
	log.WithError(fetchErr).WithField("epoch", epochID).Warn("Live model fetch failed, serving cached payloads")
	return stats, models, nil
}
