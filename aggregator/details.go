package aggregator

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// ugnkPerGNK is the denomination factor between the chain's base coin and
// whole gnk.
const ugnkPerGNK = 1_000_000_000

// rewardWindow is how many past epochs the details view reports rewards for.
const rewardWindow = 5

// ParticipantDetails assembles the drill-down view for one participant: its
// dashboard row in the requested epoch, the recent reward history, the seed
// commitment, warm keys and registered ml nodes. A nil response with a nil
// error means the participant (or the epoch's data) could not be resolved;
// the only error returned is an invalid height request.
func (s *Service) ParticipantDetails(ctx context.Context, participantID string, epochID, requestedHeight uint64) (*ParticipantDetailsResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.ParticipantDetails")
	defer span.End()

	details, err := s.participantDetails(ctx, participantID, epochID, requestedHeight)
	if err != nil {
		var invalidHeight *InvalidHeightError
		if errors.As(err, &invalidHeight) {
			return nil, err
		}
		log.WithError(err).WithFields(logrus.Fields{
			"participant": participantID,
			"epoch":       epochID,
		}).Error("Could not assemble participant details")
		return nil, nil
	}
	return details, nil
}

func (s *Service) participantDetails(ctx context.Context, participantID string, epochID, requestedHeight uint64) (*ParticipantDetailsResponse, error) {
	latest, err := s.client.GetLatestEpoch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch latest epoch")
	}
	currentEpoch := uint64(latest.LatestEpoch.Index)

	var stats *EpochStatsResponse
	if epochID == currentEpoch {
		stats, err = s.CurrentEpochStats(ctx, false)
	} else {
		stats, err = s.HistoricalEpochStats(ctx, epochID, requestedHeight, false)
	}
	if err != nil {
		return nil, err
	}

	var participant *ParticipantStats
	for _, p := range stats.Participants {
		if p.Index == participantID {
			participant = p
			break
		}
	}
	if participant == nil {
		return nil, nil
	}

	rewards, err := s.participantRewards(ctx, participantID, epochID, currentEpoch)
	if err != nil {
		return nil, err
	}

	// The seed signature and the epoch group's node weights both live on the
	// participant's fused snapshot for this epoch.
	snap, err := s.detailsSnapshot(ctx, participantID, epochID, requestedHeight)
	if err != nil {
		return nil, err
	}
	var seed *SeedInfo
	var nodeWeights types.MLNodesMap
	if snap != nil {
		if snap.SeedSignature != "" {
			seed = &SeedInfo{
				Participant: participantID,
				EpochIndex:  epochID,
				Signature:   snap.SeedSignature,
			}
		}
		nodeWeights = snap.MLNodesMap
	}

	warmKeys, err := s.participantWarmKeys(ctx, epochID, participantID)
	if err != nil {
		return nil, err
	}
	mlNodes, err := s.participantMLNodes(ctx, epochID, participantID, nodeWeights)
	if err != nil {
		return nil, err
	}

	return &ParticipantDetailsResponse{
		Participant: participant,
		Rewards:     rewards,
		Seed:        seed,
		WarmKeys:    warmKeys,
		MLNodes:     mlNodes,
	}, nil
}

// rewardEpochs returns the epoch ids whose rewards the details view reports.
// For the current epoch that is the five preceding epochs, newest first; for a
// past epoch it is the epoch itself and the five before it, oldest first.
// Future epochs have no reward history.
func rewardEpochs(epochID, currentEpoch uint64) []uint64 {
	ids := make([]uint64, 0, rewardWindow+1)
	switch {
	case epochID == currentEpoch:
		for i := uint64(1); i <= rewardWindow; i++ {
			if currentEpoch > i {
				ids = append(ids, currentEpoch-i)
			}
		}
	case epochID < currentEpoch:
		for i := int64(rewardWindow); i >= 0; i-- {
			if epochID > uint64(i) {
				ids = append(ids, epochID-uint64(i))
			}
		}
	}
	return ids
}

// participantRewards serves the reward window from the cache, fetching and
// caching any epochs not seen before. Epochs the chain has no summary for are
// simply absent from the result.
func (s *Service) participantRewards(ctx context.Context, participantID string, epochID, currentEpoch uint64) ([]RewardInfo, error) {
	epochs := rewardEpochs(epochID, currentEpoch)
	if len(epochs) == 0 {
		return []RewardInfo{}, nil
	}
	cached, err := s.db.RewardsForParticipant(ctx, participantID, epochs)
	if err != nil {
		return nil, err
	}
	haveEpoch := make(map[uint64]bool, len(cached))
	for _, r := range cached {
		haveEpoch[r.EpochID] = true
	}

	var fetched []*types.Reward
	for _, e := range epochs {
		if haveEpoch[e] {
			continue
		}
		summary, err := s.client.GetEpochPerformanceSummary(ctx, e, participantID, 0)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"participant": participantID,
				"epoch":       e,
			}).Debug("No performance summary for epoch")
			continue
		}
		fetched = append(fetched, &types.Reward{
			EpochID:       e,
			ParticipantID: participantID,
			RewardedCoins: summary.RewardedCoins,
			Claimed:       summary.Claimed,
			UpdatedAt:     time.Now().UTC(),
		})
	}
	if len(fetched) > 0 {
		if err := s.db.SaveRewards(ctx, fetched); err != nil {
			return nil, err
		}
	}

	rows := make([]*types.Reward, 0, len(cached)+len(fetched))
	rows = append(rows, cached...)
	rows = append(rows, fetched...)
	rewards := make([]RewardInfo, 0, len(rows))
	for _, r := range rows {
		gnk, ok := rewardGNK(r.RewardedCoins)
		if !ok {
			log.WithFields(logrus.Fields{
				"participant": r.ParticipantID,
				"epoch":       r.EpochID,
				"coins":       r.RewardedCoins,
			}).Error("Skipping reward with malformed coin amount")
			continue
		}
		rewards = append(rewards, RewardInfo{
			EpochID:           r.EpochID,
			AssignedRewardGNK: gnk,
			Claimed:           r.Claimed,
		})
	}
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].EpochID > rewards[j].EpochID })
	return rewards, nil
}

// rewardGNK converts a ugnk amount string to whole gnk.
func rewardGNK(coins string) (int64, bool) {
	if coins == "" || coins == "0" {
		return 0, true
	}
	amount, ok := new(big.Int).SetString(coins, 10)
	if !ok {
		return 0, false
	}
	return new(big.Int).Quo(amount, big.NewInt(ugnkPerGNK)).Int64(), true
}

// detailsSnapshot returns the participant's fused snapshot row for the epoch.
// A non-zero height selects that exact snapshot batch, otherwise the most
// recently cached batch of the epoch is used.
func (s *Service) detailsSnapshot(ctx context.Context, participantID string, epochID, requestedHeight uint64) (*types.ParticipantSnapshot, error) {
	var batch *types.SnapshotBatch
	var err error
	if requestedHeight > 0 {
		batch, err = s.db.SnapshotBatch(ctx, epochID, requestedHeight)
	} else {
		batch, err = s.db.LatestSnapshotBatch(ctx, epochID)
	}
	if err != nil || batch == nil {
		return nil, err
	}
	for _, snap := range batch.Participants {
		if snap.Index == participantID {
			return snap, nil
		}
	}
	return nil, nil
}

// participantWarmKeys serves a participant's warm keys from the cache,
// fetching inline on a first read. A fetch that succeeds is cached even when
// empty so the next read can tell "none granted" from "never fetched"; a
// fetch that fails degrades to an empty list without caching.
func (s *Service) participantWarmKeys(ctx context.Context, epochID uint64, participantID string) ([]WarmKeyInfo, error) {
	rows, err := s.db.WarmKeys(ctx, epochID, participantID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		log.WithFields(logrus.Fields{
			"participant": participantID,
			"epoch":       epochID,
		}).Info("Warm keys not cached, fetching from chain")
		grants, err := s.client.GetWarmKeys(ctx, participantID)
		if err != nil {
			log.WithError(err).WithField("participant", participantID).Warn("Could not fetch warm keys")
			rows = []*types.WarmKey{}
		} else {
			rows = warmKeyRows(epochID, participantID, grants)
			if err := s.db.SaveWarmKeys(ctx, epochID, participantID, rows); err != nil {
				return nil, err
			}
		}
	}
	keys := make([]WarmKeyInfo, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, WarmKeyInfo{
			GranteeAddress: row.GranteeAddress,
			GrantedAt:      row.GrantedAt,
		})
	}
	return keys, nil
}

func warmKeyRows(epochID uint64, participantID string, grants []chainclient.WarmKeyGrant) []*types.WarmKey {
	now := time.Now().UTC()
	rows := make([]*types.WarmKey, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, &types.WarmKey{
			EpochID:        epochID,
			ParticipantID:  participantID,
			GranteeAddress: g.GranteeAddress,
			GrantedAt:      g.GrantedAt,
			UpdatedAt:      now,
		})
	}
	return rows
}

// participantMLNodes serves a participant's registered ml nodes from the
// cache, fetching inline on a first read with the same three-valued policy as
// warm keys. Each node's weight prefers the epoch group's assignment and
// falls back to the registry's own value.
func (s *Service) participantMLNodes(ctx context.Context, epochID uint64, participantID string, nodeWeights types.MLNodesMap) ([]MLNodeInfo, error) {
	rows, err := s.db.HardwareNodes(ctx, epochID, participantID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		log.WithFields(logrus.Fields{
			"participant": participantID,
			"epoch":       epochID,
		}).Info("Hardware nodes not cached, fetching from chain")
		nodes, err := s.client.GetHardwareNodes(ctx, participantID)
		if err != nil {
			log.WithError(err).WithField("participant", participantID).Warn("Could not fetch hardware nodes")
			rows = []*types.HardwareNode{}
		} else {
			rows = hardwareRows(epochID, participantID, nodes)
			if err := s.db.SaveHardwareNodes(ctx, epochID, participantID, rows); err != nil {
				return nil, err
			}
		}
	}

	mlNodes := make([]MLNodeInfo, 0, len(rows))
	for _, node := range rows {
		pocWeight := node.PocWeight
		if w, ok := nodeWeights[node.LocalID]; ok && w != 0 {
			weight := w
			pocWeight = &weight
		}
		models := node.Models
		if models == nil {
			models = []string{}
		}
		hardware := make([]HardwareInfo, 0, len(node.Hardware))
		for _, h := range node.Hardware {
			hardware = append(hardware, HardwareInfo{Type: h.Type, Count: h.Count})
		}
		mlNodes = append(mlNodes, MLNodeInfo{
			LocalID:   node.LocalID,
			Status:    node.Status,
			Models:    models,
			Hardware:  hardware,
			Host:      node.Host,
			Port:      node.Port,
			PocWeight: pocWeight,
		})
	}
	return mlNodes, nil
}

func hardwareRows(epochID uint64, participantID string, nodes []chainclient.HardwareNode) []*types.HardwareNode {
	rows := make([]*types.HardwareNode, 0, len(nodes))
	for _, node := range nodes {
		var pocWeight *int64
		if node.PocWeight != nil {
			w := int64(*node.PocWeight)
			pocWeight = &w
		}
		rows = append(rows, &types.HardwareNode{
			EpochID:       epochID,
			ParticipantID: participantID,
			LocalID:       node.LocalID,
			Status:        node.Status,
			Models:        node.Models,
			Hardware:      node.Hardware,
			Host:          node.Host,
			Port:          string(node.Port),
			PocWeight:     pocWeight,
		})
	}
	return rows
}
