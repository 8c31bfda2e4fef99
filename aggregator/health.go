package aggregator

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

// healthProbeConcurrency bounds in-flight health probes so a large epoch
// doesn't open a connection to every participant at once.
const healthProbeConcurrency = 8

// RefreshNodeHealth probes every member of the current epoch group. It is
// the scheduler's per-tick entry point.
func (s *Service) RefreshNodeHealth(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("health"))
	defer timer.ObserveDuration()

	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return err
	}
	s.cacheNodeHealth(ctx, group.Participants)
	return nil
}

// cacheNodeHealth probes the members' inference endpoints concurrently and
// batch-writes the results. Probe failures are recorded as unhealthy rows;
// the sweep itself never fails the caller.
func (s *Service) cacheNodeHealth(ctx context.Context, members []chainclient.EpochMember) {
	rows := make([]*types.NodeHealth, len(members))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(healthProbeConcurrency)
	for i := range members {
		i := i
		m := &members[i]
		if m.Index == "" {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			result := s.client.CheckNodeHealth(gctx, m.InferenceURL)
			rows[i] = &types.NodeHealth{
				ParticipantIndex: m.Index,
				IsHealthy:        result.IsHealthy,
				LastCheck:        time.Now().UTC(),
				ErrorMessage:     result.ErrorMessage,
				ResponseTimeMS:   result.ResponseTimeMS,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Could not refresh node health")
		return
	}

	probed := make([]*types.NodeHealth, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			probed = append(probed, row)
		}
	}
	if err := s.db.SaveNodeHealth(ctx, probed); err != nil {
		log.WithError(err).Error("Could not refresh node health")
		return
	}
	log.WithField("count", len(probed)).Info("Cached node health statuses")
}
