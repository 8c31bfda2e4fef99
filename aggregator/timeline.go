package aggregator

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/gonka-ai/dashboard-backend/types"
)

// timelineReferenceLag is how far behind the head the reference block for the
// average block time sits.
const timelineReferenceLag = 10000

// Timeline assembles the chain timeline: head and reference blocks, the
// average block time between them, milestone events and the current epoch
// boundaries. A successful assembly is snapshotted; when the upstream is
// unreachable the last snapshot is served instead.
func (s *Service) Timeline(ctx context.Context) (*TimelineResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.Timeline")
	defer span.End()

	snapshot, err := s.assembleTimeline(ctx)
	if err != nil {
		cached, cacheErr := s.db.Timeline(ctx)
		if cacheErr != nil || cached == nil {
			return nil, err
		}
		log.WithError(err).Warn("Timeline assembly failed, serving cached snapshot")
		return timelineResponse(cached), nil
	}
	if err := s.db.SaveTimeline(ctx, snapshot); err != nil {
		log.WithError(err).Warn("Could not cache timeline snapshot")
	}
	return timelineResponse(snapshot), nil
}

func (s *Service) assembleTimeline(ctx context.Context) (*types.TimelineSnapshot, error) {
	height, err := s.client.GetLatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.client.GetBlock(ctx, height)
	if err != nil {
		return nil, err
	}
	if height <= timelineReferenceLag {
		return nil, errors.Errorf("height %d is below the %d-block reference window", height, timelineReferenceLag)
	}
	referenceHeight := height - timelineReferenceLag
	reference, err := s.client.GetBlock(ctx, referenceHeight)
	if err != nil {
		return nil, err
	}

	currentTime, err := time.Parse(time.RFC3339Nano, current.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse head block timestamp")
	}
	referenceTime, err := time.Parse(time.RFC3339Nano, reference.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse reference block timestamp")
	}
	avgBlockTime := math.Round(currentTime.Sub(referenceTime).Seconds()/float64(timelineReferenceLag)*100) / 100

	restrictionEnd, err := s.client.GetRestrictionEndBlock(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.client.GetLatestEpoch(ctx)
	if err != nil {
		return nil, err
	}

	return &types.TimelineSnapshot{
		CurrentBlock:   *current,
		ReferenceBlock: *reference,
		AvgBlockTime:   avgBlockTime,
		Events: []types.TimelineEvent{
			{
				BlockHeight: uint64(restrictionEnd),
				Description: "Money Transfer Enabled",
				Occurred:    int64(height) >= restrictionEnd,
			},
		},
		CurrentEpochStart: int64(latest.LatestEpoch.PocStartBlockHeight),
		CurrentEpochIndex: uint64(latest.LatestEpoch.Index),
		EpochLength:       int64(latest.EpochParams.EpochLength),
		CachedAt:          time.Now().UTC(),
	}, nil
}

func timelineResponse(snapshot *types.TimelineSnapshot) *TimelineResponse {
	events := snapshot.Events
	if events == nil {
		events = []types.TimelineEvent{}
	}
	return &TimelineResponse{
		CurrentBlock:      snapshot.CurrentBlock,
		ReferenceBlock:    snapshot.ReferenceBlock,
		AvgBlockTime:      snapshot.AvgBlockTime,
		Events:            events,
		CurrentEpochStart: snapshot.CurrentEpochStart,
		CurrentEpochIndex: snapshot.CurrentEpochIndex,
		EpochLength:       snapshot.EpochLength,
	}
}
