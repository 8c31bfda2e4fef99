package aggregator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// canonicalHeightLag is how many blocks before the next epoch's effective
// height an epoch is considered finalized for observation. Reading exactly at
// the boundary would mix state from both participant sets.
const canonicalHeightLag = 10

// InvalidHeightError reports a requested height that precedes an epoch's
// effective start. No state for that epoch exists below that height, so the
// request is a client error rather than a missing cache entry.
type InvalidHeightError struct {
	Height          uint64
	EpochID         uint64
	EffectiveHeight uint64
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf(
		"Height %d is before epoch %d start (effective height: %d). No data exists for this epoch at this height.",
		e.Height, e.EpochID, e.EffectiveHeight,
	)
}

// resolveHeight maps (epoch, requested height) to the height at which the
// epoch should be observed. A zero requested height means "not specified".
//
// The current epoch reads at the requested height, or the live head when none
// was given. Past epochs resolve to the epoch's canonical height, preferring
// the next epoch group's effective height as the boundary and falling back to
// the next poc start from the latest epoch info when that group is not yet
// queryable. Requested heights are validated against the epoch's effective
// start and clamped to the canonical height from above.
func (s *Service) resolveHeight(ctx context.Context, epochID uint64, requestedHeight uint64) (uint64, error) {
	latestInfo, err := s.client.GetLatestEpoch(ctx)
	if err != nil {
		return 0, err
	}
	if epochID == uint64(latestInfo.LatestEpoch.Index) {
		if requestedHeight != 0 {
			return requestedHeight, nil
		}
		return s.client.GetLatestHeight(ctx)
	}

	group, err := s.client.GetEpochGroup(ctx, epochID)
	if err != nil {
		return 0, err
	}
	effectiveHeight := int64(group.EffectiveBlockHeight)

	var canonicalHeight int64
	nextGroup, err := s.client.GetEpochGroup(ctx, epochID+1)
	if err == nil {
		canonicalHeight = int64(nextGroup.EffectiveBlockHeight) - canonicalHeightLag
	} else {
		canonicalHeight = int64(latestInfo.EpochStages.NextPocStart) - canonicalHeightLag
	}

	if requestedHeight == 0 {
		return uint64(canonicalHeight), nil
	}
	if int64(requestedHeight) < effectiveHeight {
		return 0, &InvalidHeightError{
			Height:          requestedHeight,
			EpochID:         epochID,
			EffectiveHeight: uint64(effectiveHeight),
		}
	}
	if int64(requestedHeight) >= canonicalHeight {
		log.WithFields(logrus.Fields{
			"epoch":     epochID,
			"requested": requestedHeight,
			"canonical": canonicalHeight,
		}).Info("Height is after epoch end, clamping to canonical height")
		return uint64(canonicalHeight), nil
	}
	return requestedHeight, nil
}
