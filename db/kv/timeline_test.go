package kv

import (
	"context"
	"testing"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/stretchr/testify/require"
)

func TestTimeline_CanSaveRetrieve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := db.Timeline(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	snapshot := &types.TimelineSnapshot{
		CurrentBlock:      types.BlockInfo{Height: 250000, Timestamp: "2026-08-25T12:00:00Z"},
		ReferenceBlock:    types.BlockInfo{Height: 240000, Timestamp: "2026-08-24T22:00:00Z"},
		AvgBlockTime:      5.04,
		Events:            []types.TimelineEvent{{BlockHeight: 100000, Description: "Money Transfer Enabled", Occurred: true}},
		CurrentEpochStart: 248000,
		CurrentEpochIndex: 7,
		EpochLength:       2000,
	}
	require.NoError(t, db.SaveTimeline(ctx, snapshot))

	got, err = db.Timeline(ctx)
	require.NoError(t, err)
	require.Equal(t, snapshot, got)

	// A later save replaces the only snapshot.
	snapshot.CurrentBlock.Height = 250100
	require.NoError(t, db.SaveTimeline(ctx, snapshot))
	got, err = db.Timeline(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(250100), got.CurrentBlock.Height)
}
