package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

func TestTimeline_Assembles(t *testing.T) {
	chain := newFakeChain(t)
	chain.respond(latestBlockPath, blockBody(20000, "2024-01-02T00:46:40Z"))
	chain.respond(blockPath(20000), blockBody(20000, "2024-01-02T00:46:40Z"))
	chain.respond(blockPath(10000), blockBody(10000, "2024-01-01T00:00:00Z"))
	chain.respond(restrictionsPath, `{"params":{"restriction_end_block":"15000"}}`)
	chain.respond(latestEpochPath, latestEpochBody(t, 42, 19900, 20500, 700))
	s := newTestService(t, chain)

	resp, err := s.Timeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.BlockInfo{Height: 20000, Timestamp: "2024-01-02T00:46:40Z"}, resp.CurrentBlock)
	assert.Equal(t, types.BlockInfo{Height: 10000, Timestamp: "2024-01-01T00:00:00Z"}, resp.ReferenceBlock)
	// 89200 seconds over the 10000-block window.
	assert.Equal(t, 8.92, resp.AvgBlockTime)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, types.TimelineEvent{
		BlockHeight: 15000,
		Description: "Money Transfer Enabled",
		Occurred:    true,
	}, resp.Events[0])
	assert.Equal(t, int64(19900), resp.CurrentEpochStart)
	assert.Equal(t, uint64(42), resp.CurrentEpochIndex)
	assert.Equal(t, int64(700), resp.EpochLength)

	snapshot, err := s.db.Timeline(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, uint64(20000), snapshot.CurrentBlock.Height)
}

func TestTimeline_PendingRestriction(t *testing.T) {
	chain := newFakeChain(t)
	chain.respond(latestBlockPath, blockBody(20000, "2024-01-02T00:46:40Z"))
	chain.respond(blockPath(20000), blockBody(20000, "2024-01-02T00:46:40Z"))
	chain.respond(blockPath(10000), blockBody(10000, "2024-01-01T00:00:00Z"))
	chain.respond(restrictionsPath, `{"params":{"restriction_end_block":"25000"}}`)
	chain.respond(latestEpochPath, latestEpochBody(t, 42, 19900, 20500, 700))
	s := newTestService(t, chain)

	resp, err := s.Timeline(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.False(t, resp.Events[0].Occurred)
	assert.Equal(t, uint64(25000), resp.Events[0].BlockHeight)
}

func TestTimeline_ServesSnapshotWhenAssemblyFails(t *testing.T) {
	chain := newFakeChain(t)
	s := newTestService(t, chain)
	ctx := context.Background()
	require.NoError(t, s.db.SaveTimeline(ctx, &types.TimelineSnapshot{
		CurrentBlock:      types.BlockInfo{Height: 19000, Timestamp: "2024-01-01T12:00:00Z"},
		ReferenceBlock:    types.BlockInfo{Height: 9000, Timestamp: "2024-01-01T00:00:00Z"},
		AvgBlockTime:      5.5,
		CurrentEpochStart: 18900,
		CurrentEpochIndex: 41,
		EpochLength:       700,
		CachedAt:          time.Now().UTC(),
	}))

	resp, err := s.Timeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(19000), resp.CurrentBlock.Height)
	assert.Equal(t, 5.5, resp.AvgBlockTime)
	assert.Equal(t, uint64(41), resp.CurrentEpochIndex)
	// A snapshot without events still serves an empty list, not null.
	assert.Equal(t, []types.TimelineEvent{}, resp.Events)
}

func TestTimeline_ErrorWithoutSnapshot(t *testing.T) {
	chain := newFakeChain(t)
	s := newTestService(t, chain)

	_, err := s.Timeline(context.Background())
	require.ErrorIs(t, err, chainclient.ErrUpstreamUnavailable)
}

func TestTimeline_RejectsShortChain(t *testing.T) {
	chain := newFakeChain(t)
	chain.respond(latestBlockPath, blockBody(9000, "2024-01-01T00:00:00Z"))
	chain.respond(blockPath(9000), blockBody(9000, "2024-01-01T00:00:00Z"))
	s := newTestService(t, chain)

	_, err := s.Timeline(context.Background())
	require.EqualError(t, err, "height 9000 is below the 10000-block reference window")
}
