package kv

import (
	"context"
	"testing"
	"time"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/stretchr/testify/require"
)

func TestNodeHealth_CanSaveRetrieve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := db.NodeHealth(ctx)
	require.NoError(t, err)
	require.Nil(t, got, "expected no health rows before the first probe")

	ms := int64(120)
	statuses := []*types.NodeHealth{
		{ParticipantIndex: "gonka1aaa", IsHealthy: true, ResponseTimeMS: &ms, LastCheck: time.Now().UTC().Truncate(time.Second)},
		{ParticipantIndex: "gonka1bbb", IsHealthy: false, ErrorMessage: "HTTP 503", LastCheck: time.Now().UTC().Truncate(time.Second)},
	}
	require.NoError(t, db.SaveNodeHealth(ctx, statuses))

	got, err = db.NodeHealth(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, statuses[0], got[0])
	require.Equal(t, statuses[1], got[1])
}

func TestSaveNodeHealth_ReplacesPerParticipant(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveNodeHealth(ctx, []*types.NodeHealth{
		{ParticipantIndex: "gonka1aaa", IsHealthy: false, ErrorMessage: "connection refused"},
	}))
	require.NoError(t, db.SaveNodeHealth(ctx, []*types.NodeHealth{
		{ParticipantIndex: "gonka1aaa", IsHealthy: true},
	}))

	got, err := db.NodeHealth(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].IsHealthy)
	require.Empty(t, got[0].ErrorMessage)
}
