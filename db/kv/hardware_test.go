package kv

import (
	"context"
	"testing"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/stretchr/testify/require"
)

func TestHardwareNodes_ThreeValuedLookup(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := db.HardwareNodes(ctx, 7, "gonka1aaa")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, db.SaveHardwareNodes(ctx, 7, "gonka1aaa", []*types.HardwareNode{}))
	got, err = db.HardwareNodes(ctx, 7, "gonka1aaa")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got, 0)

	w200, w100 := int64(200), int64(100)
	nodes := []*types.HardwareNode{
		{
			EpochID:       7,
			ParticipantID: "gonka1aaa",
			LocalID:       "node-2",
			Status:        "POC",
			Models:        []string{"Qwen/QwQ-32B"},
			Hardware:      []types.HardwareComponent{{Type: "NVIDIA H100", Count: 8}},
			Host:          "10.0.0.2",
			Port:          "8080",
			PocWeight:     &w200,
		},
		{
			EpochID:       7,
			ParticipantID: "gonka1aaa",
			LocalID:       "node-1",
			Status:        "INFERENCE",
			PocWeight:     &w100,
		},
	}
	require.NoError(t, db.SaveHardwareNodes(ctx, 7, "gonka1aaa", nodes))
	got, err = db.HardwareNodes(ctx, 7, "gonka1aaa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "node-1", got[0].LocalID, "nodes must be ordered by local id")
	require.Equal(t, "node-2", got[1].LocalID)
	require.Equal(t, uint32(8), got[1].Hardware[0].Count)
}

func TestHardwareNodes_ScopedToEpochAndParticipant(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveHardwareNodes(ctx, 7, "gonka1aaa", []*types.HardwareNode{
		{EpochID: 7, ParticipantID: "gonka1aaa", LocalID: "node-1"},
	}))

	got, err := db.HardwareNodes(ctx, 8, "gonka1aaa")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = db.HardwareNodes(ctx, 7, "gonka1bbb")
	require.NoError(t, err)
	require.Nil(t, got)
}
