package kv

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gonka-ai/dashboard-backend/types"
	"github.com/stretchr/testify/require"
)

func TestModelRows_CanSaveRetrieve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := db.ModelRows(ctx, 7)
	require.NoError(t, err)
	require.Nil(t, got)

	rows := []*types.ModelRow{
		{EpochID: 7, ModelID: "Qwen/QwQ-32B", TotalWeight: 1200, ParticipantCount: 3},
		{EpochID: 7, ModelID: "Qwen/Qwen2.5-7B-Instruct", TotalWeight: 400, ParticipantCount: 1},
	}
	require.NoError(t, db.SaveModelRows(ctx, 7, rows))

	got, err = db.ModelRows(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]*types.ModelRow{}
	for _, row := range got {
		byID[row.ModelID] = row
	}
	require.Equal(t, int64(1200), byID["Qwen/QwQ-32B"].TotalWeight)
	require.Equal(t, 1, byID["Qwen/Qwen2.5-7B-Instruct"].ParticipantCount)

	got, err = db.ModelRows(ctx, 8)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestModelsAPICache_ExactAndLatestHeight(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := db.ModelsAPICache(ctx, 7, 0)
	require.NoError(t, err)
	require.Nil(t, got)

	older := &types.ModelsAPICache{
		EpochID:       7,
		Height:        100,
		ModelsPayload: json.RawMessage(`{"model":[{"id":"Qwen/QwQ-32B"}]}`),
		StatsPayload:  json.RawMessage(`{"stats_models":[]}`),
	}
	newer := &types.ModelsAPICache{
		EpochID:       7,
		Height:        200,
		ModelsPayload: json.RawMessage(`{"model":[]}`),
		StatsPayload:  json.RawMessage(`{"stats_models":[{"model":"Qwen/QwQ-32B"}]}`),
	}
	require.NoError(t, db.SaveModelsAPICache(ctx, older))
	require.NoError(t, db.SaveModelsAPICache(ctx, newer))

	got, err = db.ModelsAPICache(ctx, 7, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(100), got.Height)
	require.JSONEq(t, string(older.ModelsPayload), string(got.ModelsPayload))

	// Zero height selects the highest cached height.
	got, err = db.ModelsAPICache(ctx, 7, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(200), got.Height)
	require.JSONEq(t, string(newer.StatsPayload), string(got.StatsPayload))

	got, err = db.ModelsAPICache(ctx, 7, 300)
	require.NoError(t, err)
	require.Nil(t, got, "an uncached height must miss")
}
