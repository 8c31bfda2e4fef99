package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

const (
	modelsBodyFixture = `{"model":[` +
		`{"id":"m-a","proposed_by":"gonka1proposer","v_ram":16,"throughput_per_nonce":"1000",` +
		`"units_of_compute_per_token":"10","hf_repo":"org/model-a","hf_commit":"abc123",` +
		`"model_args":["--quantize"],"validation_threshold":{"value":"85","exponent":-2}},` +
		`{"id":"m-x"}]}`
	modelsStatsBodyFixture = `{"stats_models":[` +
		`{"model":"m-a","ai_tokens":"123000","inferences":"77"},` +
		`{"model":"m-x","ai_tokens":"","inferences":0}]}`
)

func TestAggregateModelRows(t *testing.T) {
	memberA := chainclient.EpochMember{
		Index:  "p1",
		Models: []string{"m-a", "m-b"},
		MLNodes: []chainclient.MLNodeBundle{
			{MLNodes: []chainclient.MLNode{{NodeID: "n1", PocWeight: weightPtr(50)}, {NodeID: "n2", PocWeight: weightPtr(40)}}},
			{MLNodes: []chainclient.MLNode{{NodeID: "n3", PocWeight: weightPtr(40)}}},
		},
	}
	// One bundle short: m-c has no node bundle and is dropped.
	memberB := chainclient.EpochMember{
		Index:  "p2",
		Models: []string{"m-a", "m-c"},
		MLNodes: []chainclient.MLNodeBundle{
			{MLNodes: []chainclient.MLNode{{NodeID: "n4", PocWeight: weightPtr(0)}}},
		},
	}

	rows := aggregateModelRows(42, []chainclient.EpochMember{memberA, memberB})
	require.Len(t, rows, 2)
	assert.Equal(t, &types.ModelRow{EpochID: 42, ModelID: "m-a", TotalWeight: 90, ParticipantCount: 2}, rows[0])
	assert.Equal(t, &types.ModelRow{EpochID: 42, ModelID: "m-b", TotalWeight: 40, ParticipantCount: 1}, rows[1])
}

func registerModelEndpoints(t *testing.T, chain *fakeChain) {
	t.Helper()
	chain.respond(modelsPath, modelsBodyFixture)
	chain.respond(modelsStatsPath, modelsStatsBodyFixture)
}

func TestCurrentModels(t *testing.T) {
	chain := newFakeChain(t)
	member := chain.member("p1", 100)
	member.Models = []string{"m-a"}
	member.MLNodes = []chainclient.MLNodeBundle{
		{MLNodes: []chainclient.MLNode{{NodeID: "n1", PocWeight: weightPtr(60)}, {NodeID: "n2", PocWeight: weightPtr(30)}}},
	}
	chain.respond(latestBlockPath, blockBody(10050, "2024-01-01T00:00:00Z"))
	chain.respond(currentGroupPath, epochGroupBody(t, epochGroup(42, 9900, 10000, member)))
	registerModelEndpoints(t, chain)
	s := newTestService(t, chain)
	ctx := context.Background()

	resp, err := s.CurrentModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp.EpochID)
	assert.Equal(t, uint64(10050), resp.Height)
	assert.True(t, resp.IsCurrent)
	assert.NotEmpty(t, resp.CachedAt)

	require.Len(t, resp.Models, 2)
	modelA := resp.Models[0]
	assert.Equal(t, "m-a", modelA.ID)
	assert.Equal(t, int64(90), modelA.TotalWeight)
	assert.Equal(t, 1, modelA.ParticipantCount)
	assert.Equal(t, "gonka1proposer", modelA.ProposedBy)
	assert.Equal(t, "16", modelA.VRAM)
	assert.Equal(t, "1000", modelA.ThroughputPerNonce)
	assert.Equal(t, "10", modelA.UnitsOfComputePerToken)
	assert.Equal(t, "org/model-a", modelA.HFRepo)
	assert.Equal(t, "abc123", modelA.HFCommit)
	assert.Equal(t, []string{"--quantize"}, modelA.ModelArgs)
	assert.JSONEq(t, `{"value":"85","exponent":-2}`, string(modelA.ValidationThreshold))

	// A model no member served this epoch still lists, with zero weight.
	modelX := resp.Models[1]
	assert.Equal(t, "m-x", modelX.ID)
	assert.Zero(t, modelX.TotalWeight)
	assert.Zero(t, modelX.ParticipantCount)
	assert.Equal(t, []string{}, modelX.ModelArgs)

	assert.Equal(t, []ModelStats{
		{Model: "m-a", AITokens: "123000", Inferences: 77},
		{Model: "m-x", AITokens: "0", Inferences: 0},
	}, resp.Stats)

	// The aggregation and the raw payloads are both cached.
	rows, err := s.db.ModelRows(ctx, 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m-a", rows[0].ModelID)
	cached, err := s.db.ModelsAPICache(ctx, 42, 0)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, uint64(10050), cached.Height)
}

func TestCurrentModels_ServesCachedPayloadsOnFetchFailure(t *testing.T) {
	chain := newFakeChain(t)
	member := chain.member("p1", 100)
	member.Models = []string{"m-a"}
	member.MLNodes = []chainclient.MLNodeBundle{{MLNodes: []chainclient.MLNode{{NodeID: "n1", PocWeight: weightPtr(60)}}}}
	chain.respond(latestBlockPath, blockBody(10050, "2024-01-01T00:00:00Z"))
	chain.respond(currentGroupPath, epochGroupBody(t, epochGroup(42, 9900, 10000, member)))
	registerModelEndpoints(t, chain)
	s := newTestService(t, chain)
	ctx := context.Background()

	_, err := s.CurrentModels(ctx)
	require.NoError(t, err)

	chain.fail(modelsStatsPath)
	resp, err := s.CurrentModels(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "m-a", resp.Models[0].ID)
	require.Len(t, resp.Stats, 2)
	assert.Equal(t, "123000", resp.Stats[0].AITokens)
}

func TestCurrentModels_ErrorWithoutCachedPayloads(t *testing.T) {
	chain := newFakeChain(t)
	chain.respond(latestBlockPath, blockBody(10050, "2024-01-01T00:00:00Z"))
	chain.respond(currentGroupPath, epochGroupBody(t, epochGroup(42, 9900, 10000, chain.member("p1", 100))))
	s := newTestService(t, chain)

	_, err := s.CurrentModels(context.Background())
	require.ErrorIs(t, err, chainclient.ErrUpstreamUnavailable)
}

func TestHistoricalModels(t *testing.T) {
	chain := newFakeChain(t)
	member := chain.member("p1", 100)
	member.Models = []string{"m-a"}
	member.MLNodes = []chainclient.MLNodeBundle{{MLNodes: []chainclient.MLNode{{NodeID: "n1", PocWeight: weightPtr(45)}}}}
	chain.respond(latestEpochPath, latestEpochBody(t, 43, 10600, 11200, 600))
	chain.respond(epochGroupPath(42), epochGroupBody(t, epochGroup(42, 9900, 10000, member)))
	chain.respond(epochGroupPath(43), epochGroupBody(t, epochGroup(43, 10500, 10600)))
	registerModelEndpoints(t, chain)
	s := newTestService(t, chain)

	resp, err := s.HistoricalModels(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp.EpochID)
	assert.Equal(t, uint64(10590), resp.Height)
	assert.False(t, resp.IsCurrent)
	require.Len(t, resp.Models, 2)
	assert.Equal(t, int64(45), resp.Models[0].TotalWeight)
}
