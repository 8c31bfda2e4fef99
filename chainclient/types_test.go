package chainclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleNumbers(t *testing.T) {
	var payload struct {
		A Uint64 `json:"a"`
		B Uint64 `json:"b"`
		C Int64  `json:"c"`
		D Int64  `json:"d"`
		E Text   `json:"e"`
		F Text   `json:"f"`
	}
	body := `{"a":"18446744073709551615","b":42,"c":"-7","d":-7,"e":"8080","f":8080}`
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, Uint64(18446744073709551615), payload.A)
	assert.Equal(t, Uint64(42), payload.B)
	assert.Equal(t, Int64(-7), payload.C)
	assert.Equal(t, Int64(-7), payload.D)
	assert.Equal(t, Text("8080"), payload.E)
	assert.Equal(t, Text("8080"), payload.F)
}

func TestFlexibleNumbers_NullAndMissing(t *testing.T) {
	var payload struct {
		A Uint64 `json:"a"`
		B Text   `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":null}`), &payload))
	assert.Equal(t, Uint64(0), payload.A)
	assert.Equal(t, Text(""), payload.B)
}

func TestEpochMember_MLNodesMap(t *testing.T) {
	body := `{
		"index": "gonka1aaa",
		"validator_key": "q83v",
		"weight": 300,
		"models": ["llama-3", "qwen-7b"],
		"ml_nodes": [
			{"ml_nodes": [{"node_id": "node-a", "poc_weight": 100}, {"node_id": "node-b", "poc_weight": 50}]},
			{"ml_nodes": [{"node_id": "node-c", "poc_weight": 150}, {"node_id": "node-d"}, {"poc_weight": 10}]}
		],
		"seed": {"signature": "sigsig"}
	}`
	member := &EpochMember{}
	require.NoError(t, json.Unmarshal([]byte(body), member))

	assert.Equal(t, "sigsig", member.Seed.Signature)
	// Nodes without an id or weight are dropped.
	assert.Equal(t, map[string]int64{"node-a": 100, "node-b": 50, "node-c": 150}, member.MLNodesMap())
}

func TestConsensusPubkey_Base64Key(t *testing.T) {
	assert.Equal(t, "kk", ConsensusPubkey{Key: "kk", Value: "vv"}.Base64Key())
	assert.Equal(t, "vv", ConsensusPubkey{Value: "vv"}.Base64Key())
	assert.Equal(t, "", ConsensusPubkey{}.Base64Key())
}
