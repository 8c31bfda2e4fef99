package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	testDB "github.com/gonka-ai/dashboard-backend/db/testing"
	"github.com/gonka-ai/dashboard-backend/types"
)

const (
	latestBlockPath  = "/cosmos/base/tendermint/v1beta1/blocks/latest"
	latestEpochPath  = "/gonka/inference/v1/latest_epoch"
	currentGroupPath = "/gonka/inference/v1/epochs/current_epoch_group"
	participantsPath = "/gonka/inference/v1/participants"
	validatorsPath   = "/cosmos/staking/v1beta1/validators"
	modelsPath       = "/gonka/inference/v1/models"
	modelsStatsPath  = "/gonka/inference/v1/models_stats"
	restrictionsPath = "/gonka/inference/v1/restrictions_params"
	healthPath       = "/health"
)

func epochGroupPath(epochID uint64) string {
	return fmt.Sprintf("/gonka/inference/v1/epochs/%d/epoch_group", epochID)
}

func blockPath(height uint64) string {
	return fmt.Sprintf("/cosmos/base/tendermint/v1beta1/blocks/%d", height)
}

func perfSummaryPath(epochID uint64, participantID string) string {
	return fmt.Sprintf("/gonka/inference/v1/epoch_performance_summary/%d/%s", epochID, participantID)
}

func hardwareNodesPath(participantID string) string {
	return "/gonka/inference/v1/hardware_nodes/" + participantID
}

func grantsPath(granter string) string {
	return "/cosmos/authz/v1beta1/grants/granter/" + granter
}

// fakeChain is an httptest-backed gonka node. Handlers are keyed by exact
// URL path; anything unregistered answers 404, which surfaces to the client
// as a failed fetch.
type fakeChain struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	heights  map[string]string
}

func newFakeChain(t *testing.T) *fakeChain {
	f := &fakeChain{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
		heights:  make(map[string]string),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		if h := r.Header.Get("X-Cosmos-Block-Height"); h != "" {
			f.heights[r.URL.Path] = h
		}
		handler := f.handlers[r.URL.Path]
		f.mu.Unlock()
		if handler == nil {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeChain) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// respond registers a fixed 200 body for a path.
func (f *fakeChain) respond(path, body string) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	})
}

// fail makes a path answer 500 on every hit.
func (f *fakeChain) fail(path string) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})
}

func (f *fakeChain) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// heightHeader returns the block height header seen on the last request to
// the path, or "" if none carried one.
func (f *fakeChain) heightHeader(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heights[path]
}

// member builds an epoch group entry whose inference URL points back at the
// fake chain, so health probes resolve against its /health handler.
func (f *fakeChain) member(index string, weight int64) chainclient.EpochMember {
	return chainclient.EpochMember{
		Index:        index,
		Weight:       chainclient.Int64(weight),
		InferenceURL: f.srv.URL,
	}
}

// newTestService wires a service against the fake chain with a fresh bolt
// store. Stop is registered after the store's cleanup so cancellation runs
// before the database closes.
func newTestService(t *testing.T, chain *fakeChain) *Service {
	client, err := chainclient.NewClient([]string{chain.srv.URL})
	require.NoError(t, err)
	s := NewService(context.Background(), &Config{
		Client:   client,
		Database: testDB.SetupDB(t),
	})
	t.Cleanup(func() {
		require.NoError(t, s.Stop())
	})
	return s
}

func jsonBody(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func blockBody(height uint64, ts string) string {
	return fmt.Sprintf(`{"block":{"header":{"height":"%d","time":"%s"}}}`, height, ts)
}

func latestEpochBody(t *testing.T, index uint64, pocStart, nextPocStart, epochLength int64) string {
	info := &chainclient.LatestEpochInfo{}
	info.LatestEpoch.Index = chainclient.Uint64(index)
	info.LatestEpoch.PocStartBlockHeight = chainclient.Int64(pocStart)
	info.EpochStages.NextPocStart = chainclient.Int64(nextPocStart)
	info.EpochParams.EpochLength = chainclient.Int64(epochLength)
	return jsonBody(t, info)
}

func epochGroup(epochID uint64, pocStart, effective int64, members ...chainclient.EpochMember) *chainclient.EpochGroup {
	return &chainclient.EpochGroup{
		EpochGroupID:         chainclient.Uint64(epochID),
		PocStartBlockHeight:  chainclient.Int64(pocStart),
		EffectiveBlockHeight: chainclient.Int64(effective),
		Participants:         members,
	}
}

func epochGroupBody(t *testing.T, group *chainclient.EpochGroup) string {
	return jsonBody(t, map[string]interface{}{"active_participants": group})
}

func participantsBody(t *testing.T, rows ...chainclient.Participant) string {
	return jsonBody(t, map[string]interface{}{
		"participant": rows,
		"pagination":  map[string]string{"next_key": ""},
	})
}

func validatorsBody(t *testing.T, validators ...chainclient.Validator) string {
	if validators == nil {
		validators = []chainclient.Validator{}
	}
	return jsonBody(t, map[string]interface{}{
		"validators": validators,
		"pagination": map[string]string{"next_key": ""},
	})
}

func perfSummaryBody(coins string, claimed bool) string {
	return fmt.Sprintf(`{"epochPerformanceSummary":{"rewarded_coins":%q,"claimed":%t}}`, coins, claimed)
}

// registryRow builds one participant registry entry. On gonka the registry
// index doubles as the account address.
func registryRow(index, inferenceURL string, counters types.EpochCounters) chainclient.Participant {
	return chainclient.Participant{
		Index:             index,
		Address:           index,
		InferenceURL:      inferenceURL,
		Status:            "ACTIVE",
		CurrentEpochStats: counters,
	}
}

func epochCounters(inferences, missed string) types.EpochCounters {
	return types.EpochCounters{
		InferenceCount:        inferences,
		MissedRequests:        missed,
		EarnedCoins:           "0",
		RewardedCoins:         "0",
		BurnedCoins:           "0",
		ValidatedInferences:   "0",
		InvalidatedInferences: "0",
	}
}

// registerCurrentEpoch wires the full surface a current-epoch rebuild
// touches: head block, epoch group, registry, an empty validator set and a
// healthy probe target.
func registerCurrentEpoch(t *testing.T, chain *fakeChain, height uint64, group *chainclient.EpochGroup, registry ...chainclient.Participant) {
	chain.respond(latestBlockPath, blockBody(height, "2024-01-01T00:00:00Z"))
	chain.respond(currentGroupPath, epochGroupBody(t, group))
	chain.respond(participantsPath, participantsBody(t, registry...))
	chain.respond(validatorsPath, validatorsBody(t))
	chain.respond(healthPath, "OK")
}

// seedParticipantCaches marks the reward, warm key and hardware caches as
// already fetched for the given participants, keeping the background cache
// fill off the wire.
func seedParticipantCaches(t *testing.T, s *Service, epochID uint64, participants ...string) {
	ctx := context.Background()
	now := time.Now().UTC()
	for _, pid := range participants {
		require.NoError(t, s.db.SaveRewards(ctx, []*types.Reward{{
			EpochID:       epochID,
			ParticipantID: pid,
			RewardedCoins: "0",
			UpdatedAt:     now,
		}}))
		require.NoError(t, s.db.SaveWarmKeys(ctx, epochID, pid, nil))
		require.NoError(t, s.db.SaveHardwareNodes(ctx, epochID, pid, nil))
	}
}

func weightPtr(v int64) *chainclient.Int64 {
	w := chainclient.Int64(v)
	return &w
}

func int64Ptr(v int64) *int64 {
	return &v
}

// bech32Account mints a valid account address from a repeated seed byte.
func bech32Account(t *testing.T, seed byte) string {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(chainclient.AccountHRP, data)
	require.NoError(t, err)
	return addr
}

func TestNewService_Defaults(t *testing.T) {
	chain := newFakeChain(t)
	client, err := chainclient.NewClient([]string{chain.srv.URL})
	require.NoError(t, err)

	s := NewService(context.Background(), &Config{Client: client, Database: testDB.SetupDB(t)})
	assert.Equal(t, defaultCurrentTTL, s.currentTTL)
	assert.NoError(t, s.Status())

	s.Start()
	require.NoError(t, s.Stop())
	require.ErrorIs(t, s.ctx.Err(), context.Canceled)
}

func TestStoreCurrent_ServesFreshAndStale(t *testing.T) {
	chain := newFakeChain(t)
	s := newTestService(t, chain)

	_, ok := s.cachedCurrent()
	require.False(t, ok)
	_, ok = s.staleCurrent()
	require.False(t, ok)

	resp := &EpochStatsResponse{EpochID: 42, Height: 10050, IsCurrent: true}
	s.storeCurrent(resp)

	fresh, ok := s.cachedCurrent()
	require.True(t, ok)
	assert.Same(t, resp, fresh)
	stale, ok := s.staleCurrent()
	require.True(t, ok)
	assert.Same(t, resp, stale)
}
