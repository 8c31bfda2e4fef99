package aggregator

import (
	"math"
	"strconv"

	"github.com/gonka-ai/dashboard-backend/types"
)

// ParticipantStats is one participant's dashboard row: the fused snapshot
// attributes plus the jail and health overlays. Optional fields marshal as
// explicit nulls so clients can tell "not derivable" from a real value.
type ParticipantStats struct {
	Index                 string              `json:"index"`
	Address               string              `json:"address"`
	Weight                int64               `json:"weight"`
	ValidatorKey          *string             `json:"validator_key"`
	InferenceURL          *string             `json:"inference_url"`
	Status                *string             `json:"status"`
	Models                []string            `json:"models"`
	CurrentEpochStats     types.EpochCounters `json:"current_epoch_stats"`
	IsJailed              *bool               `json:"is_jailed"`
	JailedUntil           *string             `json:"jailed_until"`
	ReadyToUnjail         *bool               `json:"ready_to_unjail"`
	NodeHealthy           *bool               `json:"node_healthy"`
	NodeHealthCheckedAt   *string             `json:"node_health_checked_at"`
	Moniker               *string             `json:"moniker"`
	Identity              *string             `json:"identity"`
	KeybaseUsername       *string             `json:"keybase_username"`
	KeybasePictureURL     *string             `json:"keybase_picture_url"`
	Website               *string             `json:"website"`
	ValidatorConsensusKey *string             `json:"validator_consensus_key"`
	ConsensusKeyMismatch  *bool               `json:"consensus_key_mismatch"`
	MissedRate            float64             `json:"missed_rate"`
	InvalidationRate      float64             `json:"invalidation_rate"`
}

// EpochStatsResponse is the payload of the current and historical epoch
// endpoints. The trailing block fields are reserved for clients that still
// expect them and always marshal as nulls.
type EpochStatsResponse struct {
	EpochID                 uint64              `json:"epoch_id"`
	Height                  uint64              `json:"height"`
	Participants            []*ParticipantStats `json:"participants"`
	CachedAt                *string             `json:"cached_at"`
	IsCurrent               bool                `json:"is_current"`
	TotalAssignedRewardsGNK *int64              `json:"total_assigned_rewards_gnk"`
	CurrentBlockHeight      *uint64             `json:"current_block_height"`
	CurrentBlockTimestamp   *string             `json:"current_block_timestamp"`
	AvgBlockTime            *float64            `json:"avg_block_time"`
	NextPocStartBlock       *int64              `json:"next_poc_start_block"`
	SetNewValidatorsBlock   *int64              `json:"set_new_validators_block"`
}

// RewardInfo is one epoch's assigned reward for a participant, in whole gnk.
type RewardInfo struct {
	EpochID           uint64 `json:"epoch_id"`
	AssignedRewardGNK int64  `json:"assigned_reward_gnk"`
	Claimed           bool   `json:"claimed"`
}

// SeedInfo is the seed signature a participant committed for an epoch.
type SeedInfo struct {
	Participant string `json:"participant"`
	EpochIndex  uint64 `json:"epoch_index"`
	Signature   string `json:"signature"`
}

// WarmKeyInfo is one delegated auxiliary key of a participant.
type WarmKeyInfo struct {
	GranteeAddress string `json:"grantee_address"`
	GrantedAt      string `json:"granted_at"`
}

// HardwareInfo is one hardware component type/count pair.
type HardwareInfo struct {
	Type  string `json:"type"`
	Count uint32 `json:"count"`
}

// MLNodeInfo is one registered ml node, with the proof-of-compute weight the
// epoch group assigned to it when available.
type MLNodeInfo struct {
	LocalID   string         `json:"local_id"`
	Status    string         `json:"status"`
	Models    []string       `json:"models"`
	Hardware  []HardwareInfo `json:"hardware"`
	Host      string         `json:"host"`
	Port      string         `json:"port"`
	PocWeight *int64         `json:"poc_weight"`
}

// ParticipantDetailsResponse is the payload of the participant details
// endpoint.
type ParticipantDetailsResponse struct {
	Participant *ParticipantStats `json:"participant"`
	Rewards     []RewardInfo      `json:"rewards"`
	Seed        *SeedInfo         `json:"seed"`
	WarmKeys    []WarmKeyInfo     `json:"warm_keys"`
	MLNodes     []MLNodeInfo      `json:"ml_nodes"`
}

// TimelineResponse is the payload of the timeline endpoint. The stage maps
// are reserved fields and always marshal as nulls.
type TimelineResponse struct {
	CurrentBlock      types.BlockInfo        `json:"current_block"`
	ReferenceBlock    types.BlockInfo        `json:"reference_block"`
	AvgBlockTime      float64                `json:"avg_block_time"`
	Events            []types.TimelineEvent  `json:"events"`
	CurrentEpochStart int64                  `json:"current_epoch_start"`
	CurrentEpochIndex uint64                 `json:"current_epoch_index"`
	EpochLength       int64                  `json:"epoch_length"`
	EpochStages       map[string]interface{} `json:"epoch_stages"`
	NextEpochStages   map[string]interface{} `json:"next_epoch_stages"`
}

// ModelInfo is one governance model enriched with its aggregated epoch
// weight and participant count.
type ModelInfo struct {
	ID                     string   `json:"id"`
	TotalWeight            int64    `json:"total_weight"`
	ParticipantCount       int      `json:"participant_count"`
	ProposedBy             string   `json:"proposed_by"`
	VRAM                   string   `json:"v_ram"`
	ThroughputPerNonce     string   `json:"throughput_per_nonce"`
	UnitsOfComputePerToken string   `json:"units_of_compute_per_token"`
	HFRepo                 string   `json:"hf_repo"`
	HFCommit               string   `json:"hf_commit"`
	ModelArgs              []string `json:"model_args"`
	ValidationThreshold    rawJSON  `json:"validation_threshold"`
}

// ModelStats is one model's aggregate inference traffic.
type ModelStats struct {
	Model      string `json:"model"`
	AITokens   string `json:"ai_tokens"`
	Inferences int64  `json:"inferences"`
}

// ModelsResponse is the payload of the model listing endpoints.
type ModelsResponse struct {
	EpochID               uint64       `json:"epoch_id"`
	Height                uint64       `json:"height"`
	Models                []ModelInfo  `json:"models"`
	Stats                 []ModelStats `json:"stats"`
	CachedAt              string       `json:"cached_at"`
	IsCurrent             bool         `json:"is_current"`
	CurrentBlockTimestamp *string      `json:"current_block_timestamp"`
	AvgBlockTime          *float64     `json:"avg_block_time"`
}

// InferenceDetail is one cached inference row as served to clients.
type InferenceDetail struct {
	InferenceID          string   `json:"inference_id"`
	Status               string   `json:"status"`
	StartBlockHeight     string   `json:"start_block_height"`
	StartBlockTimestamp  string   `json:"start_block_timestamp"`
	ValidatedBy          []string `json:"validated_by"`
	PromptHash           *string  `json:"prompt_hash"`
	ResponseHash         *string  `json:"response_hash"`
	PromptPayload        *string  `json:"prompt_payload"`
	ResponsePayload      *string  `json:"response_payload"`
	PromptTokenCount     *string  `json:"prompt_token_count"`
	CompletionTokenCount *string  `json:"completion_token_count"`
	Model                *string  `json:"model"`
}

// ParticipantInferencesResponse groups a participant's cached inferences by
// terminal status.
type ParticipantInferencesResponse struct {
	EpochID       uint64            `json:"epoch_id"`
	ParticipantID string            `json:"participant_id"`
	Successful    []InferenceDetail `json:"successful"`
	Expired       []InferenceDetail `json:"expired"`
	Invalidated   []InferenceDetail `json:"invalidated"`
	CachedAt      *string           `json:"cached_at"`
}

// rawJSON is a pre-encoded JSON value that marshals verbatim and defaults to
// an empty object rather than null.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("{}"), nil
	}
	return r, nil
}

func (r *rawJSON) UnmarshalJSON(b []byte) error {
	*r = append((*r)[0:0], b...)
	return nil
}

// newParticipantStats builds the dashboard row for one fused snapshot,
// deriving the failure rates from the epoch counters.
func newParticipantStats(snap *types.ParticipantSnapshot) *ParticipantStats {
	models := snap.Models
	if models == nil {
		models = []string{}
	}
	return &ParticipantStats{
		Index:             snap.Index,
		Address:           snap.Address,
		Weight:            snap.Weight,
		ValidatorKey:      optString(snap.ValidatorKey),
		InferenceURL:      optString(snap.InferenceURL),
		Status:            optString(snap.Status),
		Models:            models,
		CurrentEpochStats: snap.Counters,
		MissedRate:        missedRate(snap.Counters),
		InvalidationRate:  invalidationRate(snap.Counters),
	}
}

// missedRate is missed / (missed + completed), rounded to 4 decimal places.
func missedRate(c types.EpochCounters) float64 {
	missed := counterValue(c.MissedRequests)
	inferences := counterValue(c.InferenceCount)
	total := missed + inferences
	if total == 0 {
		return 0
	}
	return round4(float64(missed) / float64(total))
}

// invalidationRate is invalidated / completed, rounded to 4 decimal places.
func invalidationRate(c types.EpochCounters) float64 {
	invalidated := counterValue(c.InvalidatedInferences)
	inferences := counterValue(c.InferenceCount)
	if inferences == 0 {
		return 0
	}
	return round4(float64(invalidated) / float64(inferences))
}

func counterValue(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolPtr(v bool) *bool {
	return &v
}
