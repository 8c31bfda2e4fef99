// Package types defines the domain records shared between the cache store and
// the aggregation service: fused per-participant snapshots, refresh overlays,
// rewards, warm keys, hardware nodes and cached inference rows.
package types

import (
	"encoding/json"
	"time"
)

// EmptyMarker is the sentinel status stored in place of an inference list that
// was fetched and confirmed empty. It lets readers distinguish "never fetched"
// from "fetched, nothing there".
const EmptyMarker = "_EMPTY_MARKER_"

// EpochCounters holds the per-epoch counters reported by the chain for one
// participant. Counters are decimal strings of unbounded precision and must
// not be narrowed to machine integers.
type EpochCounters struct {
	InferenceCount        string `json:"inference_count"`
	MissedRequests        string `json:"missed_requests"`
	EarnedCoins           string `json:"earned_coins"`
	RewardedCoins         string `json:"rewarded_coins"`
	BurnedCoins           string `json:"burned_coins"`
	ValidatedInferences   string `json:"validated_inferences"`
	InvalidatedInferences string `json:"invalidated_inferences"`
}

// ParticipantSnapshot is one participant's fused record at a specific
// (epoch, height): the epoch-group attributes joined with the participant
// counters. Snapshots for one (epoch, height) are persisted as an ordered
// batch so historical reads reproduce the upstream participant order.
type ParticipantSnapshot struct {
	Index         string        `json:"index"`
	Address       string        `json:"address"`
	Weight        int64         `json:"weight"`
	ValidatorKey  string        `json:"validator_key,omitempty"`
	InferenceURL  string        `json:"inference_url,omitempty"`
	Status        string        `json:"status,omitempty"`
	Models        []string      `json:"models"`
	SeedSignature string        `json:"seed_signature,omitempty"`
	MLNodesMap    MLNodesMap    `json:"ml_nodes_map,omitempty"`
	Counters      EpochCounters `json:"current_epoch_stats"`
}

// MLNodesMap maps an ml node id to its proof-of-compute weight, flattened
// across the member's per-model node bundles.
type MLNodesMap map[string]int64

// SnapshotBatch is the atomically persisted unit of fused stats.
type SnapshotBatch struct {
	EpochID      uint64                 `json:"epoch_id"`
	Height       uint64                 `json:"height"`
	Participants []*ParticipantSnapshot `json:"participants"`
	CachedAt     time.Time              `json:"cached_at"`
}

// EpochStatus records the locally observed lifecycle of an epoch.
type EpochStatus struct {
	EpochID      uint64    `json:"epoch_id"`
	IsFinished   bool      `json:"is_finished"`
	FinishHeight uint64    `json:"finish_height,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JailStatus is the periodically refreshed validator overlay for one
// participant in one epoch. Tri-state fields use pointers; nil means the
// information was not derivable at refresh time.
type JailStatus struct {
	EpochID               uint64    `json:"epoch_id"`
	ParticipantIndex      string    `json:"participant_index"`
	IsJailed              bool      `json:"is_jailed"`
	JailedUntil           string    `json:"jailed_until,omitempty"`
	ReadyToUnjail         bool      `json:"ready_to_unjail"`
	ValconsAddress        string    `json:"valcons_address,omitempty"`
	Moniker               string    `json:"moniker,omitempty"`
	Identity              string    `json:"identity,omitempty"`
	KeybaseUsername       string    `json:"keybase_username,omitempty"`
	KeybasePictureURL     string    `json:"keybase_picture_url,omitempty"`
	Website               string    `json:"website,omitempty"`
	ValidatorConsensusKey string    `json:"validator_consensus_key,omitempty"`
	ConsensusKeyMismatch  *bool     `json:"consensus_key_mismatch"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NodeHealth is the latest direct probe result for a participant's inference
// endpoint. There is one row per participant, with no epoch dimension.
type NodeHealth struct {
	ParticipantIndex string    `json:"participant_index"`
	IsHealthy        bool      `json:"is_healthy"`
	LastCheck        time.Time `json:"last_check"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ResponseTimeMS   *int64    `json:"response_time_ms"`
}

// Reward is one participant's assigned reward for one epoch, in ugnk.
// RewardedCoins stays a decimal string; totals are computed with big ints.
type Reward struct {
	EpochID       uint64    `json:"epoch_id"`
	ParticipantID string    `json:"participant_id"`
	RewardedCoins string    `json:"rewarded_coins"`
	Claimed       bool      `json:"claimed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EpochTotalRewards is the finalized sum of assigned rewards for an epoch in
// gnk. A zero total is never valid in the store; it means "not yet available"
// and is evicted when read.
type EpochTotalRewards struct {
	EpochID   uint64    `json:"epoch_id"`
	TotalGNK  int64     `json:"total_rewards_gnk"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarmKey is an authorization grant that delegates the full inference message
// set to an auxiliary key.
type WarmKey struct {
	EpochID        uint64    `json:"epoch_id"`
	ParticipantID  string    `json:"participant_id"`
	GranteeAddress string    `json:"grantee_address"`
	GrantedAt      string    `json:"granted_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HardwareComponent is one hardware type/count pair on a registered node.
type HardwareComponent struct {
	Type  string `json:"type"`
	Count uint32 `json:"count"`
}

// HardwareNode is one registered ml node for a participant in an epoch.
// PocWeight is nil when the registry entry carries no weight at all, which is
// distinct from an explicit zero.
type HardwareNode struct {
	EpochID       uint64              `json:"epoch_id"`
	ParticipantID string              `json:"participant_id"`
	LocalID       string              `json:"local_id"`
	Status        string              `json:"status"`
	Models        []string            `json:"models"`
	Hardware      []HardwareComponent `json:"hardware"`
	Host          string              `json:"host"`
	Port          string              `json:"port"`
	PocWeight     *int64              `json:"poc_weight"`
}

// InferenceRecord is one cached inference for a participant in an epoch.
// Heights and token counts are carried as the decimal strings the chain
// reports.
type InferenceRecord struct {
	EpochID              uint64   `json:"epoch_id"`
	ParticipantID        string   `json:"participant_id"`
	InferenceID          string   `json:"inference_id"`
	Status               string   `json:"status"`
	StartBlockHeight     string   `json:"start_block_height"`
	StartBlockTimestamp  string   `json:"start_block_timestamp"`
	ValidatedBy          []string `json:"validated_by"`
	PromptHash           string   `json:"prompt_hash,omitempty"`
	ResponseHash         string   `json:"response_hash,omitempty"`
	PromptPayload        string   `json:"prompt_payload,omitempty"`
	ResponsePayload      string   `json:"response_payload,omitempty"`
	PromptTokenCount     string   `json:"prompt_token_count,omitempty"`
	CompletionTokenCount string   `json:"completion_token_count,omitempty"`
	Model                string   `json:"model,omitempty"`
}

// ModelRow is the aggregated weight of one model across an epoch's
// participants.
type ModelRow struct {
	EpochID          uint64 `json:"epoch_id"`
	ModelID          string `json:"model_id"`
	TotalWeight      int64  `json:"total_weight"`
	ParticipantCount int    `json:"participant_count"`
}

// ModelsAPICache preserves the raw model descriptor and model stats payloads
// fetched for an epoch at a height, as a fallback when live enrichment fails.
type ModelsAPICache struct {
	EpochID       uint64          `json:"epoch_id"`
	Height        uint64          `json:"height"`
	ModelsPayload json.RawMessage `json:"models_payload,omitempty"`
	StatsPayload  json.RawMessage `json:"stats_payload,omitempty"`
	CachedAt      time.Time       `json:"cached_at"`
}

// BlockInfo is a block height with its header timestamp.
type BlockInfo struct {
	Height    uint64 `json:"height"`
	Timestamp string `json:"timestamp"`
}

// TimelineEvent is a chain milestone rendered on the dashboard timeline.
type TimelineEvent struct {
	BlockHeight uint64 `json:"block_height"`
	Description string `json:"description"`
	Occurred    bool   `json:"occurred"`
}

// TimelineSnapshot is the cached result of a timeline assembly.
type TimelineSnapshot struct {
	CurrentBlock      BlockInfo       `json:"current_block"`
	ReferenceBlock    BlockInfo       `json:"reference_block"`
	AvgBlockTime      float64         `json:"avg_block_time"`
	Events            []TimelineEvent `json:"events"`
	CurrentEpochStart int64           `json:"current_epoch_start"`
	CurrentEpochIndex uint64          `json:"current_epoch_index"`
	EpochLength       int64           `json:"epoch_length"`
	CachedAt          time.Time       `json:"cached_at"`
}
