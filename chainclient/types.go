package chainclient

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gonka-ai/dashboard-backend/types"
)

// Uint64 tolerates the two encodings chain REST endpoints use for 64-bit
// integers: cosmos gateways quote them, the gonka module endpoints do not.
type Uint64 uint64

func (v *Uint64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*v = Uint64(n)
	return nil
}

func (v Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(v), 10)), nil
}

// Int64 is the signed counterpart of Uint64.
type Int64 int64

func (v *Int64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*v = Int64(n)
	return nil
}

func (v Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(v), 10)), nil
}

// Text tolerates string fields that some endpoints emit as bare numbers,
// normalizing them to their decimal string form.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*t = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var out string
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*t = Text(out)
		return nil
	}
	*t = Text(s)
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// LatestEpochInfo is the /latest_epoch payload: the index and PoC start of
// the most recently started epoch plus the stage heights of the next one.
type LatestEpochInfo struct {
	LatestEpoch struct {
		Index               Uint64 `json:"index"`
		PocStartBlockHeight Int64  `json:"poc_start_block_height"`
	} `json:"latest_epoch"`
	EpochStages struct {
		NextPocStart Int64 `json:"next_poc_start"`
	} `json:"epoch_stages"`
	EpochParams struct {
		EpochLength Int64 `json:"epoch_length"`
	} `json:"epoch_params"`
}

// EpochGroup is the active_participants envelope of an epoch group query.
type EpochGroup struct {
	EpochGroupID         Uint64        `json:"epoch_group_id"`
	PocStartBlockHeight  Int64         `json:"poc_start_block_height"`
	EffectiveBlockHeight Int64         `json:"effective_block_height"`
	CreatedAtBlockHeight Int64         `json:"created_at_block_height"`
	Participants         []EpochMember `json:"participants"`
}

type epochGroupEnvelope struct {
	ActiveParticipants EpochGroup `json:"active_participants"`
}

// EpochMember is one entry of an epoch group's participant list. The i-th
// model served corresponds to the i-th MLNodes bundle.
type EpochMember struct {
	Index        string         `json:"index"`
	ValidatorKey string         `json:"validator_key"`
	Weight       Int64          `json:"weight"`
	InferenceURL string         `json:"inference_url"`
	Models       []string       `json:"models"`
	MLNodes      []MLNodeBundle `json:"ml_nodes"`
	Seed         EpochSeed      `json:"seed"`
}

type MLNodeBundle struct {
	MLNodes []MLNode `json:"ml_nodes"`
}

type MLNode struct {
	NodeID    string `json:"node_id"`
	PocWeight *Int64 `json:"poc_weight"`
}

type EpochSeed struct {
	Signature string `json:"signature"`
}

// MLNodesMap flattens the member's nested node bundles into
// node_id -> poc_weight, dropping nodes that carry no weight.
func (m *EpochMember) MLNodesMap() map[string]int64 {
	out := make(map[string]int64)
	for _, bundle := range m.MLNodes {
		for _, node := range bundle.MLNodes {
			if node.NodeID == "" || node.PocWeight == nil {
				continue
			}
			out[node.NodeID] = int64(*node.PocWeight)
		}
	}
	return out
}

// Participant is one row of the chain's full participant registry.
type Participant struct {
	Index             string              `json:"index"`
	Address           string              `json:"address"`
	InferenceURL      string              `json:"inference_url"`
	Status            string              `json:"status"`
	CurrentEpochStats types.EpochCounters `json:"current_epoch_stats"`
}

type participantsEnvelope struct {
	Participant []Participant `json:"participant"`
	Pagination  pageInfo      `json:"pagination"`
}

type pageInfo struct {
	NextKey string `json:"next_key"`
}

// Validator is a staking module validator record.
type Validator struct {
	OperatorAddress string               `json:"operator_address"`
	ConsensusPubkey ConsensusPubkey      `json:"consensus_pubkey"`
	Jailed          bool                 `json:"jailed"`
	Status          string               `json:"status"`
	Tokens          string               `json:"tokens"`
	Description     ValidatorDescription `json:"description"`
}

// ConsensusPubkey carries the base64 key under either "key" or "value"
// depending on the gateway's Any encoding.
type ConsensusPubkey struct {
	Type  string `json:"@type"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Base64Key returns whichever of the two key fields is populated.
func (p ConsensusPubkey) Base64Key() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Value
}

type ValidatorDescription struct {
	Moniker  string `json:"moniker"`
	Identity string `json:"identity"`
	Website  string `json:"website"`
}

type validatorsEnvelope struct {
	Validators []Validator `json:"validators"`
	Pagination pageInfo    `json:"pagination"`
}

// SigningInfo is the slashing module's record for a consensus address.
type SigningInfo struct {
	Address             string `json:"address"`
	JailedUntil         string `json:"jailed_until"`
	Tombstoned          bool   `json:"tombstoned"`
	MissedBlocksCounter string `json:"missed_blocks_counter"`
}

type signingInfoEnvelope struct {
	ValSigningInfo *SigningInfo `json:"val_signing_info"`
}

// Grant is a single authz grant row.
type Grant struct {
	Granter       string             `json:"granter"`
	Grantee       string             `json:"grantee"`
	Authorization GrantAuthorization `json:"authorization"`
	Expiration    string             `json:"expiration"`
}

type GrantAuthorization struct {
	Type string `json:"@type"`
	Msg  string `json:"msg"`
}

type grantsEnvelope struct {
	Grants []Grant `json:"grants"`
}

// WarmKeyGrant is a grantee that holds the full delegation permission set.
type WarmKeyGrant struct {
	GranteeAddress string
	GrantedAt      string
}

// PerformanceSummary is a participant's reward record for one epoch.
type PerformanceSummary struct {
	RewardedCoins string `json:"rewarded_coins"`
	Claimed       bool   `json:"claimed"`
}

type performanceSummaryEnvelope struct {
	EpochPerformanceSummary PerformanceSummary `json:"epochPerformanceSummary"`
}

// HardwareNode is one registered MLNode of a participant.
type HardwareNode struct {
	LocalID   string                    `json:"local_id"`
	Status    string                    `json:"status"`
	Models    []string                  `json:"models"`
	Hardware  []types.HardwareComponent `json:"hardware"`
	Host      string                    `json:"host"`
	Port      Text                      `json:"port"`
	PocWeight *Int64                    `json:"poc_weight"`
}

type hardwareNodesEnvelope struct {
	Nodes struct {
		HardwareNodes []HardwareNode `json:"hardware_nodes"`
	} `json:"nodes"`
}

// Model is a governance-registered model definition.
type Model struct {
	ID                     string          `json:"id"`
	ProposedBy             string          `json:"proposed_by"`
	VRAM                   Text            `json:"v_ram"`
	ThroughputPerNonce     Text            `json:"throughput_per_nonce"`
	UnitsOfComputePerToken Text            `json:"units_of_compute_per_token"`
	HFRepo                 string          `json:"hf_repo"`
	HFCommit               string          `json:"hf_commit"`
	ModelArgs              []string        `json:"model_args"`
	ValidationThreshold    json.RawMessage `json:"validation_threshold"`
}

type modelsEnvelope struct {
	Model []Model `json:"model"`
}

// ModelUsageStats is aggregate inference traffic for one model.
type ModelUsageStats struct {
	Model      string `json:"model"`
	AITokens   Text   `json:"ai_tokens"`
	Inferences Int64  `json:"inferences"`
}

type modelsStatsEnvelope struct {
	StatsModels []ModelUsageStats `json:"stats_models"`
}

type restrictionsEnvelope struct {
	Params struct {
		RestrictionEndBlock Int64 `json:"restriction_end_block"`
	} `json:"params"`
}

type blockEnvelope struct {
	Block struct {
		Header struct {
			Height Uint64 `json:"height"`
			Time   string `json:"time"`
		} `json:"header"`
	} `json:"block"`
}

// HealthResult is the outcome of probing a participant's inference endpoint.
type HealthResult struct {
	IsHealthy      bool
	ErrorMessage   string
	ResponseTimeMS *int64
}
