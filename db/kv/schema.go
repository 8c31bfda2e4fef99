package kv

import "encoding/binary"

// The schema defines how dashboard records are keyed in the underlying BoltDB
// buckets. Numeric key components are encoded big-endian so that bolt's
// lexicographic cursor order matches numeric order, which lets readers seek to
// an epoch prefix and walk its heights in ascending order.
var (
	statsBucket          = []byte("inference-stats")
	epochStatusBucket    = []byte("epoch-status")
	jailStatusBucket     = []byte("jail-status")
	nodeHealthBucket     = []byte("node-health")
	rewardsBucket        = []byte("participant-rewards")
	totalRewardsBucket   = []byte("epoch-total-rewards")
	warmKeysBucket       = []byte("participant-warm-keys")
	hardwareNodesBucket  = []byte("participant-hardware-nodes")
	modelsBucket         = []byte("models")
	modelsAPICacheBucket = []byte("models-api-cache")
	inferencesBucket     = []byte("participant-inferences")
	timelineBucket       = []byte("timeline-cache")

	// Timeline keys.
	timelineKey = []byte("timeline")
)

func uint64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func epochHeightKey(epochID, height uint64) []byte {
	return append(uint64Key(epochID), uint64Key(height)...)
}

// epochScopedKey prefixes a string identifier (participant index or model id)
// with the big-endian epoch id, so rows for one epoch share a common prefix.
func epochScopedKey(epochID uint64, id string) []byte {
	return append(uint64Key(epochID), []byte(id)...)
}
