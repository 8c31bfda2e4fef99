package chainclient

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pkg/errors"
)

// Bech32 prefixes of the chain's address spaces.
const (
	AccountHRP = "gonka"
	ValoperHRP = "gonkavaloper"
	ValconsHRP = "gonkavalcons"
)

// ConvertBech32Address re-encodes a bech32 address under a different prefix,
// keeping the data part unchanged. Malformed input yields an empty string.
func ConvertBech32Address(address, newPrefix string) string {
	_, data, err := bech32.Decode(address)
	if err != nil {
		log.WithError(err).WithField("address", address).Warn("Invalid bech32 address")
		return ""
	}
	converted, err := bech32.Encode(newPrefix, data)
	if err != nil {
		log.WithError(err).WithField("prefix", newPrefix).Warn("Could not re-encode bech32 address")
		return ""
	}
	return converted
}

// PubkeyToValcons derives the consensus address of a base64-encoded ed25519
// consensus public key: the first 20 bytes of its SHA-256 digest, bech32
// encoded under the valcons prefix.
func PubkeyToValcons(pubkeyB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(pubkeyB64)
	if err != nil {
		return "", errors.Wrap(err, "invalid base64 consensus pubkey")
	}
	digest := sha256.Sum256(raw)
	data, err := bech32.ConvertBits(digest[:20], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(ValconsHRP, data)
}
