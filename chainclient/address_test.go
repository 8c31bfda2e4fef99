package chainclient

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountAddress(t *testing.T, raw []byte) string {
	t.Helper()
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode(AccountHRP, data)
	require.NoError(t, err)
	return addr
}

func TestConvertBech32Address_RoundTrip(t *testing.T) {
	raw := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14,
	}
	account := accountAddress(t, raw)

	valoper := ConvertBech32Address(account, ValoperHRP)
	require.NotEmpty(t, valoper)
	assert.True(t, strings.HasPrefix(valoper, ValoperHRP+"1"))

	// The data part survives a prefix swap unchanged.
	back := ConvertBech32Address(valoper, AccountHRP)
	assert.Equal(t, account, back)
}

func TestConvertBech32Address_Invalid(t *testing.T) {
	assert.Equal(t, "", ConvertBech32Address("not-a-bech32-address", ValoperHRP))
	assert.Equal(t, "", ConvertBech32Address("", ValoperHRP))
}

func TestPubkeyToValcons(t *testing.T) {
	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i)
	}
	valcons, err := PubkeyToValcons(base64.StdEncoding.EncodeToString(pubkey))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(valcons, ValconsHRP+"1"))

	hrp, data, err := bech32.Decode(valcons)
	require.NoError(t, err)
	assert.Equal(t, ValconsHRP, hrp)
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	require.NoError(t, err)
	// Consensus addresses are the first 20 bytes of the pubkey hash.
	assert.Equal(t, 20, len(decoded))

	// Deterministic, and distinct keys map to distinct addresses.
	again, err := PubkeyToValcons(base64.StdEncoding.EncodeToString(pubkey))
	require.NoError(t, err)
	assert.Equal(t, valcons, again)

	pubkey[0] ^= 0xff
	other, err := PubkeyToValcons(base64.StdEncoding.EncodeToString(pubkey))
	require.NoError(t, err)
	assert.NotEqual(t, valcons, other)
}

func TestPubkeyToValcons_InvalidBase64(t *testing.T) {
	_, err := PubkeyToValcons("%%%not-base64%%%")
	require.Error(t, err)
}
