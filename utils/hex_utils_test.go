package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeHexString ensures hex strings are lower-cased and always carry a single "0x" prefix.
func TestNormalizeHexString(t *testing.T) {
	assert.EqualValues(t, "0x", NormalizeHexString(""))
	assert.EqualValues(t, "0x", NormalizeHexString("0x"))
	assert.EqualValues(t, "0x6080abcd", NormalizeHexString("0x6080ABCD"))
	assert.EqualValues(t, "0x6080abcd", NormalizeHexString(" 6080AbCd\n"))
}

// TestDecodeHexString ensures decoding accepts both prefixed and unprefixed input and rejects malformed input.
func TestDecodeHexString(t *testing.T) {
	b, err := DecodeHexString("0x")
	require.NoError(t, err)
	assert.Empty(t, b)

	b, err = DecodeHexString("60806040")
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x60, 0x80, 0x60, 0x40}, b)

	_, err = DecodeHexString("0x608")
	assert.Error(t, err)

	_, err = DecodeHexString("0x__$placeholder$__")
	assert.Error(t, err)
}

// TestHexStringToAddress ensures only well-formed addresses are accepted.
func TestHexStringToAddress(t *testing.T) {
	addr, err := HexStringToAddress("0xa5A750f3eF47fc35e5c1Af2c54C1182Abb392125")
	require.NoError(t, err)
	assert.EqualValues(t, "0xa5a750f3ef47fc35e5c1af2c54c1182abb392125", strings.ToLower(addr.Hex()))

	_, err = HexStringToAddress("0x1234")
	assert.Error(t, err)
}
