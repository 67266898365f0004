package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// NormalizeHexString lower-cases a hex string and ensures it carries a "0x" prefix. An empty string normalizes to
// "0x", the canonical encoding of empty bytecode.
func NormalizeHexString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	return "0x" + s
}

// DecodeHexString decodes a hex string, with or without the "0x" prefix, into bytes. Odd-length or otherwise
// malformed input returns an error.
func DecodeHexString(s string) ([]byte, error) {
	b, err := hexutil.Decode(NormalizeHexString(s))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode hex string")
	}
	return b, nil
}

// EncodeHexString encodes bytes into a lower-cased, "0x"-prefixed hex string.
func EncodeHexString(b []byte) string {
	return hexutil.Encode(b)
}
