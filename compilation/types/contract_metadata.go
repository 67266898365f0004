package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/crytic/solverify/utils"
	"github.com/fxamacker/cbor"
)

// ContractMetadata is an CBOR-encoded structure describing contract information which is embedded within smart contract
// bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/v0.8.16/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
	{0xa3, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a3 64 "ipfs" 0x58 0x22 (solc >= 0.8.18 with experimental)
}

// byteCodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var byteCodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// trailerLengthSize describes the size in bytes of the big-endian length field which ends the metadata trailer.
const trailerLengthSize = 2

// MetadataTrailerSize returns the number of trailing bytes that StripMetadata removes from the given bytecode, given
// the length L encoded in its final two bytes: 2*L plus the two bytes of the length field itself. Returns zero and
// false if the bytecode is too short to carry a length field or the trailer would not fit in the bytecode.
func MetadataTrailerSize(bytecode []byte) (int, bool) {
	if len(bytecode) < trailerLengthSize {
		return 0, false
	}
	metadataLength := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-trailerLengthSize:]))
	trailerSize := 2*metadataLength + trailerLengthSize
	if trailerSize > len(bytecode) {
		return 0, false
	}
	return trailerSize, true
}

// StripMetadata removes the length-prefixed metadata trailer from the end of the given bytecode. The final two bytes
// are read as a big-endian length L, and 2*L+2 trailing bytes are removed. Empty bytecode is returned unchanged, as is
// bytecode whose trailer would exceed its own length (it is treated as already stripped). The input is never
// modified; the result may share its backing array.
func StripMetadata(bytecode []byte) []byte {
	trailerSize, ok := MetadataTrailerSize(bytecode)
	if !ok {
		return bytecode
	}
	return bytecode[:len(bytecode)-trailerSize]
}

// StripMetadataHex performs StripMetadata on hex-encoded bytecode, with or without a "0x" prefix. The canonical empty
// encodings "" and "0x" are returned unchanged, as is input which is not valid hex. Otherwise the result is lower-cased
// and "0x"-prefixed.
func StripMetadataHex(bytecodeHex string) string {
	if bytecodeHex == "" || bytecodeHex == "0x" {
		return bytecodeHex
	}
	bytecode, err := utils.DecodeHexString(bytecodeHex)
	if err != nil {
		return bytecodeHex
	}
	return utils.EncodeHexString(StripMetadata(bytecode))
}

// ExtractContractMetadata extracts contract metadata from provided byte code and returns it. The solc trailer layout
// (CBOR data followed by its two-byte length) is tried first, followed by a search for known metadata prefixes. If
// contract metadata could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	// Try the trailer layout, where the final two bytes describe the length of the CBOR data preceding them.
	if len(bytecode) >= trailerLengthSize {
		cborLength := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-trailerLengthSize:]))
		cborEnd := len(bytecode) - trailerLengthSize
		if cborLength > 0 && cborLength <= cborEnd {
			var metadata ContractMetadata
			if err := cbor.Unmarshal(bytecode[cborEnd-cborLength:cborEnd], &metadata); err == nil && len(metadata) > 0 {
				return &metadata
			}
		}
	}

	// Try matching each metadata hash prefix in the file. Metadata is appended to the end of the file.
	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix)

		// If we found a match, decode the embedded metadata and return it.
		if metadataOffset != -1 {
			var metadata ContractMetadata
			err := cbor.Unmarshal(bytecode[metadataOffset:], &metadata)
			if err != nil {
				continue
			}
			return &metadata
		}
	}
	return nil
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	// Try every known metadata key to see if we can resolve the bytecode hash
	for _, possibleMetadataKey := range byteCodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			// Try to cast it to a byte array and return it if we succeeded.
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// CompilerVersion returns the compiler version recorded under the "solc" key of the metadata. Release builds store
// three bytes (major, minor, patch), while pre-release builds store the full version string. Returns an empty string
// if no version is recorded.
func (m ContractMetadata) CompilerVersion() string {
	switch v := m["solc"].(type) {
	case []byte:
		if len(v) != 3 {
			return ""
		}
		return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
	case string:
		return strings.TrimPrefix(v, "v")
	default:
		return ""
	}
}
