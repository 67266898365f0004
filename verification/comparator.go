package verification

import (
	"bytes"

	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// matchRatioPlaces describes the number of decimal places MatchRatio is rounded to.
const matchRatioPlaces = 4

// Comparison describes the result of comparing locally compiled bytecode against on-chain bytecode after both have
// had their metadata trailers stripped.
type Comparison struct {
	// Matched describes whether the stripped bytecodes are byte-identical.
	Matched bool `json:"matched" yaml:"matched"`

	// OnchainLength and OnchainStrippedLength describe the length of the on-chain bytecode before and after
	// stripping.
	OnchainLength         int `json:"onchainLength" yaml:"onchainLength"`
	OnchainStrippedLength int `json:"onchainStrippedLength" yaml:"onchainStrippedLength"`

	// LocalLength and LocalStrippedLength describe the length of the compiled bytecode before and after stripping.
	LocalLength         int `json:"localLength" yaml:"localLength"`
	LocalStrippedLength int `json:"localStrippedLength" yaml:"localStrippedLength"`

	// OnchainCodeHash and LocalCodeHash describe the keccak256 hashes of the stripped bytecodes.
	OnchainCodeHash string `json:"onchainCodeHash" yaml:"onchainCodeHash"`
	LocalCodeHash   string `json:"localCodeHash" yaml:"localCodeHash"`

	// CommonPrefixLength describes the number of leading bytes the stripped bytecodes share.
	CommonPrefixLength int `json:"commonPrefixLength" yaml:"commonPrefixLength"`

	// MatchRatio describes CommonPrefixLength relative to the longer of the stripped bytecodes.
	MatchRatio decimal.Decimal `json:"matchRatio" yaml:"matchRatio"`
}

// Compare strips the metadata trailer from the compiled and on-chain bytecode independently and compares the
// results byte for byte.
func Compare(local *types.CompileResult, onchain []byte) *Comparison {
	var localCode []byte
	if local != nil {
		localCode = local.DeployedBytecode
	}
	return CompareBytecode(localCode, onchain)
}

// CompareBytecode strips the metadata trailer from both bytecodes independently and compares the results byte for
// byte.
func CompareBytecode(local []byte, onchain []byte) *Comparison {
	localStripped := types.StripMetadata(local)
	onchainStripped := types.StripMetadata(onchain)

	prefix := commonPrefixLength(localStripped, onchainStripped)
	return &Comparison{
		Matched:               bytes.Equal(localStripped, onchainStripped),
		OnchainLength:         len(onchain),
		OnchainStrippedLength: len(onchainStripped),
		LocalLength:           len(local),
		LocalStrippedLength:   len(localStripped),
		OnchainCodeHash:       CodeHash(onchainStripped),
		LocalCodeHash:         CodeHash(localStripped),
		CommonPrefixLength:    prefix,
		MatchRatio:            matchRatio(prefix, max(len(localStripped), len(onchainStripped))),
	}
}

// commonPrefixLength returns the number of leading bytes a and b share.
func commonPrefixLength(a []byte, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// matchRatio returns prefix / total rounded to matchRatioPlaces. Two empty inputs are a perfect match.
func matchRatio(prefix int, total int) decimal.Decimal {
	if total == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(prefix)).DivRound(decimal.NewFromInt(int64(total)), matchRatioPlaces)
}

// CodeHash returns the hex-encoded keccak256 hash of b.
func CodeHash(b []byte) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(b)
	return utils.EncodeHexString(hasher.Sum(nil))
}
