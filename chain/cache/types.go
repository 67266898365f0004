package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrCacheMiss is returned when the requested code is not present in the cache.
var ErrCacheMiss = errors.New("not found in cache")

// CodeCache stores the deployed code of contracts, keyed by address and block tag.
type CodeCache interface {
	GetCode(addr common.Address, blockTag string) ([]byte, error)
	WriteCode(addr common.Address, blockTag string, code []byte) error
	Close() error
}

// NewCodeCache creates a CodeCache for the provided RPC endpoint. If cacheDir is empty, the cache lives in memory
// only. Otherwise it is persisted to a bbolt database within cacheDir, which is created if needed.
func NewCodeCache(ctx context.Context, cacheDir string, rpcAddr string) (CodeCache, error) {
	if cacheDir == "" {
		return newNonPersistentCodeCache(), nil
	}
	return newPersistentCache(ctx, cacheDir, rpcAddr)
}

// IsCacheableBlockTag returns a boolean indicating whether code fetched at the provided block tag is immutable and
// can be cached. Only pinned block numbers and block hashes qualify; moving tags such as "latest" do not.
func IsCacheableBlockTag(blockTag string) bool {
	return strings.HasPrefix(blockTag, "0x") && len(blockTag) > 2
}

// codeKey returns the key under which code for the given address and block tag is stored.
func codeKey(addr common.Address, blockTag string) []byte {
	key := make([]byte, 0, common.AddressLength+len(blockTag))
	key = append(key, addr[:]...)
	return append(key, strings.ToLower(blockTag)...)
}
