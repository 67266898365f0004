package cache

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// nonPersistentCodeCache provides a thread-safe cache for storing code without persisting to disk.
type nonPersistentCodeCache struct {
	codeLock  sync.RWMutex
	codeCache map[string][]byte
}

func newNonPersistentCodeCache() *nonPersistentCodeCache {
	return &nonPersistentCodeCache{
		codeCache: make(map[string][]byte),
	}
}

// GetCode checks if code for the address and block tag is present in the cache, and if not, returns ErrCacheMiss.
func (s *nonPersistentCodeCache) GetCode(addr common.Address, blockTag string) ([]byte, error) {
	s.codeLock.RLock()
	defer s.codeLock.RUnlock()

	code, ok := s.codeCache[string(codeKey(addr, blockTag))]
	if !ok {
		return nil, ErrCacheMiss
	}
	return code, nil
}

func (s *nonPersistentCodeCache) WriteCode(addr common.Address, blockTag string, code []byte) error {
	s.codeLock.Lock()
	defer s.codeLock.Unlock()

	stored := make([]byte, len(code))
	copy(stored, code)
	s.codeCache[string(codeKey(addr, blockTag))] = stored
	return nil
}

func (s *nonPersistentCodeCache) Close() error {
	return nil
}
