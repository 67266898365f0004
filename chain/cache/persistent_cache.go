package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"
)

// codeBucket describes the bbolt bucket holding cached code.
var codeBucket = []byte("code")

// persistentCache provides a thread-safe cache for storing code that persists the cache to disk.
type persistentCache struct {
	memCache *nonPersistentCodeCache
	db       *bbolt.DB

	pendingWriteMutex sync.Mutex
	pendingWrites     []pendingWrite
	flushThreshold    int

	closeOnce sync.Once
	closeErr  error
}

type pendingWrite struct {
	key   []byte
	value []byte
}

func newPersistentCache(ctx context.Context, cacheDir string, rpcAddr string) (*persistentCache, error) {
	if err := createCacheDirectory(cacheDir); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheFile := filepath.Join(cacheDir, getCacheFilename(rpcAddr))
	db, err := bbolt.Open(cacheFile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db: %v", err)
	}

	// create default bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(codeBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &persistentCache{
		memCache:       newNonPersistentCodeCache(),
		db:             db,
		flushThreshold: 25,
		pendingWrites:  []pendingWrite{},
	}, nil
}

func (p *persistentCache) getFromPersist(key []byte) ([]byte, bool, error) {
	var value []byte
	found := false
	err := p.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(codeBucket).Get(key)
		if data == nil {
			return nil
		}
		// bbolt values are only valid for the life of the transaction
		found = true
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("could not get value: %v", err)
	}
	return value, found, nil
}

func (p *persistentCache) writeToPersist(key []byte, value []byte) error {
	p.pendingWriteMutex.Lock()
	defer p.pendingWriteMutex.Unlock()

	p.pendingWrites = append(p.pendingWrites, pendingWrite{key: key, value: value})
	if len(p.pendingWrites) >= p.flushThreshold {
		return p.flushWrites()
	}
	return nil
}

// flushWrites commits all pending writes. The caller must hold pendingWriteMutex.
func (p *persistentCache) flushWrites() error {
	if len(p.pendingWrites) == 0 {
		return nil
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(codeBucket)
		for _, pw := range p.pendingWrites {
			if err := bucket.Put(pw.key, pw.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		p.pendingWrites = p.pendingWrites[:0]
	}
	return err
}

func (p *persistentCache) GetCode(addr common.Address, blockTag string) ([]byte, error) {
	code, err := p.memCache.GetCode(addr, blockTag)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	// check persistent cache
	code, exists, err := p.getFromPersist(codeKey(addr, blockTag))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCacheMiss
	}
	err = p.memCache.WriteCode(addr, blockTag, code)
	return code, err
}

func (p *persistentCache) WriteCode(addr common.Address, blockTag string, code []byte) error {
	if err := p.memCache.WriteCode(addr, blockTag, code); err != nil {
		return err
	}

	value := make([]byte, len(code))
	copy(value, code)
	return p.writeToPersist(codeKey(addr, blockTag), value)
}

// Close flushes pending writes and closes the database. Subsequent calls return the result of the first.
func (p *persistentCache) Close() error {
	p.closeOnce.Do(func() {
		p.pendingWriteMutex.Lock()
		flushErr := p.flushWrites()
		p.pendingWriteMutex.Unlock()

		closeErr := p.db.Close()
		p.closeErr = errors.Join(flushErr, closeErr)
	})
	return p.closeErr
}

func createCacheDirectory(cacheDir string) error {
	_, err := os.Stat(cacheDir)
	if os.IsNotExist(err) {
		if err = os.MkdirAll(cacheDir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check cache directory: %w", err)
	}
	return nil
}

func getCacheFilename(rpcAddr string) string {
	h := sha256.New()
	h.Write([]byte(rpcAddr))
	bs := h.Sum(nil)

	return fmt.Sprintf("code-%x.dat", bs[0:10])
}
