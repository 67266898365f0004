package rpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crytic/solverify/chain/cache"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/logging/colors"
	"github.com/crytic/solverify/utils"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultBlockTag describes the block tag code is fetched at when none is configured.
	DefaultBlockTag = "latest"

	// DefaultTimeout describes the per-call timeout used when none is configured.
	DefaultTimeout = 30 * time.Second

	// getCodeMethod describes the JSON-RPC method used to fetch deployed code.
	getCodeMethod = "eth_getCode"
)

// FetcherConfig describes the options used to create a Fetcher.
type FetcherConfig struct {
	// Endpoint describes the JSON-RPC endpoint to query.
	Endpoint string

	// BlockTag describes the block tag to fetch code at, e.g. "latest" or a hex block number.
	BlockTag string

	// Timeout describes the timeout of a single call.
	Timeout time.Duration

	// Attempts describes how many times a failed call is attempted. A value of one disables retries.
	Attempts int

	// CacheDirectory describes the directory of the persistent code cache. If empty, fetched code is only cached in
	// memory.
	CacheDirectory string
}

// Fetcher retrieves the deployed runtime bytecode of contracts through eth_getCode.
type Fetcher struct {
	// config describes the options the Fetcher was created with.
	config FetcherConfig

	// pool describes the client pool requests are issued through.
	pool *ClientPool

	// codeCache describes the cache code is stored in for pinned block tags.
	codeCache cache.CodeCache

	// logger describes the Fetcher's log object that can be used to log important events
	logger *logging.Logger
}

// NewFetcher creates a Fetcher for the endpoint described by config. The Fetcher must be closed when it is no longer
// needed.
func NewFetcher(ctx context.Context, config FetcherConfig) (*Fetcher, error) {
	if config.BlockTag == "" {
		config.BlockTag = DefaultBlockTag
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Attempts <= 0 {
		config.Attempts = 1
	}

	pool, err := NewClientPool(ctx, config.Endpoint, 1, config.Attempts)
	if err != nil {
		return nil, &RpcError{Endpoint: config.Endpoint, Method: getCodeMethod, Err: err}
	}

	codeCache, err := cache.NewCodeCache(ctx, config.CacheDirectory, config.Endpoint)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Fetcher{
		config:    config,
		pool:      pool,
		codeCache: codeCache,
		logger:    logging.GlobalLogger.NewSubLogger("module", logging.CHAIN_SERVICE),
	}, nil
}

// BlockTag returns the block tag code is fetched at.
func (f *Fetcher) BlockTag() string {
	return f.config.BlockTag
}

// FetchCodeHex returns the lower-cased, "0x"-prefixed hex encoding of the code deployed at address. An address
// without code yields "0x". Returns a *RpcError if the endpoint could not be reached or returned no result.
func (f *Fetcher) FetchCodeHex(ctx context.Context, address string) (string, error) {
	addr, err := utils.HexStringToAddress(address)
	if err != nil {
		return "", err
	}

	blockTag := f.config.BlockTag
	cacheable := cache.IsCacheableBlockTag(blockTag)
	if cacheable {
		code, err := f.codeCache.GetCode(*addr, blockTag)
		if err == nil {
			f.logger.Debug("Using cached code for ", addr.Hex(), " at block ", blockTag)
			return utils.EncodeHexString(code), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn("Could not read the code cache", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	f.logger.Debug("Fetching code for ", colors.Bold, addr.Hex(), colors.Reset, " at block ", blockTag, " from ",
		f.pool.Endpoint())
	var result string
	err = f.pool.ExecuteRequestBlocking(callCtx, &result, getCodeMethod, addressParam(*addr), blockTag)
	if err != nil {
		return "", &RpcError{Endpoint: f.pool.Endpoint(), Method: getCodeMethod, Err: err}
	}
	codeHex := utils.NormalizeHexString(result)

	if cacheable {
		code, err := utils.DecodeHexString(codeHex)
		if err == nil {
			err = f.codeCache.WriteCode(*addr, blockTag, code)
		}
		if err != nil {
			f.logger.Warn("Could not write to the code cache", err)
		}
	}
	return codeHex, nil
}

// FetchCode returns the code deployed at address. An address without code yields empty bytes.
func (f *Fetcher) FetchCode(ctx context.Context, address string) ([]byte, error) {
	codeHex, err := f.FetchCodeHex(ctx, address)
	if err != nil {
		return nil, err
	}
	code, err := utils.DecodeHexString(codeHex)
	if err != nil {
		return nil, &RpcError{Endpoint: f.pool.Endpoint(), Method: getCodeMethod, Err: err}
	}
	return code, nil
}

// Close releases the client pool and the code cache.
func (f *Fetcher) Close() error {
	f.pool.Close()
	return f.codeCache.Close()
}

// addressParam returns the lower-cased hex encoding of an address as sent in request parameters.
func addressParam(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
