package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAddress describes the contract address used by the tests.
const testAddress = "0xa5A750f3eF47fc35e5c1Af2c54C1182Abb392125"

// jsonRPCRequest describes an incoming JSON-RPC request to the fake node.
type jsonRPCRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []string        `json:"params"`
}

// newFakeNode starts a JSON-RPC server which answers each eth_getCode request with the raw JSON result produced by
// respond. A nil result omits the result field entirely. Requests are counted in calls.
func newFakeNode(t *testing.T, calls *atomic.Int32, respond func(req jsonRPCRequest) json.RawMessage) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calls.Add(1)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if result := respond(req); result != nil {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestFetchCode verifies the request parameters and that the result is lower-cased and decoded.
func TestFetchCode(t *testing.T) {
	var calls atomic.Int32
	var received jsonRPCRequest
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		received = req
		return json.RawMessage(`"0x6080604052AB"`)
	})

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL})
	require.NoError(t, err)
	defer fetcher.Close()

	codeHex, err := fetcher.FetchCodeHex(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "0x6080604052ab", codeHex)
	assert.Equal(t, "eth_getCode", received.Method)
	assert.Equal(t, []string{"0xa5a750f3ef47fc35e5c1af2c54c1182abb392125", "latest"}, received.Params)

	code, err := fetcher.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0xab}, code)
	assert.EqualValues(t, 2, calls.Load())
}

// TestFetchCodeEmpty verifies an address without code yields the canonical empty encoding.
func TestFetchCodeEmpty(t *testing.T) {
	var calls atomic.Int32
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		return json.RawMessage(`"0x"`)
	})

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL})
	require.NoError(t, err)
	defer fetcher.Close()

	codeHex, err := fetcher.FetchCodeHex(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "0x", codeHex)

	code, err := fetcher.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	assert.Empty(t, code)
}

// TestFetchCodeMissingResult verifies missing, null and empty string results produce an RpcError.
func TestFetchCodeMissingResult(t *testing.T) {
	for _, result := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`""`)} {
		var calls atomic.Int32
		server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
			return result
		})

		ctx := context.Background()
		fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL})
		require.NoError(t, err)

		_, err = fetcher.FetchCode(ctx, testAddress)
		var rpcErr *RpcError
		require.True(t, errors.As(err, &rpcErr), "result %s", string(result))
		assert.Equal(t, "eth_getCode", rpcErr.Method)
		assert.Equal(t, server.URL, rpcErr.Endpoint)

		// Without retries configured, only one attempt is made
		assert.EqualValues(t, 1, calls.Load())
		require.NoError(t, fetcher.Close())
	}
}

// TestFetchCodeRetries verifies failed calls are retried up to the configured number of attempts.
func TestFetchCodeRetries(t *testing.T) {
	var calls atomic.Int32
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		if calls.Load() < 3 {
			return nil
		}
		return json.RawMessage(`"0x6001"`)
	})

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL, Attempts: 3})
	require.NoError(t, err)
	defer fetcher.Close()

	code, err := fetcher.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x60, 0x01}, code)
	assert.EqualValues(t, 3, calls.Load())
}

// TestFetchCodeTimeout verifies a slow endpoint fails with an RpcError once the call timeout elapses.
func TestFetchCodeTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.FetchCode(ctx, testAddress)
	var rpcErr *RpcError
	assert.True(t, errors.As(err, &rpcErr))
}

// TestFetchCodeInvalidAddress verifies malformed addresses are rejected before any request is made.
func TestFetchCodeInvalidAddress(t *testing.T) {
	var calls atomic.Int32
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		return json.RawMessage(`"0x"`)
	})

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL})
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.FetchCode(ctx, "0x1234")
	assert.Error(t, err)
	assert.EqualValues(t, 0, calls.Load())
}

// TestFetchCodeCachesPinnedBlocks verifies code fetched at a pinned block is served from the persistent cache, while
// code fetched at "latest" is always requested.
func TestFetchCodeCachesPinnedBlocks(t *testing.T) {
	var calls atomic.Int32
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		return json.RawMessage(`"0x6080"`)
	})

	ctx := context.Background()
	cacheDir := filepath.Join(t.TempDir(), "cache")

	pinned, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL, BlockTag: "0x10", CacheDirectory: cacheDir})
	require.NoError(t, err)
	_, err = pinned.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	require.NoError(t, pinned.Close())
	assert.EqualValues(t, 1, calls.Load())

	// A fresh fetcher over the same cache directory does not hit the endpoint
	pinned, err = NewFetcher(ctx, FetcherConfig{Endpoint: server.URL, BlockTag: "0x10", CacheDirectory: cacheDir})
	require.NoError(t, err)
	code, err := pinned.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x60, 0x80}, code)
	require.NoError(t, pinned.Close())
	assert.EqualValues(t, 1, calls.Load())

	latest, err := NewFetcher(ctx, FetcherConfig{Endpoint: server.URL, CacheDirectory: cacheDir})
	require.NoError(t, err)
	defer latest.Close()
	assert.Equal(t, DefaultBlockTag, latest.BlockTag())
	_, err = latest.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	_, err = latest.FetchCode(ctx, testAddress)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

// TestClientPoolDeduplicatesInflightRequests verifies identical concurrent requests share one network call.
func TestClientPoolDeduplicatesInflightRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := newFakeNode(t, &calls, func(req jsonRPCRequest) json.RawMessage {
		<-release
		return json.RawMessage(`"0x01"`)
	})

	ctx := context.Background()
	pool, err := NewClientPool(ctx, server.URL, 1, 1)
	require.NoError(t, err)
	defer pool.Close()

	first, err := pool.ExecuteRequestAsync(ctx, "eth_getCode", testAddress, "latest")
	require.NoError(t, err)
	second, err := pool.ExecuteRequestAsync(ctx, "eth_getCode", testAddress, "latest")
	require.NoError(t, err)
	close(release)

	var a, b string
	require.NoError(t, first.GetResultBlocking(&a))
	require.NoError(t, second.GetResultBlocking(&b))
	assert.Equal(t, "0x01", a)
	assert.Equal(t, a, b)
	assert.EqualValues(t, 1, calls.Load())
}
