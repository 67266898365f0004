package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// errNullResult is returned when the endpoint responds with a missing, null or empty string result.
var errNullResult = errors.New("empty result in JSON-RPC response")

// ClientPool manages a set of RPC clients connected to a single endpoint. Identical requests issued while one is in
// flight share its result. Failed requests are retried until the configured number of attempts is exhausted.
type ClientPool struct {
	rpcClients       []*rpc.Client
	currentClientIdx int
	clientLock       sync.Mutex

	inflightRequests map[requestKey]*inflightRequest
	inflightLock     sync.Mutex

	endpoint string
	attempts int
}

// NewClientPool dials poolSize clients to endpoint. A non-positive attempts value results in a single attempt per
// request.
func NewClientPool(ctx context.Context, endpoint string, poolSize uint, attempts int) (*ClientPool, error) {
	if poolSize == 0 {
		poolSize = 1
	}
	if attempts <= 0 {
		attempts = 1
	}
	pool := &ClientPool{
		rpcClients:       make([]*rpc.Client, 0, poolSize),
		inflightRequests: make(map[requestKey]*inflightRequest),
		endpoint:         endpoint,
		attempts:         attempts,
	}

	// dial out
	for i := uint(0); i < poolSize; i++ {
		client, err := rpc.DialContext(ctx, endpoint)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.rpcClients = append(pool.rpcClients, client)
	}

	return pool, nil
}

// Endpoint returns the endpoint the pool is connected to.
func (c *ClientPool) Endpoint() string {
	return c.endpoint
}

// ExecuteRequestBlocking executes a request and blocks until its result has been decoded into result.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result any, method string, args ...any) error {
	pending, err := c.ExecuteRequestAsync(ctx, method, args...)
	if err != nil {
		return err
	}
	return pending.GetResultBlocking(result)
}

// ExecuteRequestAsync executes a request in the background and returns a PendingResult for it. If an identical
// request is already in flight, its PendingResult is shared.
func (c *ClientPool) ExecuteRequestAsync(ctx context.Context, method string, args ...any) (*PendingResult, error) {
	key, err := makeRequestKey(method, args...)
	if err != nil {
		return nil, err
	}

	// check for in-flight requests
	c.inflightLock.Lock()
	defer c.inflightLock.Unlock()
	if inflight, exists := c.inflightRequests[key]; exists {
		return newPendingResult(inflight), nil
	}

	inflight := &inflightRequest{
		Done:    make(chan struct{}),
		Context: ctx,
	}
	c.inflightRequests[key] = inflight

	go c.launchRequest(c.getClient(), key, inflight, method, args...)
	return newPendingResult(inflight), nil
}

// Close closes every client in the pool.
func (c *ClientPool) Close() {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()
	for _, client := range c.rpcClients {
		client.Close()
	}
}

func (c *ClientPool) getClient() *rpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.rpcClients[c.currentClientIdx]
	c.currentClientIdx = (c.currentClientIdx + 1) % len(c.rpcClients)

	return client
}

func (c *ClientPool) launchRequest(
	client *rpc.Client,
	key requestKey,
	request *inflightRequest,
	method string,
	args ...any) {
	defer func() {
		c.inflightLock.Lock()
		delete(c.inflightRequests, key)
		c.inflightLock.Unlock()
		close(request.Done)
	}()

	var err error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			case <-request.Context.Done():
				request.Error = request.Context.Err()
				return
			}
		}

		var result json.RawMessage
		err = client.CallContext(request.Context, &result, method, args...)
		if err == nil && isEmptyResult(result) {
			err = errNullResult
		}
		if err == nil {
			request.Result = result
			return
		}
	}
	request.Error = err
}

// isEmptyResult returns a boolean indicating whether a raw result is missing, null, or an empty string.
func isEmptyResult(result json.RawMessage) bool {
	trimmed := bytes.TrimSpace(result)
	return len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == `""`
}
