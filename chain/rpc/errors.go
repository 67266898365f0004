package rpc

import "fmt"

// RpcError describes a JSON-RPC request which did not produce a usable result, either because the transport failed
// or because the endpoint returned no result.
type RpcError struct {
	// Endpoint describes the RPC endpoint the request was sent to.
	Endpoint string

	// Method describes the JSON-RPC method that was called.
	Method string

	// Err describes the underlying cause.
	Err error
}

// Error returns the error message.
func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc request '%s' to %s failed: %v", e.Method, e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RpcError) Unwrap() error {
	return e.Err
}
