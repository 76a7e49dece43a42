// ABOUTME: JSON-RPC 2.0 request/response envelopes and protocol error codes.
// ABOUTME: Exactly one of Result/Error is set on a response.

package mcp

import "encoding/json"

// protocolTag is the fixed JSON-RPC version marker carried by every envelope.
const protocolTag = "2.0"

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no correlation id.
// Notifications are fire-and-forget: they never produce a response body.
func (r *JSONRPCRequest) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes plus the gateway-specific range.
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603

	// JSONRPCAuthRequired is produced when a stateless request reaches the
	// dispatcher without any credential attached.
	JSONRPCAuthRequired = -32001

	// JSONRPCNotInitialized is produced when a method requiring the
	// initialize handshake runs against an uninitialized session.
	JSONRPCNotInitialized = -32002
)

// NewResult builds a success envelope carrying the original request id.
func NewResult(id json.RawMessage, result any) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: protocolTag,
		ID:      id,
		Result:  result,
	}
}

// NewError builds an error envelope carrying the original request id
// (nil id encodes as null per protocol convention).
func NewError(id json.RawMessage, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: protocolTag,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
}
