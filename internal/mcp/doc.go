// Package mcp implements the tool-calling protocol core of snowgate.
//
// # Overview
//
// The gateway speaks JSON-RPC 2.0 in the Model Context Protocol shape. This
// package owns envelope construction, the protocol dispatcher, and the method
// handlers; transports (stateless POST and the SSE stream) feed messages in
// and write the returned envelopes out.
//
// # Session State Machine
//
// A session moves Uninitialized -> Initialized, transitioning only on a
// successful initialize call:
//
//   - initialize: always permitted; idempotent re-entry overwrites the
//     negotiated capabilities. The caller's protocolVersion is echoed back
//     verbatim (compatibility-first negotiation).
//   - notifications/initialized: acknowledged without a response body in any
//     state; notifications never fail.
//   - tools/list, tools/call: require an initialized session, otherwise
//     error -32002.
//
// # Error Codes
//
//	-32700  parse error (malformed envelope, id null)
//	-32600  invalid request (wrong protocol tag)
//	-32601  method not found
//	-32602  invalid params
//	-32603  internal / tool execution failure
//	-32001  authorization required (no credential reached the dispatcher)
//	-32002  session not initialized
//
// Every handler failure is recovered inside the dispatcher and converted to
// an error envelope carrying the original request id; stateless requests
// never surface a raw fault to the HTTP layer.
//
// # Backend
//
// Tool discovery and execution are delegated to a ToolBackend. Descriptors
// pass through unchanged; tool results are collapsed to their first textual
// fragment in the uniform {content:[{type:"text",text}]} shape.
package mcp
