// ABOUTME: Narrow interface to the backend tool-execution engine.
// ABOUTME: The dispatcher passes tool descriptors through unchanged.

package mcp

import (
	"context"
	"encoding/json"
)

// ToolDescriptor describes one invocable backend tool. Descriptors are
// produced by the backend and forwarded to clients unmodified.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Content is one fragment of a tool execution result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolBackend is the gateway's view of the tool-execution engine. Both
// operations honor context cancellation: a dropped client connection
// abandons the in-flight backend call.
type ToolBackend interface {
	// ListTools returns the full set of tool descriptors.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)

	// CallTool executes the named tool with the given JSON argument mapping
	// and returns the result fragments.
	CallTool(ctx context.Context, name string, arguments json.RawMessage) ([]Content, error)
}
