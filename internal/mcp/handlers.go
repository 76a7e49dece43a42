// ABOUTME: Method handlers for initialize, notifications, tools/list, and tools/call.
// ABOUTME: Handlers return envelopes; they never write transport-level metadata.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crestline/snowgate/internal/session"
)

// initializeParams are the params for the initialize handshake.
type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      map[string]any `json:"clientInfo"`
}

// callToolParams are the params for tools/call.
type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// listToolsResult is the result for tools/list.
type listToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// callToolResult is the result for tools/call.
type callToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// handleNotification acknowledges id-less requests. Notifications are
// fire-and-forget: they must not fail even on an uninitialized session.
func (d *Dispatcher) handleNotification(req *JSONRPCRequest) {
	switch req.Method {
	case "notifications/initialized":
		d.logger.Debug("client reported initialization complete")
	default:
		d.logger.Warn("ignoring unknown notification", "method", req.Method)
	}
}

// handleInitialize performs the handshake. It is permitted in any session
// state: re-entry simply overwrites the negotiated capabilities. The caller's
// requested protocol version is echoed back verbatim.
func (d *Dispatcher) handleInitialize(sess *session.Session, req *JSONRPCRequest) *JSONRPCResponse {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, JSONRPCInvalidParams, "invalid initialize params")
		}
	}

	protocolVersion := params.ProtocolVersion
	if protocolVersion == "" {
		protocolVersion = defaultProtocolVersion
	}

	sess.Initialize(params.Capabilities)

	d.logger.Info("session initialized",
		"protocol_version", protocolVersion,
		"client_info", params.ClientInfo,
	)

	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	}
	return NewResult(req.ID, result)
}

// handleToolsList queries the backend for its tool descriptors and forwards
// them unchanged.
func (d *Dispatcher) handleToolsList(ctx context.Context, sess *session.Session, req *JSONRPCRequest) *JSONRPCResponse {
	if !sess.Initialized() {
		return NewError(req.ID, JSONRPCNotInitialized, "session not initialized")
	}

	tools, err := d.backend.ListTools(ctx)
	if err != nil {
		d.logger.Warn("tool listing failed", "error", err)
		return NewError(req.ID, JSONRPCInternalError, fmt.Sprintf("listing tools: %v", err))
	}
	if tools == nil {
		tools = []ToolDescriptor{}
	}

	d.logger.Debug("tools/list", "count", len(tools))

	return NewResult(req.ID, listToolsResult{Tools: tools})
}

// handleToolsCall delegates execution to the backend and wraps the first
// textual result fragment into the uniform content shape.
func (d *Dispatcher) handleToolsCall(ctx context.Context, sess *session.Session, req *JSONRPCRequest) *JSONRPCResponse {
	if !sess.Initialized() {
		return NewError(req.ID, JSONRPCNotInitialized, "session not initialized")
	}

	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, JSONRPCInvalidParams, "invalid params")
		}
	}
	if params.Name == "" {
		return NewError(req.ID, JSONRPCInvalidParams, "tool name is required")
	}

	arguments := params.Arguments
	if len(arguments) == 0 || string(arguments) == "null" {
		arguments = json.RawMessage(`{}`)
	}

	d.logger.Debug("tools/call", "tool_name", params.Name)

	fragments, err := d.backend.CallTool(ctx, params.Name, arguments)
	if err != nil {
		d.logger.Warn("tool execution failed", "tool_name", params.Name, "error", err)
		return NewError(req.ID, JSONRPCInternalError,
			fmt.Sprintf("tool %q failed: %v", params.Name, err))
	}

	text := ""
	for _, fragment := range fragments {
		if fragment.Type == "text" {
			text = fragment.Text
			break
		}
	}

	return NewResult(req.ID, callToolResult{
		Content: []Content{{Type: "text", Text: text}},
	})
}
