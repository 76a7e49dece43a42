// ABOUTME: Protocol dispatcher routing JSON-RPC envelopes to method handlers.
// ABOUTME: Enforces the initialize-before-use invariant against per-credential sessions.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crestline/snowgate/internal/session"
)

// defaultProtocolVersion is echoed when an initialize request omits one.
// Version negotiation is compatibility-first: the server mirrors whatever
// the client asked for rather than enforcing a match.
const defaultProtocolVersion = "2024-11-05"

// Config holds configuration for the protocol dispatcher.
type Config struct {
	Backend       ToolBackend
	Sessions      *session.Store
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
}

// Dispatcher parses inbound envelopes, resolves the caller's session, and
// routes to the matching method handler. Every failure inside a handler is
// recovered here and converted into an error envelope; nothing escapes to
// the transport layer as a raw fault.
type Dispatcher struct {
	backend       ToolBackend
	sessions      *session.Store
	logger        *slog.Logger
	serverName    string
	serverVersion string
}

// NewDispatcher creates a dispatcher with the given configuration.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		backend:       cfg.Backend,
		sessions:      cfg.Sessions,
		logger:        logger,
		serverName:    cfg.ServerName,
		serverVersion: cfg.ServerVersion,
	}, nil
}

// HandleStateless processes one stateless request body. Session continuity
// is reconstructed from the credential: its one-way digest is the session
// key, so two requests bearing the same credential hit the same session.
//
// Returns nil for notifications, which produce no response body.
func (d *Dispatcher) HandleStateless(ctx context.Context, credential string, body []byte) *JSONRPCResponse {
	if credential == "" {
		return NewError(nil, JSONRPCAuthRequired, "authorization required")
	}

	sess := d.sessions.GetOrCreate(session.DeriveKey(credential))
	return d.HandleRaw(ctx, sess, body)
}

// HandleRaw parses one raw message against an already-resolved session and
// dispatches it. The streaming run loop uses this directly with its
// per-connection session.
func (d *Dispatcher) HandleRaw(ctx context.Context, sess *session.Session, body []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return NewError(nil, JSONRPCParseError, "parse error: invalid JSON")
	}
	if req.JSONRPC != protocolTag {
		return NewError(req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version")
	}

	return d.Dispatch(ctx, sess, &req)
}

// Dispatch routes a parsed request against a session. It is shared by the
// stateless path and the streaming run loop, which owns a session per
// connection instead of per credential.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, req *JSONRPCRequest) (resp *JSONRPCResponse) {
	// Handler failures never cross the transport boundary as raw faults.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic recovered", "method", req.Method, "panic", r)
			resp = NewError(req.ID, JSONRPCInternalError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	d.logger.Debug("dispatching request",
		"method", req.Method,
		"is_notification", req.IsNotification(),
	)

	if req.IsNotification() {
		d.handleNotification(req)
		return nil
	}

	switch req.Method {
	case "initialize":
		return d.handleInitialize(sess, req)
	case "tools/list":
		return d.handleToolsList(ctx, sess, req)
	case "tools/call":
		return d.handleToolsCall(ctx, sess, req)
	default:
		return NewError(req.ID, JSONRPCMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}
