// ABOUTME: HTTP route table and handlers, including the transport router.
// ABOUTME: POST /messages dispatches to streaming or stateless mode by session_id.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crestline/snowgate/internal/auth"
	"github.com/crestline/snowgate/internal/mcp"
	"github.com/crestline/snowgate/internal/stream"
)

const (
	healthPath   = "/health"
	ssePath      = "/sse"
	messagesPath = "/messages"

	// maxRequestBodySize caps stateless request bodies at 1 MB.
	maxRequestBodySize = 1 << 20
)

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	// Discovery and health stay reachable without credentials.
	mux.HandleFunc("/", g.handleRoot)
	mux.HandleFunc(healthPath, g.handleHealth)

	var sseHandler http.Handler = http.HandlerFunc(g.handleSSE)
	if g.config.Auth.RequireAuthOnStream {
		sseHandler = g.gate.Middleware(sseHandler)
	}
	mux.Handle(ssePath, sseHandler)

	mux.Handle(messagesPath, g.gate.Middleware(http.HandlerFunc(g.handleMessages)))

	return mux
}

func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    serverName,
		"version":    g.version,
		"transports": []string{"sse", "stateless"},
		"endpoints": map[string]string{
			"sse":      ssePath,
			"messages": messagesPath,
			"health":   healthPath,
		},
		"authentication": g.gate.Enabled(),
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        serverName,
		"version":        g.version,
		"authentication": g.gate.Enabled(),
		"connections":    g.streams.ActiveConnections(),
	})
}

func (g *Gateway) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g.streams.ServeSSE(w, r)
}

// handleMessages routes a protocol request to the streaming or stateless
// path. A session_id query parameter selects the streaming connection it
// names; its absence selects stateless dispatch against the caller's
// credential-derived session.
func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if streamID := r.URL.Query().Get(stream.SessionParam); streamID != "" {
		g.streams.HandlePost(w, r, streamID)
		return
	}

	body, err := readBody(r)
	if err != nil {
		g.logger.Warn("rejecting stateless request", "error", err)
		writeJSON(w, http.StatusOK, mcp.NewError(nil, mcp.JSONRPCParseError, err.Error()))
		return
	}

	credential := auth.CredentialFromContext(r.Context())
	resp := g.dispatcher.HandleStateless(r.Context(), credential, body)
	if resp == nil {
		// Notification: nothing to return.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxRequestBodySize {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxRequestBodySize)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}
