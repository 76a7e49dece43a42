// ABOUTME: SSE transport manager bridging persistent connections to the dispatcher.
// ABOUTME: Announces the per-connection message endpoint and streams responses out.

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/crestline/snowgate/internal/mcp"
)

// SessionParam is the query parameter that carries the stream identifier on
// POSTed messages. Its presence is what routes a request to this adapter.
const SessionParam = "session_id"

// maxMessageSize caps individual POSTed protocol messages (1MB).
const maxMessageSize = 1 << 20

// Manager owns all live streaming connections. Each GET on the SSE endpoint
// registers a connection, announces its message endpoint, and runs the
// protocol loop until the HTTP request context ends; both channel directions
// are released on the way out, including on handler failure.
type Manager struct {
	dispatcher  *mcp.Dispatcher
	logger      *slog.Logger
	messagePath string

	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewManager creates a stream manager. messagePath is the path clients POST
// protocol messages to (the session identifier is appended as a query
// parameter in the endpoint announcement).
func NewManager(dispatcher *mcp.Dispatcher, messagePath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dispatcher:  dispatcher,
		logger:      logger,
		messagePath: messagePath,
		conns:       make(map[string]*Connection),
	}
}

// ActiveConnections returns the number of live streams (for monitoring).
func (m *Manager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// ServeSSE handles the stream-establish endpoint. It blocks for the lifetime
// of the connection.
func (m *Manager) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		m.logger.Error("streaming not supported by transport")
		http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	conn := newConnection()
	m.register(conn)
	defer m.release(conn)

	m.logger.Info("stream connected", "stream_id", conn.ID, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Announce where this connection's messages go before anything else.
	fmt.Fprintf(w, "event: endpoint\ndata: %s?%s=%s\n\n", m.messagePath, SessionParam, conn.ID)
	flusher.Flush()

	go m.runLoop(r.Context(), conn)

	for {
		select {
		case <-r.Context().Done():
			m.logger.Info("stream disconnected", "stream_id", conn.ID)
			return
		case msg, ok := <-conn.outbound:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// runLoop is the protocol loop for one connection: inbound messages are
// dispatched in arrival order and response envelopes pushed to the SSE
// writer. It closes the outbound direction when the inbound one ends.
func (m *Manager) runLoop(ctx context.Context, conn *Connection) {
	defer close(conn.outbound)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.inbound:
			if !ok {
				return
			}

			resp := m.dispatcher.HandleRaw(ctx, conn.Session, msg)
			if resp == nil {
				continue // notification
			}

			data, err := json.Marshal(resp)
			if err != nil {
				m.logger.Error("failed to encode response envelope", "stream_id", conn.ID, "error", err)
				continue
			}

			select {
			case conn.outbound <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandlePost accepts one protocol message for an established stream and
// acknowledges it immediately; the response travels over the SSE channel.
func (m *Manager) HandlePost(w http.ResponseWriter, r *http.Request, streamID string) {
	conn := m.get(streamID)
	if conn == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown session_id"}` + "\n"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}

	if err := conn.Enqueue(r.Context(), body); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		w.Write([]byte(`{"error":"stream closed"}` + "\n"))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (m *Manager) register(conn *Connection) {
	m.mu.Lock()
	m.conns[conn.ID] = conn
	m.mu.Unlock()
}

func (m *Manager) release(conn *Connection) {
	m.mu.Lock()
	delete(m.conns, conn.ID)
	m.mu.Unlock()
	conn.Close()
}

func (m *Manager) get(id string) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[id]
}
