// ABOUTME: Tests for the SSE stream manager and per-connection run loop.
// ABOUTME: Exercises endpoint announcement, message round-trips, and cleanup.

package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crestline/snowgate/internal/mcp"
	"github.com/crestline/snowgate/internal/session"
)

type stubBackend struct{}

func (stubBackend) ListTools(context.Context) ([]mcp.ToolDescriptor, error) {
	return []mcp.ToolDescriptor{{Name: "ping", Description: "Ping", InputSchema: json.RawMessage(`{"type":"object"}`)}}, nil
}

func (stubBackend) CallTool(context.Context, string, json.RawMessage) ([]mcp.Content, error) {
	return []mcp.Content{{Type: "text", Text: "pong"}}, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dispatcher, err := mcp.NewDispatcher(mcp.Config{
		Backend:       stubBackend{},
		Sessions:      session.NewStore(16, 0, slog.Default()),
		Logger:        slog.Default(),
		ServerName:    "snowgate",
		ServerVersion: "test",
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return NewManager(dispatcher, "/messages", slog.Default())
}

func newTestServer(t *testing.T, m *Manager) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", m.ServeSSE)
	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		m.HandlePost(w, r, r.URL.Query().Get(SessionParam))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// sseEvent reads one "event:"/"data:" pair from an SSE stream.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading SSE stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestStream_EndpointAnnouncementAndRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	srv := newTestServer(t, manager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("opening SSE stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)

	event, data := readSSEEvent(t, reader)
	if event != "endpoint" {
		t.Fatalf("first event = %q, want endpoint", event)
	}
	if !strings.HasPrefix(data, "/messages?"+SessionParam+"=") {
		t.Fatalf("endpoint data = %q, want message path with session_id", data)
	}

	// POST an initialize message to the announced endpoint.
	body := []byte(`{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05"},"id":1}`)
	postResp, err := http.Post(srv.URL+data, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("posting message: %v", err)
	}
	postResp.Body.Close()
	if postResp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST status = %d, want %d", postResp.StatusCode, http.StatusAccepted)
	}

	// The response envelope arrives on the SSE channel.
	event, data = readSSEEvent(t, reader)
	if event != "message" {
		t.Fatalf("second event = %q, want message", event)
	}

	var envelope mcp.JSONRPCResponse
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		t.Fatalf("decoding response envelope: %v", err)
	}
	if envelope.Error != nil {
		t.Fatalf("initialize over stream failed: %+v", envelope.Error)
	}
	if string(envelope.ID) != "1" {
		t.Errorf("envelope id = %s, want 1", envelope.ID)
	}

	result, ok := envelope.Result.(map[string]any)
	if !ok || result["protocolVersion"] != "2024-11-05" {
		t.Errorf("result = %v, want echoed protocolVersion", envelope.Result)
	}
}

func TestStream_MessagesBeforeInitializeRejected(t *testing.T) {
	manager := newTestManager(t)
	srv := newTestServer(t, manager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("opening SSE stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	_, endpoint := readSSEEvent(t, reader)

	body := []byte(`{"jsonrpc":"2.0","method":"tools/list","id":2}`)
	postResp, err := http.Post(srv.URL+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("posting message: %v", err)
	}
	postResp.Body.Close()

	_, data := readSSEEvent(t, reader)
	var envelope mcp.JSONRPCResponse
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != mcp.JSONRPCNotInitialized {
		t.Errorf("error = %+v, want code %d", envelope.Error, mcp.JSONRPCNotInitialized)
	}
}

func TestHandlePost_UnknownSession(t *testing.T) {
	manager := newTestManager(t)

	req := httptest.NewRequest(http.MethodPost, "/messages?session_id=nope", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	manager.HandlePost(rec, req, "nope")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStream_ReleasedOnDisconnect(t *testing.T) {
	manager := newTestManager(t)
	srv := newTestServer(t, manager)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("opening SSE stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readSSEEvent(t, reader)

	if got := manager.ActiveConnections(); got != 1 {
		t.Fatalf("ActiveConnections() = %d, want 1", got)
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for manager.ActiveConnections() != 0 {
		select {
		case <-deadline:
			t.Fatal("connection not released after disconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
