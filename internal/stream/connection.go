// ABOUTME: Per-client duplex channel for the persistent SSE transport.
// ABOUTME: Inbound POSTed messages are processed in arrival order by one run loop.

package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/crestline/snowgate/internal/session"
)

// ErrConnectionClosed indicates the stream's inbound channel has been closed.
var ErrConnectionClosed = errors.New("stream connection closed")

// inboundBuffer bounds how many POSTed messages may queue ahead of the run loop.
const inboundBuffer = 16

// Connection is one live streaming client. Its protocol state lives in a
// dedicated session: streaming clients re-handshake per connection rather
// than per credential.
type Connection struct {
	ID      string
	Session *session.Session

	inbound  chan []byte
	outbound chan []byte

	closeMu sync.Mutex // protects closed and inbound close
	closed  bool
}

func newConnection() *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		Session:  session.New(),
		inbound:  make(chan []byte, inboundBuffer),
		outbound: make(chan []byte, inboundBuffer),
	}
}

// Enqueue hands a raw inbound message to the connection's run loop.
// Returns ErrConnectionClosed once the stream has shut down.
func (c *Connection) Enqueue(ctx context.Context, message []byte) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return ErrConnectionClosed
	}
	// Send while holding the lock to prevent close during send
	select {
	case c.inbound <- message:
		c.closeMu.Unlock()
		return nil
	case <-ctx.Done():
		c.closeMu.Unlock()
		return ctx.Err()
	}
}

// Close shuts the inbound direction. The run loop drains what is queued and
// then closes the outbound direction. Safe to call multiple times.
func (c *Connection) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
}
