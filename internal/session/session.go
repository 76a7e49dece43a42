// ABOUTME: Per-credential protocol session state and key derivation.
// ABOUTME: Tracks the initialize handshake and negotiated capabilities.

package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// DeriveKey maps a caller credential to a session key. The transform is a
// one-way deterministic digest so the session table never retains the raw
// secret: equal credentials always yield the same key, and the key cannot be
// reversed into the credential.
func DeriveKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// Session tracks the protocol state negotiated with one caller. A session
// starts uninitialized; only a successful initialize call flips it. All
// state access goes through accessors so concurrent requests for the same
// credential never race on the underlying map.
type Session struct {
	mu           sync.Mutex
	initialized  bool
	capabilities map[string]any
}

// New returns an uninitialized session.
func New() *Session {
	return &Session{}
}

// Initialize marks the session initialized and stores the caller's
// capabilities, overwriting any previous negotiation. Re-entry is allowed:
// initialize is idempotent by protocol convention.
func (s *Session) Initialize(capabilities map[string]any) {
	caps := make(map[string]any, len(capabilities))
	for k, v := range capabilities {
		caps[k] = v
	}

	s.mu.Lock()
	s.initialized = true
	s.capabilities = caps
	s.mu.Unlock()
}

// Initialized reports whether the initialize handshake has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Capabilities returns a copy of the negotiated capability map.
func (s *Session) Capabilities() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	caps := make(map[string]any, len(s.capabilities))
	for k, v := range s.capabilities {
		caps[k] = v
	}
	return caps
}
