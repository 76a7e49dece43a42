// ABOUTME: Bounded in-memory session table keyed by derived session keys.
// ABOUTME: LRU eviction with TTL expiry keeps the table from growing without bound.

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store maps derived session keys to sessions. It is the only mutable shared
// resource in the gateway; GetOrCreate is atomic so a race of simultaneous
// first-time requests for the same credential produces exactly one session.
//
// The table is capacity-bounded with least-recently-used eviction plus TTL
// expiry. An evicted session simply forces the caller through initialize
// again on its next request.
type Store struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Session]
	logger *slog.Logger
}

// NewStore creates a session store holding at most maxEntries sessions, each
// expiring ttl after last write. A ttl of zero disables expiry.
func NewStore(maxEntries int, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{logger: logger}
	s.cache = expirable.NewLRU(maxEntries, func(key string, _ *Session) {
		logger.Debug("session evicted", "session_key", key)
	}, ttl)
	return s
}

// GetOrCreate returns the session for the given key, creating an
// uninitialized one on first access. Subsequent calls with the same key
// return the same instance until it is evicted.
func (s *Store) GetOrCreate(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.cache.Get(key); ok {
		return sess
	}

	sess := New()
	s.cache.Add(key, sess)
	return sess
}

// Exists reports whether a live session exists for the given key.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Contains(key)
}

// Len returns the number of live sessions (for monitoring).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
