// ABOUTME: Tests for session key derivation and the bounded session store.
// ABOUTME: Covers determinism, concurrent get-or-create races, and eviction.

package session

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	k1 := DeriveKey("credential-a")
	k2 := DeriveKey("credential-a")
	if k1 != k2 {
		t.Errorf("DeriveKey not stable: %q != %q", k1, k2)
	}

	if len(k1) != 64 {
		t.Errorf("DeriveKey length = %d, want 64 hex chars", len(k1))
	}
}

func TestDeriveKey_DistinctCredentials(t *testing.T) {
	if DeriveKey("credential-a") == DeriveKey("credential-b") {
		t.Error("distinct credentials derived the same session key")
	}
}

func TestDeriveKey_NotReversible(t *testing.T) {
	// The derived key must never contain the raw credential.
	credential := "super-secret-token"
	key := DeriveKey(credential)
	if key == credential {
		t.Error("DeriveKey returned the raw credential")
	}
}

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(16, 0, slog.Default())

	s1 := store.GetOrCreate("key-1")
	if s1 == nil {
		t.Fatal("GetOrCreate returned nil")
	}
	if s1.Initialized() {
		t.Error("new session must start uninitialized")
	}

	s2 := store.GetOrCreate("key-1")
	if s1 != s2 {
		t.Error("GetOrCreate returned a different instance for the same key")
	}

	if !store.Exists("key-1") {
		t.Error("Exists(key-1) = false after creation")
	}
	if store.Exists("key-2") {
		t.Error("Exists(key-2) = true, never created")
	}
}

func TestStore_ConcurrentCreateSameKey(t *testing.T) {
	store := NewStore(16, 0, slog.Default())

	const n = 64
	sessions := make([]*Session, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			sessions[i] = store.GetOrCreate("racy-key")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if sessions[i] != sessions[0] {
			t.Fatalf("goroutine %d got a different session instance", i)
		}
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want exactly 1 session", store.Len())
	}
}

func TestStore_EvictsBeyondCapacity(t *testing.T) {
	store := NewStore(4, 0, slog.Default())

	for i := 0; i < 10; i++ {
		store.GetOrCreate(fmt.Sprintf("key-%d", i))
	}

	if store.Len() > 4 {
		t.Errorf("store.Len() = %d, want at most 4", store.Len())
	}
	// Oldest entries are gone, newest survive.
	if store.Exists("key-0") {
		t.Error("key-0 should have been evicted")
	}
	if !store.Exists("key-9") {
		t.Error("key-9 should still be present")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := NewStore(16, 20*time.Millisecond, slog.Default())

	store.GetOrCreate("short-lived")
	time.Sleep(60 * time.Millisecond)

	if store.Exists("short-lived") {
		t.Error("session should have expired")
	}
}

func TestSession_InitializeOverwrites(t *testing.T) {
	sess := New()

	sess.Initialize(map[string]any{"sampling": map[string]any{}})
	if !sess.Initialized() {
		t.Fatal("session not initialized after Initialize")
	}

	sess.Initialize(map[string]any{"roots": map[string]any{}})
	caps := sess.Capabilities()
	if _, ok := caps["sampling"]; ok {
		t.Error("second Initialize did not overwrite capabilities")
	}
	if _, ok := caps["roots"]; !ok {
		t.Error("second Initialize lost new capabilities")
	}
	if !sess.Initialized() {
		t.Error("session no longer initialized after re-entry")
	}
}
