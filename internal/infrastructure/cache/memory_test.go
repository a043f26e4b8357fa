package cache

import (
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ms := NewMemoryStore()
	ms.Set("session:abc", `{"offset":4096}`, time.Minute)

	got, ok := ms.Get("session:abc")
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if got != `{"offset":4096}` {
		t.Errorf("unexpected value %q", got)
	}
}

func TestMemoryStoreExpiredEntryIsDropped(t *testing.T) {
	ms := NewMemoryStore()
	ms.Set("session:abc", "stale", -time.Second)

	if _, ok := ms.Get("session:abc"); ok {
		t.Fatal("expected expired entry to be absent")
	}
	// the lazy read should have removed the entry outright
	ms.mu.Lock()
	_, still := ms.entries["session:abc"]
	ms.mu.Unlock()
	if still {
		t.Error("expired entry not removed on read")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ms := NewMemoryStore()
	ms.Set("k", "v", time.Minute)
	ms.Delete("k")
	if _, ok := ms.Get("k"); ok {
		t.Fatal("expected deleted entry to be absent")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ms := NewMemoryStore()
	ms.Set("k", "old", time.Minute)
	ms.Set("k", "new", time.Minute)
	if got, _ := ms.Get("k"); got != "new" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}
