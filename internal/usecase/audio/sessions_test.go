package audio

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestSessionOffsetAccumulates(t *testing.T) {
	store := NewSessionStore(nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	if off := store.Offset(ctx, userID, "sess-1"); off != 0 {
		t.Errorf("fresh session offset = %d, want 0", off)
	}

	store.AddBytes(ctx, userID, "sess-1", 4096)
	store.AddBytes(ctx, userID, "sess-1", 1024)

	if off := store.Offset(ctx, userID, "sess-1"); off != 5120 {
		t.Errorf("offset after 5120 bytes = %d, want 5120", off)
	}
}

func TestSessionNewIDResetsCounter(t *testing.T) {
	store := NewSessionStore(nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	store.Offset(ctx, userID, "sess-1")
	store.AddBytes(ctx, userID, "sess-1", 9000)

	if off := store.Offset(ctx, userID, "sess-2"); off != 0 {
		t.Errorf("new session id should reset the counter, got %d", off)
	}

	// the old session is gone now
	if off := store.Offset(ctx, userID, "sess-1"); off != 0 {
		t.Errorf("superseded session should restart at 0, got %d", off)
	}
}

func TestSessionStaleBytesIgnored(t *testing.T) {
	store := NewSessionStore(nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	store.Offset(ctx, userID, "sess-2")
	store.AddBytes(ctx, userID, "sess-1", 5000)

	if off := store.Offset(ctx, userID, "sess-2"); off != 0 {
		t.Errorf("bytes under a stale session id must be ignored, got %d", off)
	}
}

func TestSessionNonPositiveBytesIgnored(t *testing.T) {
	store := NewSessionStore(nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	store.Offset(ctx, userID, "sess-1")
	store.AddBytes(ctx, userID, "sess-1", 0)
	store.AddBytes(ctx, userID, "sess-1", -100)

	if off := store.Offset(ctx, userID, "sess-1"); off != 0 {
		t.Errorf("non-positive byte counts must not move the counter, got %d", off)
	}
}

func TestSessionUsersAreIndependent(t *testing.T) {
	store := NewSessionStore(nil, zap.NewNop())
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	store.Offset(ctx, userA, "sess-1")
	store.Offset(ctx, userB, "sess-1")
	store.AddBytes(ctx, userA, "sess-1", 1000)

	if off := store.Offset(ctx, userB, "sess-1"); off != 0 {
		t.Errorf("user B's counter should be untouched, got %d", off)
	}
}
