package audio

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/infrastructure/cache"
)

const sessionTTL = 24 * time.Hour

// playbackSession correlates byte offsets across reconnects of one logical
// listening session
type playbackSession struct {
	SessionID string `json:"session_id"`
	BytesSent int64  `json:"bytes_sent"`
}

// SessionStore tracks per-user playback byte counters. Redis makes the
// counters survive restarts; without Redis the store degrades to the
// in-memory cache only.
type SessionStore struct {
	mu     sync.Mutex
	local  *cache.MemoryStore
	rdb    *redis.Client
	logger *zap.Logger
}

// NewSessionStore creates a playback session store. rdb may be nil.
func NewSessionStore(rdb *redis.Client, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		local:  cache.NewMemoryStore(),
		rdb:    rdb,
		logger: logger,
	}
}

// Offset returns the recorded byte offset for the user's session. Presenting
// a new session id resets the counter to zero.
func (s *SessionStore) Offset(ctx context.Context, userID uuid.UUID, sessionID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.load(ctx, userID)
	if sess == nil || sess.SessionID != sessionID {
		sess = &playbackSession{SessionID: sessionID}
		s.persist(ctx, userID, sess)
		return 0
	}
	return sess.BytesSent
}

// AddBytes advances the user's session counter after bytes were sent. Bytes
// sent under a stale session id are ignored.
func (s *SessionStore) AddBytes(ctx context.Context, userID uuid.UUID, sessionID string, n int64) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.load(ctx, userID)
	if sess == nil || sess.SessionID != sessionID {
		return
	}
	sess.BytesSent += n
	s.persist(ctx, userID, sess)
}

// load returns the cached session, falling back to Redis after a restart
func (s *SessionStore) load(ctx context.Context, userID uuid.UUID) *playbackSession {
	key := sessionKey(userID)

	if data, ok := s.local.Get(key); ok {
		var sess playbackSession
		if err := json.Unmarshal([]byte(data), &sess); err == nil {
			return &sess
		}
	}
	if s.rdb == nil {
		return nil
	}

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var sess playbackSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil
	}
	s.local.Set(key, string(data), sessionTTL)
	return &sess
}

func (s *SessionStore) persist(ctx context.Context, userID uuid.UUID, sess *playbackSession) {
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	key := sessionKey(userID)

	s.local.Set(key, string(data), sessionTTL)

	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, sessionTTL).Err(); err != nil {
		s.logger.Debug("failed to persist playback session",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

func sessionKey(userID uuid.UUID) string {
	return "playback:session:" + userID.String()
}
