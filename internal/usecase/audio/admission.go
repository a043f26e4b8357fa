package audio

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// CancelToken is a cooperative cancellation flag shared between a generation
// task and the request contexts that may cancel it
type CancelToken struct {
	flag atomic.Bool
}

// Cancel sets the flag. Safe to call more than once.
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether cancellation was requested
func (t *CancelToken) Cancelled() bool {
	return t.flag.Load()
}

type activeTask struct {
	chapterID uuid.UUID
	token     *CancelToken
}

// AdmissionManager enforces at most one active generation task per user. A
// new registration supersedes a previous task for a different chapter by
// setting its cancel token.
type AdmissionManager struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]activeTask
}

// NewAdmissionManager creates an admission manager
func NewAdmissionManager() *AdmissionManager {
	return &AdmissionManager{tasks: make(map[uuid.UUID]activeTask)}
}

// Register records a new active task for the user and returns its cancel
// token. An existing task for a different chapter is cancelled and replaced;
// an existing task for the same chapter is kept and its token returned with
// ok=false so the caller does not start a duplicate pipeline.
func (m *AdmissionManager) Register(userID, chapterID uuid.UUID) (*CancelToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.tasks[userID]; exists {
		if prev.chapterID == chapterID {
			return prev.token, false
		}
		prev.token.Cancel()
	}

	token := &CancelToken{}
	m.tasks[userID] = activeTask{chapterID: chapterID, token: token}
	return token, true
}

// Cancel requests cancellation of the user's active task. It only takes
// effect when the stored task still matches the given chapter; stale cancel
// requests return false.
func (m *AdmissionManager) Cancel(userID, chapterID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, exists := m.tasks[userID]
	if !exists || task.chapterID != chapterID {
		return false
	}
	task.token.Cancel()
	return true
}

// Clear removes the user's entry if it still matches the chapter. Called
// exactly once per terminal task outcome; a superseded task's clear is a
// no-op because the entry already belongs to the new task.
func (m *AdmissionManager) Clear(userID, chapterID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, exists := m.tasks[userID]
	if !exists || task.chapterID != chapterID {
		return false
	}
	delete(m.tasks, userID)
	return true
}

// Generating reports whether the user currently has an active task for the
// chapter
func (m *AdmissionManager) Generating(userID, chapterID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, exists := m.tasks[userID]
	return exists && task.chapterID == chapterID
}
