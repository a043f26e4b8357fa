package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/domain/repositories"
	"github.com/novelvoice-team/novelvoice/pkg/config"
)

// ChapterTextProvider reads one chapter's text from the novel source file
type ChapterTextProvider interface {
	ChapterText(ctx context.Context, novel *entities.Novel, chapter *entities.Chapter) (string, error)
}

// ArchiveLinker issues time-limited download URLs for archived chapter audio
type ArchiveLinker interface {
	ChapterAudioURL(ctx context.Context, chapterID string, expiry time.Duration) (string, error)
}

// archiveURLExpiry bounds how long a handed-out archive link stays valid
const archiveURLExpiry = time.Hour

// Service is the audio generation facade used by the delivery layer: it
// admits tasks, launches the pipeline, and hands out readers and playback
// offsets for streaming.
type Service struct {
	cfg          *config.Config
	novelRepo    repositories.NovelRepository
	chapterRepo  repositories.ChapterRepository
	progressRepo repositories.ProgressRepository
	texts        ChapterTextProvider
	scripts      *ScriptGenerator
	pipeline     *Pipeline
	admission    *AdmissionManager
	sessions     *SessionStore
	links        ArchiveLinker // optional
	logger       *zap.Logger
}

// NewService creates the audio service and installs the next-chapter script
// preheat hook on the pipeline
func NewService(
	cfg *config.Config,
	novelRepo repositories.NovelRepository,
	chapterRepo repositories.ChapterRepository,
	progressRepo repositories.ProgressRepository,
	texts ChapterTextProvider,
	scripts *ScriptGenerator,
	pipeline *Pipeline,
	admission *AdmissionManager,
	sessions *SessionStore,
	logger *zap.Logger,
) *Service {
	s := &Service{
		cfg:          cfg,
		novelRepo:    novelRepo,
		chapterRepo:  chapterRepo,
		progressRepo: progressRepo,
		texts:        texts,
		scripts:      scripts,
		pipeline:     pipeline,
		admission:    admission,
		sessions:     sessions,
		logger:       logger,
	}
	pipeline.SetPreheat(s.preheatNextChapter)
	return s
}

// SetArchiveLinker installs the object-storage link source for complete
// chapters
func (s *Service) SetArchiveLinker(links ArchiveLinker) {
	s.links = links
}

// ArchiveURL returns a time-limited download URL for a complete chapter's
// archived audio, or "" when no archive backend is configured or the link
// cannot be issued
func (s *Service) ArchiveURL(ctx context.Context, chapterID uuid.UUID) string {
	if s.links == nil {
		return ""
	}
	url, err := s.links.ChapterAudioURL(ctx, chapterID.String(), archiveURLExpiry)
	if err != nil {
		s.logger.Debug("failed to issue archive link",
			zap.String("chapter_id", chapterID.String()),
			zap.Error(err))
		return ""
	}
	return url
}

// EnsureGeneration starts audio generation for a chapter unless it is already
// complete or already running for this user. It returns immediately; the
// pipeline runs detached from the request.
func (s *Service) EnsureGeneration(ctx context.Context, userID, chapterID uuid.UUID) error {
	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return fmt.Errorf("failed to load chapter: %w", err)
	}
	if chapter == nil {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	if chapter.AudioStatus == entities.AudioStatusComplete {
		return nil
	}
	if s.admission.Generating(userID, chapterID) {
		return nil
	}
	// a chapter another user is generating is left alone; its status poll
	// will flip to complete on its own
	if chapter.AudioStatus == entities.AudioStatusGenerating {
		return nil
	}

	novel, err := s.novelRepo.GetByID(ctx, chapter.NovelID)
	if err != nil {
		return fmt.Errorf("failed to load novel: %w", err)
	}
	if novel == nil {
		return fmt.Errorf("novel %s not found", chapter.NovelID)
	}

	token, fresh := s.admission.Register(userID, chapterID)
	if !fresh {
		return nil
	}

	if err := s.chapterRepo.UpdateAudioStatus(ctx, chapterID, entities.AudioStatusGenerating, s.AudioPath(chapterID)); err != nil {
		s.admission.Clear(userID, chapterID)
		return fmt.Errorf("failed to mark chapter generating: %w", err)
	}

	s.logger.Info("🚀 starting chapter audio generation",
		zap.String("chapter_id", chapterID.String()),
		zap.String("user_id", userID.String()),
		zap.String("title", chapter.Title))

	// detached from the request context: a disconnecting listener must not
	// stop generation
	go s.runTask(context.Background(), novel, chapter, userID, token)
	return nil
}

func (s *Service) runTask(ctx context.Context, novel *entities.Novel, chapter *entities.Chapter, userID uuid.UUID, token *CancelToken) {
	text, err := s.texts.ChapterText(ctx, novel, chapter)
	if err != nil {
		s.logger.Error("failed to read chapter text",
			zap.String("chapter_id", chapter.ID.String()),
			zap.Error(err))
		s.chapterRepo.UpdateAudioStatus(ctx, chapter.ID, entities.AudioStatusFailed, "")
		s.admission.Clear(userID, chapter.ID)
		return
	}

	segments := SplitContent(text, s.cfg.Audio.SegmentLength)
	if len(segments) == 0 {
		s.logger.Warn("chapter has no narratable text",
			zap.String("chapter_id", chapter.ID.String()))
		s.chapterRepo.UpdateAudioStatus(ctx, chapter.ID, entities.AudioStatusFailed, "")
		s.admission.Clear(userID, chapter.ID)
		return
	}

	s.pipeline.Run(ctx, &Task{
		Novel:     novel,
		Chapter:   chapter,
		UserID:    userID,
		Segments:  segments,
		Token:     token,
		AudioPath: s.AudioPath(chapter.ID),
	})
}

// Cancel requests cooperative cancellation of the user's task for a chapter
func (s *Service) Cancel(userID, chapterID uuid.UUID) bool {
	return s.admission.Cancel(userID, chapterID)
}

// Generating reports whether the user has an active task for the chapter
func (s *Service) Generating(userID, chapterID uuid.UUID) bool {
	return s.admission.Generating(userID, chapterID)
}

// Status returns the persisted audio status of a chapter
func (s *Service) Status(ctx context.Context, chapterID uuid.UUID) (entities.AudioStatus, error) {
	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return entities.AudioStatusIdle, fmt.Errorf("failed to load chapter: %w", err)
	}
	if chapter == nil {
		return entities.AudioStatusIdle, fmt.Errorf("chapter %s not found", chapterID)
	}
	return chapter.AudioStatus, nil
}

// AudioPath returns the output audio file path for a chapter
func (s *Service) AudioPath(chapterID uuid.UUID) string {
	return s.cfg.ChapterAudioPath(chapterID.String())
}

// NewReader builds a growing-file reader for a chapter, wired to the
// persisted status so it knows when the file stops growing for good
func (s *Service) NewReader(chapterID uuid.UUID) *GrowingFileReader {
	status := func(ctx context.Context) entities.AudioStatus {
		chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
		if err != nil || chapter == nil {
			return entities.AudioStatusIdle
		}
		return chapter.AudioStatus
	}
	return NewGrowingFileReader(
		s.AudioPath(chapterID),
		status,
		s.cfg.Audio.ReaderPoll,
		s.cfg.Audio.ReaderStallLimit,
		s.logger,
	)
}

// StartOffset resolves where a stream should begin: an explicit byte-range
// wins, then the recorded playback-session offset, then zero
func (s *Service) StartOffset(ctx context.Context, userID uuid.UUID, sessionID string, rangeStart *int64) int64 {
	if rangeStart != nil {
		return *rangeStart
	}
	if sessionID != "" {
		return s.sessions.Offset(ctx, userID, sessionID)
	}
	return 0
}

// RecordSent advances the playback-session byte counter after a stream ends
func (s *Service) RecordSent(ctx context.Context, userID uuid.UUID, sessionID string, n int64) {
	if sessionID == "" {
		return
	}
	s.sessions.AddBytes(ctx, userID, sessionID, n)
}

// SaveProgress persists the playback position in seconds for (user, chapter)
func (s *Service) SaveProgress(ctx context.Context, userID, novelID, chapterID uuid.UUID, position float64) error {
	return s.progressRepo.Upsert(ctx, &entities.PlaybackProgress{
		ID:        uuid.New(),
		UserID:    userID,
		NovelID:   novelID,
		ChapterID: chapterID,
		Position:  position,
	})
}

// GetProgress returns the saved playback position, or nil when none exists
func (s *Service) GetProgress(ctx context.Context, userID, chapterID uuid.UUID) (*entities.PlaybackProgress, error) {
	return s.progressRepo.Get(ctx, userID, chapterID)
}

// preheatNextChapter warms the script cache with the first segment of the
// chapter after the one that just finished scripting, so the next playback
// starts without an LLM round-trip
func (s *Service) preheatNextChapter(ctx context.Context, task *Task) {
	next, err := s.chapterRepo.NextAfter(ctx, task.Novel.ID, task.Chapter.StartPosition)
	if err != nil || next == nil {
		return
	}
	if s.scripts.Cached(task.Novel.ID.String(), next.ID.String(), 0) {
		return
	}

	text, err := s.texts.ChapterText(ctx, task.Novel, next)
	if err != nil {
		return
	}
	segments := SplitContent(text, s.cfg.Audio.SegmentLength)
	if len(segments) == 0 {
		return
	}

	if _, err := s.scripts.ScriptFor(ctx, task.Novel, next.ID.String(), 0, segments[0]); err != nil {
		s.logger.Debug("next-chapter script preheat failed",
			zap.String("chapter_id", next.ID.String()),
			zap.Error(err))
		return
	}
	s.logger.Info("🔥 preheated next chapter script",
		zap.String("novel_id", task.Novel.ID.String()),
		zap.String("chapter_id", next.ID.String()))
}
