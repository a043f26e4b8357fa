package novel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/domain/repositories"
)

// chapterHeading matches Chinese chapter headings on their own line,
// e.g. "第一章 起点" or "第12回".
var chapterHeading = regexp.MustCompile(`(?m)^[ \t]*(第[0-9一二三四五六七八九十百千万零两]+[章节卷回][^\n]*)$`)

// SourceStore mirrors novel source files to object storage so a wiped upload
// directory can be restored
type SourceStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, objectName string) error
}

// Service manages uploaded novels and serves per-chapter text slices by byte
// offset into the stored source file
type Service struct {
	novelRepo   repositories.NovelRepository
	chapterRepo repositories.ChapterRepository
	uploadDir   string
	store       SourceStore // optional
	logger      *zap.Logger
}

// NewService creates a novel service storing uploads under uploadDir
func NewService(novelRepo repositories.NovelRepository, chapterRepo repositories.ChapterRepository, uploadDir string, logger *zap.Logger) *Service {
	return &Service{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// SetSourceStore installs the object-storage mirror for novel source files
func (s *Service) SetSourceStore(store SourceStore) {
	s.store = store
}

func sourceObjectName(novelID uuid.UUID) string {
	return fmt.Sprintf("novels/%s.txt", novelID)
}

// chapterMark is one detected chapter boundary
type chapterMark struct {
	title string
	start int64
}

// detectChapters finds chapter headings and their byte offsets. Text before
// the first heading, or text with no headings at all, becomes a leading
// chapter.
func detectChapters(content string) []chapterMark {
	matches := chapterHeading.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return []chapterMark{{title: "全文", start: 0}}
	}

	var marks []chapterMark
	if matches[0][0] > 0 && strings.TrimSpace(content[:matches[0][0]]) != "" {
		marks = append(marks, chapterMark{title: "前言", start: 0})
	}
	for _, m := range matches {
		title := strings.TrimSpace(content[m[2]:m[3]])
		marks = append(marks, chapterMark{title: title, start: int64(m[0])})
	}
	return marks
}

// Upload stores a novel source file and creates its chapter records
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, title, author string, content []byte) (*entities.Novel, []entities.Chapter, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, nil, fmt.Errorf("novel content is empty")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	novel := entities.NewNovel(userID, title, author, "")
	novel.FilePath = filepath.Join(s.uploadDir, fmt.Sprintf("novel_%s.txt", novel.ID))

	if err := os.WriteFile(novel.FilePath, content, 0o644); err != nil {
		return nil, nil, fmt.Errorf("failed to store novel file: %w", err)
	}

	if err := s.novelRepo.Create(ctx, novel); err != nil {
		os.Remove(novel.FilePath)
		return nil, nil, fmt.Errorf("failed to create novel: %w", err)
	}

	if s.store != nil {
		name := sourceObjectName(novel.ID)
		if err := s.store.UploadFile(ctx, name, bytes.NewReader(content), int64(len(content)), "text/plain; charset=utf-8"); err != nil {
			s.logger.Warn("failed to mirror novel source to object storage",
				zap.String("object", name),
				zap.Error(err))
		}
	}

	marks := detectChapters(string(content))
	chapters := make([]entities.Chapter, 0, len(marks))
	for _, mark := range marks {
		chapter := entities.NewChapter(novel.ID, mark.title, mark.start)
		if err := s.chapterRepo.Create(ctx, chapter); err != nil {
			return nil, nil, fmt.Errorf("failed to create chapter %q: %w", mark.title, err)
		}
		chapters = append(chapters, *chapter)
	}

	s.logger.Info("📚 novel uploaded",
		zap.String("novel_id", novel.ID.String()),
		zap.String("title", title),
		zap.Int("chapters", len(chapters)))
	return novel, chapters, nil
}

// ChapterText reads one chapter's text from the novel source file, bounded by
// the next chapter's start offset
func (s *Service) ChapterText(ctx context.Context, novel *entities.Novel, chapter *entities.Chapter) (string, error) {
	data, err := os.ReadFile(novel.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read novel file: %w", err)
	}

	start := chapter.StartPosition
	if start < 0 || start > int64(len(data)) {
		return "", fmt.Errorf("chapter start %d out of range for %s", start, novel.FilePath)
	}

	end := int64(len(data))
	next, err := s.chapterRepo.NextAfter(ctx, novel.ID, chapter.StartPosition)
	if err != nil {
		return "", fmt.Errorf("failed to find next chapter: %w", err)
	}
	if next != nil && next.StartPosition <= end {
		end = next.StartPosition
	}

	return string(data[start:end]), nil
}

// Get returns a novel by id, or nil when it does not exist
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Novel, error) {
	return s.novelRepo.GetByID(ctx, id)
}

// ListByUser returns the user's novels
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Novel, error) {
	return s.novelRepo.ListByUser(ctx, userID)
}

// Chapters returns the chapters of a novel ordered by start position
func (s *Service) Chapters(ctx context.Context, novelID uuid.UUID) ([]entities.Chapter, error) {
	return s.chapterRepo.ListByNovel(ctx, novelID)
}

// GetChapter returns a chapter by id, or nil when it does not exist
func (s *Service) GetChapter(ctx context.Context, id uuid.UUID) (*entities.Chapter, error) {
	return s.chapterRepo.GetByID(ctx, id)
}

// UpdateLLMOverrides persists per-novel voice-script LLM settings
func (s *Service) UpdateLLMOverrides(ctx context.Context, novel *entities.Novel) error {
	return s.novelRepo.Update(ctx, novel)
}

// UpdateLastRead records the chapter the user most recently played
func (s *Service) UpdateLastRead(ctx context.Context, novel *entities.Novel, chapterID uuid.UUID) error {
	novel.LastReadChapterID = &chapterID
	return s.novelRepo.Update(ctx, novel)
}

// Delete removes a novel, its chapters and its stored source file
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	novel, err := s.novelRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load novel: %w", err)
	}
	if novel == nil {
		return nil
	}

	if err := s.chapterRepo.DeleteByNovel(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	if err := s.novelRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete novel: %w", err)
	}
	if novel.FilePath != "" {
		if err := os.Remove(novel.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove novel file",
				zap.String("path", novel.FilePath),
				zap.Error(err))
		}
	}
	if s.store != nil {
		name := sourceObjectName(id)
		if err := s.store.RemoveObject(ctx, name); err != nil {
			s.logger.Warn("failed to remove mirrored novel source",
				zap.String("object", name),
				zap.Error(err))
		}
	}
	return nil
}
