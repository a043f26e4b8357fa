package handler

import (
	"io"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/errors"
	noveldto "github.com/novelvoice-team/novelvoice/internal/adapter/dto/novel"
	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	novelusecase "github.com/novelvoice-team/novelvoice/internal/usecase/novel"
	"github.com/novelvoice-team/novelvoice/pkg/validator"
)

// maxUploadBytes bounds a single novel upload (64 MiB of text)
const maxUploadBytes = 64 << 20

// Novel handles novel upload and chapter browsing
type Novel struct {
	svc       *novelusecase.Service
	validator *validator.CustomValidator
	logger    *zap.Logger
}

// NewNovel creates the novel handler
func NewNovel(svc *novelusecase.Service, v *validator.CustomValidator, logger *zap.Logger) *Novel {
	return &Novel{svc: svc, validator: v, logger: logger}
}

// Upload stores a novel text file and splits it into chapters
func (h *Novel) Upload(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}

	var req noveldto.UploadNovelRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("missing novel file"))
	}
	if fileHeader.Size > maxUploadBytes {
		return handleError(c, h.logger, errors.ErrInvalidArgument("novel file too large"))
	}
	if req.Title == "" {
		req.Title = fileHeader.Filename
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument(err.Error()))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return handleError(c, h.logger, errors.ErrUploadFailed(err))
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return handleError(c, h.logger, errors.ErrUploadFailed(err))
	}

	novel, chapters, err := h.svc.Upload(c.Request().Context(), userID, req.Title, req.Author, content)
	if err != nil {
		return handleError(c, h.logger, errors.ErrUploadFailed(err))
	}

	resp := noveldto.FromNovel(novel)
	resp.ChapterCount = len(chapters)
	return handleSuccess(c, h.logger, resp)
}

// List returns the caller's novels
func (h *Novel) List(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}

	novels, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}

	resp := make([]noveldto.NovelResponse, 0, len(novels))
	for i := range novels {
		resp = append(resp, noveldto.FromNovel(&novels[i]))
	}
	return handleSuccess(c, h.logger, resp)
}

// Chapters lists the chapters of a novel
func (h *Novel) Chapters(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	novelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid novel id"))
	}

	novel, err := h.loadOwnNovel(c, userID, novelID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	chapters, err := h.svc.Chapters(c.Request().Context(), novel.ID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}

	resp := make([]noveldto.ChapterResponse, 0, len(chapters))
	for i := range chapters {
		resp = append(resp, noveldto.FromChapter(&chapters[i]))
	}
	return handleSuccess(c, h.logger, resp)
}

// ChapterContent returns one chapter's raw text
func (h *Novel) ChapterContent(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	chapter, err := h.svc.GetChapter(c.Request().Context(), chapterID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}
	if chapter == nil {
		return handleError(c, h.logger, errors.ErrNotFound("chapter"))
	}

	novel, err := h.loadOwnNovel(c, userID, chapter.NovelID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	text, err := h.svc.ChapterText(c.Request().Context(), novel, chapter)
	if err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}

	// reading a chapter also moves the novel's bookmark
	if err := h.svc.UpdateLastRead(c.Request().Context(), novel, chapter.ID); err != nil {
		h.logger.Warn("failed to update last read chapter",
			zap.String("novel_id", novel.ID.String()),
			zap.Error(err))
	}

	return handleSuccess(c, h.logger, map[string]interface{}{
		"chapter": noveldto.FromChapter(chapter),
		"content": text,
	})
}

// UpdateLLM sets per-novel voice-script LLM overrides
func (h *Novel) UpdateLLM(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	novelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid novel id"))
	}

	var req noveldto.UpdateLLMRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument(err.Error()))
	}

	novel, err := h.loadOwnNovel(c, userID, novelID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	novel.LLMAPIKey = req.APIKey
	novel.LLMBaseURL = req.BaseURL
	novel.LLMModel = req.Model
	if err := h.svc.UpdateLLMOverrides(c.Request().Context(), novel); err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}
	return handleSuccess(c, h.logger, noveldto.FromNovel(novel))
}

// Delete removes a novel, its chapters and its stored file
func (h *Novel) Delete(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	novelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid novel id"))
	}

	if _, err := h.loadOwnNovel(c, userID, novelID); err != nil {
		return handleError(c, h.logger, err)
	}

	if err := h.svc.Delete(c.Request().Context(), novelID); err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}
	return handleSuccess(c, h.logger, map[string]string{"status": "deleted"})
}

// loadOwnNovel fetches a novel and checks it belongs to the caller
func (h *Novel) loadOwnNovel(c echo.Context, userID, novelID uuid.UUID) (*entities.Novel, error) {
	novel, err := h.svc.Get(c.Request().Context(), novelID)
	if err != nil {
		return nil, errors.ErrDBQuery(err)
	}
	if novel == nil {
		return nil, errors.ErrNotFound("novel")
	}
	if novel.UserID != userID {
		return nil, errors.ErrPermissionDenied("access novel")
	}
	return novel, nil
}
