package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/errors"
	audiodto "github.com/novelvoice-team/novelvoice/internal/adapter/dto/audio"
	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	"github.com/novelvoice-team/novelvoice/internal/usecase/audio"
	"github.com/novelvoice-team/novelvoice/pkg/validator"
)

// SessionHeader carries the opaque playback session id correlating byte
// offsets across reconnects
const SessionHeader = "X-Playback-Session"

// StreamRequestHeaders lists the request headers the streaming endpoints
// consume; CORS must allow them for browser playback
var StreamRequestHeaders = []string{"Range", SessionHeader}

// Audio handles audio streaming and generation control
type Audio struct {
	svc       *audio.Service
	validator *validator.CustomValidator
	logger    *zap.Logger
}

// NewAudio creates the audio handler
func NewAudio(svc *audio.Service, v *validator.CustomValidator, logger *zap.Logger) *Audio {
	return &Audio{svc: svc, validator: v, logger: logger}
}

// Stream serves the chapter audio as a progressive byte stream, starting
// generation when the chapter has none yet. The stream begins before
// generation finishes and follows the growing file.
func (h *Audio) Stream(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	rangeHeader := c.Request().Header.Get("Range")

	// content-type sniffing probe: answer with a placeholder frame without
	// touching the file or the pipeline
	if isProbeRange(rangeHeader) {
		c.Response().Header().Set("Content-Range", "bytes 0-1/*")
		c.Response().Header().Set("Accept-Ranges", "bytes")
		return c.Blob(http.StatusPartialContent, "audio/mpeg", audio.ProbePlaceholder)
	}

	if err := h.svc.EnsureGeneration(c.Request().Context(), userID, chapterID); err != nil {
		return handleError(c, h.logger, errors.ErrGenerationFailed(err))
	}

	sessionID := c.Request().Header.Get(SessionHeader)
	start := h.svc.StartOffset(c.Request().Context(), userID, sessionID, parseRangeStart(rangeHeader))

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "audio/mpeg")
	resp.Header().Set("Accept-Ranges", "bytes")
	resp.Header().Set("Content-Range", openContentRange(start))
	resp.WriteHeader(http.StatusPartialContent)

	reader := h.svc.NewReader(chapterID)
	sent, err := reader.Tail(c.Request().Context(), &flushWriter{resp}, start)

	// record progress even for aborted streams so a reconnect resumes
	h.svc.RecordSent(c.Request().Context(), userID, sessionID, sent)

	if err != nil && err != audio.ErrReaderStalled {
		h.logger.Debug("audio stream ended",
			zap.String("chapter_id", chapterID.String()),
			zap.Int64("bytes_sent", sent),
			zap.Error(err))
	}
	return nil
}

// flushWriter pushes every chunk to the client immediately so playback can
// start while the file is still growing
type flushWriter struct {
	resp *echo.Response
}

func (w *flushWriter) Write(p []byte) (int, error) {
	n, err := w.resp.Write(p)
	if err == nil {
		w.resp.Flush()
	}
	return n, err
}

// Cancel requests cooperative cancellation of the caller's generation task
func (h *Audio) Cancel(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	if !h.svc.Cancel(userID, chapterID) {
		return handleError(c, h.logger, errors.ErrGenerationNotActive(chapterID.String()))
	}
	return handleSuccess(c, h.logger, map[string]string{"status": "cancelling"})
}

// Status reports the chapter's audio status for client polling
func (h *Audio) Status(c echo.Context) error {
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	status, err := h.svc.Status(c.Request().Context(), chapterID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrNotFound("chapter"))
	}

	resp := audiodto.StatusResponse{ChapterID: chapterID, Status: status}
	if status == entities.AudioStatusComplete {
		resp.ArchiveURL = h.svc.ArchiveURL(c.Request().Context(), chapterID)
	}
	return handleSuccess(c, h.logger, resp)
}

// SaveProgress persists the playback position for the chapter
func (h *Audio) SaveProgress(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	var req audiodto.SaveProgressRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument(err.Error()))
	}

	if err := h.svc.SaveProgress(c.Request().Context(), userID, req.NovelID, chapterID, req.Position); err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}
	return handleSuccess(c, h.logger, audiodto.ProgressResponse{
		NovelID:   req.NovelID,
		ChapterID: chapterID,
		Position:  req.Position,
	})
}

// GetProgress returns the saved playback position for the chapter
func (h *Audio) GetProgress(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	progress, err := h.svc.GetProgress(c.Request().Context(), userID, chapterID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrDBQuery(err))
	}
	if progress == nil {
		return handleSuccess(c, h.logger, audiodto.ProgressResponse{ChapterID: chapterID})
	}
	return handleSuccess(c, h.logger, audiodto.ProgressResponse{
		NovelID:   progress.NovelID,
		ChapterID: progress.ChapterID,
		Position:  progress.Position,
	})
}
