package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/errors"
	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	"github.com/novelvoice-team/novelvoice/internal/usecase/audio"
	"github.com/novelvoice-team/novelvoice/internal/usecase/hls"
	"github.com/novelvoice-team/novelvoice/pkg/config"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// hlsFileName restricts segment delivery to the files the transcoder writes
var hlsFileName = regexp.MustCompile(`^(playlist\.m3u8|segment_\d{3}\.ts)$`)

// HLS serves chapter audio repackaged as an incrementally-growing playlist
type HLS struct {
	audioSvc   *audio.Service
	transcoder *hls.Transcoder
	cfg        *config.Config
	logger     *zap.Logger
}

// NewHLS creates the HLS handler
func NewHLS(audioSvc *audio.Service, transcoder *hls.Transcoder, cfg *config.Config, logger *zap.Logger) *HLS {
	return &HLS{audioSvc: audioSvc, transcoder: transcoder, cfg: cfg, logger: logger}
}

// Playlist returns the caller's playlist for a chapter, transcoding new
// segments first. A chapter with no audio yet has generation kicked off and
// the first slice is produced as soon as enough source bytes exist.
func (h *HLS) Playlist(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	chapterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid chapter id"))
	}

	extraOffset := 0.0
	if ts := c.QueryParam("ts"); ts != "" {
		v, err := strconv.ParseFloat(ts, 64)
		if err != nil || v < 0 {
			return handleError(c, h.logger, errors.ErrInvalidArgument("invalid ts parameter"))
		}
		extraOffset = v
	}

	status, err := h.audioSvc.Status(c.Request().Context(), chapterID)
	if err != nil {
		return handleError(c, h.logger, errors.ErrNotFound("chapter"))
	}

	ctx := c.Request().Context()
	sourcePath := h.audioSvc.AudioPath(chapterID)
	user := userID.String()

	switch status {
	case entities.AudioStatusComplete:
		cache, err := h.transcoder.Status(user)
		if err != nil {
			return handleError(c, h.logger, errors.ErrInternal(err))
		}
		if !cache.Exists {
			// nothing transcoded yet and nothing still growing; the raw
			// file plays fine as-is
			return c.File(sourcePath)
		}
		playlist, err := h.transcoder.Convert(ctx, user, sourcePath, extraOffset, false)
		if err != nil {
			return handleError(c, h.logger, errors.ErrHLSConversionRetry(err))
		}
		return h.servePlaylist(c, playlist)

	case entities.AudioStatusGenerating:
		playlist, err := h.transcoder.Convert(ctx, user, sourcePath, extraOffset, true)
		if err != nil {
			return handleError(c, h.logger, errors.ErrHLSConversionRetry(err))
		}
		return h.servePlaylist(c, playlist)

	default:
		// idle or failed: kick generation and wait for enough source audio
		// to cut the first segments from
		if err := h.audioSvc.EnsureGeneration(ctx, userID, chapterID); err != nil {
			return handleError(c, h.logger, errors.ErrGenerationFailed(err))
		}
		if !h.waitForSource(ctx, sourcePath) {
			return handleError(c, h.logger, errors.ErrHLSTimeout())
		}
		playlist, err := h.transcoder.Convert(ctx, user, sourcePath, extraOffset, true)
		if err != nil {
			return handleError(c, h.logger, errors.ErrHLSConversionRetry(err))
		}
		return h.servePlaylist(c, playlist)
	}
}

// waitForSource polls until the source audio file has enough bytes for a
// first transcoder slice, bounded by the configured startup wait
func (h *HLS) waitForSource(ctx context.Context, sourcePath string) bool {
	deadline := time.Now().Add(h.cfg.HLS.StartupWait)
	for time.Now().Before(deadline) {
		if info, err := os.Stat(sourcePath); err == nil && info.Size() >= h.cfg.HLS.MinStartBytes {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}

func (h *HLS) servePlaylist(c echo.Context, path string) error {
	c.Response().Header().Set(echo.HeaderContentType, playlistContentType)
	return c.File(path)
}

// Segment serves one transcoded file from a user's working directory. Users
// can only fetch their own files.
func (h *HLS) Segment(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}
	if c.Param("user") != userID.String() {
		return handleError(c, h.logger, errors.ErrPermissionDenied("read hls segment"))
	}

	name := c.Param("file")
	if !hlsFileName.MatchString(name) {
		return handleError(c, h.logger, errors.ErrInvalidArgument("invalid segment name"))
	}

	path := filepath.Join(h.transcoder.UserDir(userID.String()), name)
	if _, err := os.Stat(path); err != nil {
		return handleError(c, h.logger, errors.ErrNotFound(fmt.Sprintf("segment %s", name)))
	}
	if name == hls.PlaylistName {
		return h.servePlaylist(c, path)
	}
	return c.File(path)
}

// Status reports the caller's playlist state
func (h *HLS) Status(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}

	status, err := h.transcoder.Status(userID.String())
	if err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}
	return handleSuccess(c, h.logger, status)
}

// Cleanup removes the caller's playlist cache so the next request starts a
// fresh playlist
func (h *HLS) Cleanup(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return handleError(c, h.logger, errors.ErrUnauthenticated())
	}

	if err := h.transcoder.Cleanup(userID.String()); err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}
	return handleSuccess(c, h.logger, map[string]string{"status": "cleaned"})
}
