package handler

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/errors"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Info    string      `json:"info,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// handleSuccess writes a standardized success response
func handleSuccess(c echo.Context, logger *zap.Logger, data interface{}) error {
	resp := success{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(http.StatusOK, resp)
}

// handleError centralizes error handling and logging
func handleError(c echo.Context, logger *zap.Logger, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			logger.Error("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Any("app_code", appErr.Code),
				zap.Error(err),
			)
		}

		info := ""
		if appErr.Raw != nil {
			info = appErr.Raw.Error()
		}

		body := errs{
			Code:    appErr.Code,
			Message: appErr.Message,
			Info:    info,
		}
		return c.JSON(appErr.HTTPCode, body)
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := errs{
		Code:    int(errors.ErrorCode_INTERNAL),
		Message: "Internal server error",
		Info:    err.Error(),
	}
	return c.JSON(http.StatusInternalServerError, body)
}

// parseRangeStart extracts the start offset of a "bytes=N-" range header. It
// returns nil for absent or unparseable headers; suffix and multi-range forms
// are not served.
func parseRangeStart(header string) *int64 {
	if header == "" || !strings.HasPrefix(header, "bytes=") {
		return nil
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		return nil
	}
	parts := strings.SplitN(spec, "-", 2)
	if parts[0] == "" {
		return nil
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return nil
	}
	return &start
}

// isProbeRange reports whether the header is the throwaway [0,1] probe some
// players issue before the real stream
func isProbeRange(header string) bool {
	return strings.ReplaceAll(header, " ", "") == "bytes=0-1"
}

// openContentRange formats a Content-Range for a stream whose total length is
// not known yet (the file is still growing)
func openContentRange(start int64) string {
	return fmt.Sprintf("bytes %d-/*", start)
}
