package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/locator"
)

var errMissingDir = errors.New("missing dir field")

// classifyError 把定位错误映射为 HTTP 状态与错误码；无法归类时使用 fallback。
func classifyError(err error, fallbackStatus int, fallbackCode string) (int, string) {
	var (
		parseErr    *backend.ParseError
		unsupported *backend.UnsupportedBackendError
		listingErr  *locator.ListingError
	)
	switch {
	case errors.As(err, &parseErr):
		return fiber.StatusBadRequest, "invalid_directory"
	case errors.As(err, &unsupported):
		return fiber.StatusUnprocessableEntity, "unsupported_backend"
	case errors.Is(err, locator.ErrInvalidFilename):
		return fiber.StatusBadRequest, "invalid_filename"
	case errors.Is(err, backend.ErrNotFound):
		return fiber.StatusNotFound, "directory_not_found"
	case errors.Is(err, backend.ErrPermission):
		return fiber.StatusForbidden, "permission_denied"
	case errors.Is(err, backend.ErrBackendUnavailable):
		return fiber.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, locator.ErrSessionReset):
		return fiber.StatusServiceUnavailable, "session_reset"
	case errors.As(err, &listingErr):
		return fiber.StatusBadGateway, "listing_failed"
	}
	return fallbackStatus, fallbackCode
}

// classifyResolution 用于 URL 查询：除目录引用本身的错误外一律视为解析失败。
func classifyResolution(err error) (int, string) {
	status, code := classifyError(err, fiber.StatusBadGateway, "resolution_failed")
	switch code {
	case "invalid_directory", "unsupported_backend":
		return status, code
	}
	return fiber.StatusBadGateway, "resolution_failed"
}

func (h *handlers) renderError(c fiber.Ctx, action string, err error, status int, code string) error {
	entry := h.logger.WithFields(logrus.Fields{
		"action":     action,
		"request_id": RequestID(c),
		"status":     status,
		"error_code": code,
		"dir_ref":    c.Query("dir", c.FormValue("dir")),
	}).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": code})
}
