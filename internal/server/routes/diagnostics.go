package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/cache"
	"github.com/any-hub/asset-locator/internal/version"
)

// Diagnostics 暴露缓存状态与会话重置能力，由 locator.Service 实现。
type Diagnostics interface {
	CacheStats() cache.Stats
	ResetSession() string
}

// RegisterDiagnosticsRoutes 暴露 /-/cache、/-/cache/reset 与 /-/version 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, diag Diagnostics, logger *logrus.Logger) {
	if app == nil || diag == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		return c.JSON(diag.CacheStats())
	})

	app.Post("/-/cache/reset", func(c fiber.Ctx) error {
		previous := diag.CacheStats()
		session := diag.ResetSession()
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"action":           "cache_reset",
				"previous_session": previous.Session,
				"previous_files":   previous.Files,
				"session":          session,
			}).Info("session reset via diagnostics")
		}
		return c.JSON(fiber.Map{"session": session, "previous": previous})
	})

	app.Get("/-/version", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": version.Version,
			"commit":  version.Commit,
			"full":    version.Full(),
		})
	})
}
