package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/backend"
)

// Locator 描述 HTTP 层依赖的定位服务，测试中可注入假实现。
type Locator interface {
	Lookup(ctx context.Context, dirRef, filename string) (string, bool, error)
	GetFileURL(ctx context.Context, dirRef, filename string) (string, error)
	DoesDirExist(ctx context.Context, dirRef string) bool
	UploadFile(ctx context.Context, data []byte, dirRef, filename string) (backend.UploadResult, error)
	UploadImage(ctx context.Context, data []byte, dirRef, filename string) (string, error)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Locator    Locator
	ListenPort int
	// BodyLimit 限制上传请求体大小，<= 0 时使用 32MB。
	BodyLimit int
}

const (
	contextKeyRequestID = "_assetlocator_request_id"
	defaultBodyLimit    = 32 << 20
)

// NewApp builds a Fiber application with request-id middleware, panic recovery
// and the /api routes.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Locator == nil {
		return nil, errors.New("locator is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}
	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		BodyLimit:     bodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	h := &handlers{locator: opts.Locator, logger: opts.Logger}
	api := app.Group("/api")
	api.Get("/files/exists", h.fileExists)
	api.Get("/files/url", h.fileURL)
	api.Get("/dirs/exists", h.dirExists)
	api.Post("/files", h.uploadFile)
	api.Post("/images", h.uploadImage)

	return app, nil
}

// requestContextMiddleware 为每个请求生成请求 ID 并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
