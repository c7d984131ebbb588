package server

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

type handlers struct {
	locator Locator
	logger  *logrus.Logger
}

func (h *handlers) fileExists(c fiber.Ctx) error {
	dir, name, ok := lookupParams(c)
	if !ok {
		return renderMissingParam(c)
	}
	uri, exists, err := h.locator.Lookup(requestContext(c), dir, name)
	if err != nil {
		status, code := classifyError(err, fiber.StatusBadGateway, "listing_failed")
		return h.renderError(c, "file_exists", err, status, code)
	}
	return c.JSON(fiber.Map{"exists": exists, "url": uri})
}

func (h *handlers) fileURL(c fiber.Ctx) error {
	dir, name, ok := lookupParams(c)
	if !ok {
		return renderMissingParam(c)
	}
	uri, err := h.locator.GetFileURL(requestContext(c), dir, name)
	if err != nil {
		status, code := classifyResolution(err)
		return h.renderError(c, "file_url", err, status, code)
	}
	return c.JSON(fiber.Map{"url": uri})
}

func (h *handlers) dirExists(c fiber.Ctx) error {
	dir := strings.TrimSpace(c.Query("dir"))
	if dir == "" {
		return renderMissingParam(c)
	}
	return c.JSON(fiber.Map{"exists": h.locator.DoesDirExist(requestContext(c), dir)})
}

func (h *handlers) uploadFile(c fiber.Ctx) error {
	dir, name, data, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_upload"})
	}
	result, err := h.locator.UploadFile(requestContext(c), data, dir, name)
	if err != nil {
		status, code := classifyError(err, fiber.StatusBadGateway, "upload_failed")
		return h.renderError(c, "upload", err, status, code)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"path": result.Path})
}

func (h *handlers) uploadImage(c fiber.Ctx) error {
	dir, name, data, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_upload"})
	}
	uri, err := h.locator.UploadImage(requestContext(c), data, dir, name)
	if err != nil {
		status, code := classifyError(err, fiber.StatusBadGateway, "upload_failed")
		return h.renderError(c, "upload", err, status, code)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": uri})
}

func lookupParams(c fiber.Ctx) (string, string, bool) {
	dir := strings.TrimSpace(c.Query("dir"))
	name := c.Query("name")
	return dir, name, dir != "" && name != ""
}

// readUpload 解析 multipart 表单：dir 必填，name 缺省时取上传文件名。
func readUpload(c fiber.Ctx) (string, string, []byte, error) {
	dir := strings.TrimSpace(c.FormValue("dir"))
	if dir == "" {
		return "", "", nil, errMissingDir
	}
	header, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, err
	}
	name := c.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	file, err := header.Open()
	if err != nil {
		return "", "", nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", nil, err
	}
	return dir, name, data, nil
}

func renderMissingParam(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_parameter"})
}
