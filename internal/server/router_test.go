package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/locator"
)

type fakeLocator struct {
	lookupURL    string
	lookupExists bool
	lookupErr    error
	urlErr       error
	dirExists    bool
	uploadErr    error

	gotDir  string
	gotName string
	gotData []byte
}

func (f *fakeLocator) Lookup(_ context.Context, dirRef, filename string) (string, bool, error) {
	f.gotDir, f.gotName = dirRef, filename
	return f.lookupURL, f.lookupExists, f.lookupErr
}

func (f *fakeLocator) GetFileURL(_ context.Context, dirRef, filename string) (string, error) {
	f.gotDir, f.gotName = dirRef, filename
	if f.urlErr != nil {
		return "", &locator.ResolutionError{DirRef: dirRef, Filename: filename, Err: f.urlErr}
	}
	return backend.LocalURL("images", filename), nil
}

func (f *fakeLocator) DoesDirExist(_ context.Context, dirRef string) bool {
	f.gotDir = dirRef
	return f.dirExists
}

func (f *fakeLocator) UploadFile(_ context.Context, data []byte, dirRef, filename string) (backend.UploadResult, error) {
	f.gotDir, f.gotName, f.gotData = dirRef, filename, data
	if f.uploadErr != nil {
		return backend.UploadResult{}, f.uploadErr
	}
	return backend.UploadResult{Path: "tokens/" + filename}, nil
}

func (f *fakeLocator) UploadImage(ctx context.Context, data []byte, dirRef, filename string) (string, error) {
	result, err := f.UploadFile(ctx, data, dirRef, filename)
	return result.Path, err
}

func newTestApp(t *testing.T, loc Locator) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app, err := NewApp(AppOptions{Logger: logger, Locator: loc, ListenPort: 5000})
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestNewAppValidatesOptions(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("missing logger should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logrus.New()}); err == nil {
		t.Fatalf("missing locator should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logrus.New(), Locator: &fakeLocator{}}); err == nil {
		t.Fatalf("invalid port should fail")
	}
}

func TestFileExistsEndpoint(t *testing.T) {
	loc := &fakeLocator{lookupURL: "images/a%20b.png", lookupExists: true}
	app := newTestApp(t, loc)

	req := httptest.NewRequest(http.MethodGet, "/api/files/exists?dir=%5Bdata%5D+images&name=a+b.png", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	body := decodeBody(t, resp)
	if body["exists"] != true || body["url"] != "images/a%20b.png" {
		t.Fatalf("unexpected body: %v", body)
	}
	if loc.gotDir != "[data] images" || loc.gotName != "a b.png" {
		t.Fatalf("unexpected params: %q %q", loc.gotDir, loc.gotName)
	}
}

func TestFileExistsErrorMapping(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"parse", &backend.ParseError{Ref: "[s3] x", Reason: "missing bucket name"}, fiber.StatusBadRequest, "invalid_directory"},
		{"unsupported", &backend.UnsupportedBackendError{Source: "dropbox"}, fiber.StatusUnprocessableEntity, "unsupported_backend"},
		{"not found", &locator.ListingError{DirRef: "x", Err: backend.ErrNotFound}, fiber.StatusNotFound, "directory_not_found"},
		{"permission", &locator.ListingError{DirRef: "x", Err: backend.ErrPermission}, fiber.StatusForbidden, "permission_denied"},
		{"timeout", &locator.ListingError{DirRef: "x", Err: context.DeadlineExceeded}, fiber.StatusBadGateway, "listing_failed"},
		{"session reset", &locator.ListingError{DirRef: "x", Err: locator.ErrSessionReset}, fiber.StatusServiceUnavailable, "session_reset"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &fakeLocator{lookupErr: tc.err})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/files/exists?dir=x&name=y", nil))
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if body := decodeBody(t, resp); body["error"] != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, body)
			}
		})
	}
}

func TestMissingParameters(t *testing.T) {
	app := newTestApp(t, &fakeLocator{})
	for _, target := range []string{"/api/files/exists?dir=x", "/api/files/url?name=y", "/api/dirs/exists"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.StatusCode)
		}
	}
}

func TestFileURLEndpoint(t *testing.T) {
	app := newTestApp(t, &fakeLocator{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/files/url?dir=images&name=a+b.png", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if body := decodeBody(t, resp); body["url"] != "images/a%20b.png" {
		t.Fatalf("unexpected body: %v", body)
	}

	app = newTestApp(t, &fakeLocator{urlErr: &locator.ListingError{DirRef: "x", Err: backend.ErrNotFound}})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/files/url?dir=x&name=y", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("resolution failures should be 502, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != "resolution_failed" {
		t.Fatalf("unexpected body: %v", body)
	}

	app = newTestApp(t, &fakeLocator{urlErr: &backend.UnsupportedBackendError{Source: "dropbox"}})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/files/url?dir=x&name=y", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("unsupported backend should be 422, got %d", resp.StatusCode)
	}
}

func TestDirExistsEndpoint(t *testing.T) {
	loc := &fakeLocator{dirExists: true}
	app := newTestApp(t, loc)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dirs/exists?dir=%5Bdata%5D+maps", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if body := decodeBody(t, resp); body["exists"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	if loc.gotDir != "[data] maps" {
		t.Fatalf("unexpected dir: %q", loc.gotDir)
	}
}

func newUploadRequest(t *testing.T, target string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadEndpoints(t *testing.T) {
	loc := &fakeLocator{}
	app := newTestApp(t, loc)

	resp, err := app.Test(newUploadRequest(t, "/api/files", map[string]string{"dir": "[data] tokens"}, "hero.png", []byte("png")))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["path"] != "tokens/hero.png" {
		t.Fatalf("unexpected body: %v", body)
	}
	if loc.gotDir != "[data] tokens" || loc.gotName != "hero.png" || string(loc.gotData) != "png" {
		t.Fatalf("unexpected upload args: %q %q %q", loc.gotDir, loc.gotName, loc.gotData)
	}

	resp, err = app.Test(newUploadRequest(t, "/api/images", map[string]string{"dir": "[data] tokens", "name": "renamed.png"}, "hero.png", []byte("png")))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if body := decodeBody(t, resp); body["url"] != "tokens/renamed.png" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUploadRejectsIncompleteForm(t *testing.T) {
	app := newTestApp(t, &fakeLocator{})
	resp, err := app.Test(newUploadRequest(t, "/api/files", map[string]string{"dir": "[data] tokens"}, "", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing file should be 400, got %d", resp.StatusCode)
	}
}

func TestUploadFailureMapping(t *testing.T) {
	app := newTestApp(t, &fakeLocator{uploadErr: errors.New("disk full")})
	resp, err := app.Test(newUploadRequest(t, "/api/files", map[string]string{"dir": "[data] tokens"}, "a.png", []byte("x")))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != "upload_failed" {
		t.Fatalf("unexpected body: %v", body)
	}

	app = newTestApp(t, &fakeLocator{uploadErr: locator.ErrInvalidFilename})
	resp, err = app.Test(newUploadRequest(t, "/api/files", map[string]string{"dir": "[data] tokens"}, "a.png", []byte("x")))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("invalid filename should be 400, got %d", resp.StatusCode)
	}
}
