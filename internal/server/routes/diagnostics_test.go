package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/asset-locator/internal/cache"
	"github.com/any-hub/asset-locator/internal/version"
)

type cacheDiagnostics struct {
	cache *cache.DirectoryCache
}

func (d cacheDiagnostics) CacheStats() cache.Stats { return d.cache.Stats() }
func (d cacheDiagnostics) ResetSession() string    { return d.cache.Reset() }

func TestCacheStatsAndReset(t *testing.T) {
	dirCache := cache.NewDirectoryCache()
	dirCache.RecordFiles([]string{"images/a.png", "images/b.png"})
	dirCache.MarkChecked("[data] images")

	app := fiber.New()
	RegisterDiagnosticsRoutes(app, cacheDiagnostics{cache: dirCache}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/-/cache", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var stats cache.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Files != 2 || stats.Checked != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	first := stats.Session

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/-/cache/reset", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var payload struct {
		Session  string      `json:"session"`
		Previous cache.Stats `json:"previous"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode reset: %v", err)
	}
	if payload.Session == "" || payload.Session == first || payload.Previous.Session != first {
		t.Fatalf("unexpected reset payload: %+v", payload)
	}
	if dirCache.Stats().Files != 0 {
		t.Fatalf("reset should empty the cache")
	}
}

func TestVersionRoute(t *testing.T) {
	app := fiber.New()
	RegisterDiagnosticsRoutes(app, cacheDiagnostics{cache: cache.NewDirectoryCache()}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/-/version", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if payload["full"] != version.Full() {
		t.Fatalf("unexpected version payload: %v", payload)
	}
}
