package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/config"
)

const maxErrorBody = 4 << 10

// CloudProxyClient 访问云端资源代理的 JSON API，同时实现 Lister、Uploader 与 IdentityProvider。
// 所有请求共用一个令牌桶限速器。
type CloudProxyClient struct {
	base    string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type browseResponse struct {
	Files  []string `json:"files"`
	Dirs   []string `json:"dirs"`
	Bundle bool     `json:"bundle"`
}

type statusResponse struct {
	User string `json:"user"`
}

type uploadResponse struct {
	Path string `json:"path"`
}

// NewCloudProxyClient 根据配置构建客户端；client 为空时使用共享 Transport。
func NewCloudProxyClient(cfg config.CloudProxyConfig, client *http.Client) (*CloudProxyClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		return nil, errors.New("cloud proxy api base is required")
	}
	if client == nil {
		client = NewHTTPClient(cfg.RequestTimeout.DurationValue())
	}
	return &CloudProxyClient{
		base:    base,
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: newLimiter(cfg.QPS),
	}, nil
}

// newLimiter 按 QPS 构建令牌桶，qps <= 0 表示不限速。
func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(math.Ceil(qps))
	return rate.NewLimiter(rate.Limit(qps), burst)
}

// Browse 调用 GET /api/assets/browse?path=，文件 URL 原样返回。
func (c *CloudProxyClient) Browse(ctx context.Context, spec backend.DirectorySpec) (backend.Listing, error) {
	query := url.Values{"path": {spec.CurrentPath}}
	var payload browseResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/assets/browse?"+query.Encode(), nil, "", &payload); err != nil {
		return backend.Listing{}, err
	}
	return backend.Listing{Files: payload.Files, Dirs: payload.Dirs, IsBundle: payload.Bundle}, nil
}

// Identity 调用 GET /api/status 获取当前用户。
func (c *CloudProxyClient) Identity(ctx context.Context) (backend.Identity, error) {
	var payload statusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, "", &payload); err != nil {
		return backend.Identity{}, err
	}
	return backend.Identity{User: payload.User}, nil
}

// Upload 以 multipart 表单调用 POST /api/assets/upload（字段 path 与 file）。
func (c *CloudProxyClient) Upload(ctx context.Context, spec backend.DirectorySpec, file backend.File) (backend.UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("path", spec.CurrentPath+"/"+file.Name); err != nil {
		return backend.UploadResult{}, err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return backend.UploadResult{}, err
	}
	if _, err := part.Write(file.Data); err != nil {
		return backend.UploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return backend.UploadResult{}, err
	}

	var payload uploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/assets/upload", &body, writer.FormDataContentType(), &payload); err != nil {
		return backend.UploadResult{}, err
	}
	if payload.Path == "" {
		return backend.UploadResult{}, errors.New("cloud proxy: upload response missing path")
	}
	return backend.UploadResult{Path: payload.Path}, nil
}

func (c *CloudProxyClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, body)
	if err != nil {
		return fmt.Errorf("cloud proxy: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("cloud proxy: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cloud proxy: decode %s: %w", endpoint, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(snippet))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: cloud proxy: %s", backend.ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: cloud proxy: %s", backend.ErrPermission, detail)
	}
	return fmt.Errorf("cloud proxy: unexpected status %d: %s", resp.StatusCode, detail)
}
