package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/config"
)

// Backend 同时支持列举与上传的后端适配器。
type Backend interface {
	backend.Lister
	backend.Uploader
}

// Router 按 DirectorySpec.Kind 分发到对应适配器，未启用的后端为 nil。
type Router struct {
	Local      Backend
	Bucket     Backend
	CloudProxy Backend
}

// NewRouter 根据配置创建已启用的适配器，并返回 cloud-proxy 客户端（未启用时为 nil）。
func NewRouter(cfg *config.Config, client *http.Client) (*Router, *CloudProxyClient, error) {
	router := &Router{}
	var proxy *CloudProxyClient

	if cfg.Local.Enabled {
		local, err := NewLocalStore(cfg.Local.Root)
		if err != nil {
			return nil, nil, err
		}
		router.Local = local
	}
	if cfg.Bucket.Enabled {
		bucket, err := NewBucketStore(cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		router.Bucket = bucket
	}
	if cfg.CloudProxy.Enabled {
		var err error
		proxy, err = NewCloudProxyClient(cfg.CloudProxy, client)
		if err != nil {
			return nil, nil, err
		}
		router.CloudProxy = proxy
	}
	return router, proxy, nil
}

// Browse 实现 backend.Lister。
func (r *Router) Browse(ctx context.Context, spec backend.DirectorySpec) (backend.Listing, error) {
	target, err := r.pick(spec.Kind)
	if err != nil {
		return backend.Listing{}, err
	}
	return target.Browse(ctx, spec)
}

// Upload 实现 backend.Uploader。
func (r *Router) Upload(ctx context.Context, spec backend.DirectorySpec, file backend.File) (backend.UploadResult, error) {
	target, err := r.pick(spec.Kind)
	if err != nil {
		return backend.UploadResult{}, err
	}
	return target.Upload(ctx, spec, file)
}

func (r *Router) pick(kind backend.Kind) (Backend, error) {
	var target Backend
	switch kind {
	case backend.KindLocal:
		target = r.Local
	case backend.KindBucket:
		target = r.Bucket
	case backend.KindCloudProxy:
		target = r.CloudProxy
	default:
		return nil, &backend.UnsupportedBackendError{Source: kind.String()}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", backend.ErrBackendUnavailable, kind)
	}
	return target, nil
}
