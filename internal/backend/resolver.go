package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/asset-locator/internal/cache"
)

// ResolverOptions 汇总 Resolver 的依赖，除 Cache 外均可为空（对应后端将无法解析）。
type ResolverOptions struct {
	Cache    *cache.DirectoryCache
	Identity IdentityProvider
	Bundles  BundleDetector
	Scanner  Scanner
	Logger   *logrus.Logger

	// BucketEndpointHost 是拼接 bucket URL 时使用的主机名，例如 s3.example.com。
	BucketEndpointHost string
	// AssetsHost 是 cloud-proxy 资源域名，例如 assets.example.com。
	AssetsHost string
}

// Resolver 按后端类型计算文件 URL；cloud-proxy 的身份前缀与 bundle 映射写入 DirectoryCache。
type Resolver struct {
	cache      *cache.DirectoryCache
	identity   IdentityProvider
	bundles    BundleDetector
	scanner    Scanner
	logger     *logrus.Logger
	bucketHost string
	assetsHost string
}

// NewResolver 校验必需依赖并构建 Resolver。
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Cache == nil {
		return nil, errors.New("directory cache is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bundles := opts.Bundles
	if bundles == nil {
		bundles = NoBundles{}
	}
	return &Resolver{
		cache:      opts.Cache,
		identity:   opts.Identity,
		bundles:    bundles,
		scanner:    opts.Scanner,
		logger:     logger,
		bucketHost: strings.TrimSpace(opts.BucketEndpointHost),
		assetsHost: strings.Trim(strings.TrimSpace(opts.AssetsHost), "/"),
	}, nil
}

// ResolveRef 解析目录引用后计算文件 URL。
func (r *Resolver) ResolveRef(ctx context.Context, dirRef, filename string) (string, error) {
	spec, err := Parse(dirRef)
	if err != nil {
		return "", err
	}
	return r.Resolve(ctx, dirRef, spec, filename)
}

// Resolve 计算 spec 下 filename 的规范 URL。本地与 bucket 不产生任何 I/O；
// cloud-proxy 可能触发一次身份查询或一次目录列举，结果按 dirRef 缓存。
func (r *Resolver) Resolve(ctx context.Context, dirRef string, spec DirectorySpec, filename string) (string, error) {
	switch spec.Kind {
	case KindLocal:
		return LocalURL(spec.CurrentPath, filename), nil
	case KindBucket:
		if r.bucketHost == "" {
			return "", fmt.Errorf("%w: bucket endpoint host is empty", ErrBackendUnavailable)
		}
		return BucketURL(spec.Bucket, r.bucketHost, joinPath(spec.CurrentPath, filename)), nil
	case KindCloudProxy:
		return r.resolveCloudProxy(ctx, dirRef, spec, filename)
	default:
		return "", &UnsupportedBackendError{Ref: dirRef, Source: spec.Kind.String()}
	}
}

func (r *Resolver) resolveCloudProxy(ctx context.Context, dirRef string, spec DirectorySpec, filename string) (string, error) {
	if r.assetsHost == "" {
		return "", fmt.Errorf("%w: cloud proxy assets host is empty", ErrBackendUnavailable)
	}
	if uri, ok := r.bundleURL(dirRef, spec, filename); ok {
		return uri, nil
	}
	if prefix, ok := r.cache.URLPrefix(dirRef); ok {
		return EncodeURI(prefix + "/" + filename), nil
	}

	bundle, err := r.bundles.IsBundle(ctx, spec)
	if err != nil {
		return "", fmt.Errorf("detect bundle: %w", err)
	}
	if bundle {
		if r.scanner == nil {
			return "", errors.New("bundle directories require a scanner")
		}
		if err := r.scanner.EnsureScanned(ctx, dirRef, spec); err != nil {
			return "", err
		}
		if uri, ok := r.bundleURL(dirRef, spec, filename); ok {
			return uri, nil
		}
		r.logger.WithFields(logrus.Fields{
			"action":  "resolve",
			"dir_ref": dirRef,
		}).Debug("bundle listing returned no file map, falling back to identity prefix")
	}

	prefix, err := r.identityPrefix(ctx, dirRef, spec)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		// 身份查询期间该目录已被识别为 bundle。
		if uri, ok := r.bundleURL(dirRef, spec, filename); ok {
			return uri, nil
		}
	}
	return EncodeURI(prefix + "/" + filename), nil
}

// bundleURL 在目录已有 bundle 映射时返回映射值或模板兜底 URL。
func (r *Resolver) bundleURL(dirRef string, spec DirectorySpec, filename string) (string, bool) {
	uri, hasMap, found := r.cache.TargetFile(dirRef, filename)
	if !hasMap {
		return "", false
	}
	if found {
		return uri, true
	}
	r.logger.WithFields(logrus.Fields{
		"action":   "resolve",
		"dir_ref":  dirRef,
		"filename": filename,
	}).Debug("file missing from bundle map, guessing templated url")
	return BundleFallbackURL(r.assetsHost, spec.CurrentPath, filename), true
}

// identityPrefix 通过一次身份查询得到 https://<assets>/<user>/<path> 并写入缓存；
// 返回空字符串表示该目录已改为 bundle 映射。
func (r *Resolver) identityPrefix(ctx context.Context, dirRef string, spec DirectorySpec) (string, error) {
	if r.identity == nil {
		return "", fmt.Errorf("%w: identity provider missing", ErrBackendUnavailable)
	}
	id, err := r.identity.Identity(ctx)
	if err != nil {
		return "", fmt.Errorf("identity lookup: %w", err)
	}
	if id.User == "" {
		return "", errors.New("identity lookup returned an empty user")
	}

	prefix := fmt.Sprintf("https://%s/%s/%s", r.assetsHost, id.User, spec.CurrentPath)
	if !r.cache.SetURLPrefix(dirRef, prefix) {
		return "", nil
	}
	stored, _ := r.cache.URLPrefix(dirRef)
	r.logger.WithFields(logrus.Fields{
		"action":  "resolve",
		"dir_ref": dirRef,
		"prefix":  stored,
	}).Debug("cloud proxy prefix cached")
	return stored, nil
}
