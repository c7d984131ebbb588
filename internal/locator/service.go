package locator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/cache"
	"github.com/any-hub/asset-locator/internal/logging"
)

// Options 汇总 Service 依赖。Lister 必填；Uploader/Identity 缺失时对应操作返回 ErrBackendUnavailable。
type Options struct {
	Cache    *cache.DirectoryCache
	Lister   backend.Lister
	Uploader backend.Uploader
	Identity backend.IdentityProvider
	Bundles  backend.BundleDetector
	Logger   *logrus.Logger

	BucketEndpointHost string
	AssetsHost         string

	// ListingTimeout/IdentityTimeout 为 0 时不额外限时。
	ListingTimeout  time.Duration
	IdentityTimeout time.Duration
}

// Service 是文件存在性检查器：先查缓存，未命中时每个目录最多列举一次。
type Service struct {
	cache    *cache.DirectoryCache
	lister   backend.Lister
	uploader backend.Uploader
	identity *backend.CachedIdentity
	resolver *backend.Resolver
	logger   *logrus.Logger

	listingTimeout time.Duration
	scans          singleflight.Group
}

// New 构建 Service，并把自身作为 Scanner 注入 Resolver 以支持 bundle 目录。
func New(opts Options) (*Service, error) {
	if opts.Lister == nil {
		return nil, errors.New("directory lister is required")
	}
	dirCache := opts.Cache
	if dirCache == nil {
		dirCache = cache.NewDirectoryCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Service{
		cache:          dirCache,
		lister:         opts.Lister,
		uploader:       opts.Uploader,
		logger:         logger,
		listingTimeout: opts.ListingTimeout,
	}
	var identity backend.IdentityProvider
	if opts.Identity != nil {
		s.identity = backend.NewCachedIdentity(opts.Identity, opts.IdentityTimeout)
		identity = s.identity
	}

	resolver, err := backend.NewResolver(backend.ResolverOptions{
		Cache:              dirCache,
		Identity:           identity,
		Bundles:            opts.Bundles,
		Scanner:            s,
		Logger:             logger,
		BucketEndpointHost: opts.BucketEndpointHost,
		AssetsHost:         opts.AssetsHost,
	})
	if err != nil {
		return nil, err
	}
	s.resolver = resolver
	return s, nil
}

// FileExists 判断文件是否存在：缓存命中直接返回，否则扫描目录后再查一次。
func (s *Service) FileExists(ctx context.Context, dirRef, filename string) (bool, error) {
	_, exists, err := s.Lookup(ctx, dirRef, filename)
	return exists, err
}

// Lookup 与 FileExists 相同，同时返回候选 URL；解析失败时 URL 为空。
func (s *Service) Lookup(ctx context.Context, dirRef, filename string) (string, bool, error) {
	spec, err := backend.Parse(dirRef)
	if err != nil {
		return "", false, err
	}
	uri, err := s.resolver.Resolve(ctx, dirRef, spec, filename)
	if err != nil {
		return "", false, err
	}

	fields := logging.LookupFields("file_exists", dirRef, filename, spec.Kind.String())
	if s.cache.Has(uri) {
		s.logger.WithFields(fields).Debug("cache hit")
		return uri, true, nil
	}
	if err := s.EnsureScanned(ctx, dirRef, spec); err != nil {
		return uri, false, err
	}
	// 列举结果可能把 cloud-proxy 目录改判为 bundle，需要重新计算 URL。
	if uri, err = s.resolver.Resolve(ctx, dirRef, spec, filename); err != nil {
		return "", false, err
	}
	exists := s.cache.Has(uri)
	s.logger.WithFields(fields).WithField("exists", exists).Debug("cache miss, directory scanned")
	return uri, exists, nil
}

// GetFileURL 返回文件的规范 URL，任何失败都包装为 *ResolutionError。
func (s *Service) GetFileURL(ctx context.Context, dirRef, filename string) (string, error) {
	uri, err := s.resolver.ResolveRef(ctx, dirRef, filename)
	if err != nil {
		return "", &ResolutionError{DirRef: dirRef, Filename: filename, Err: err}
	}
	return uri, nil
}

// DoesDirExist 列举一次目录且不写缓存；任何错误都视为不存在。
func (s *Service) DoesDirExist(ctx context.Context, dirRef string) bool {
	spec, err := backend.Parse(dirRef)
	if err != nil {
		return false
	}
	browseCtx, cancel := withTimeout(ctx, s.listingTimeout)
	defer cancel()
	if _, err := s.lister.Browse(browseCtx, spec); err != nil {
		s.logger.WithFields(logging.LookupFields("dir_exists", dirRef, "", spec.Kind.String())).
			WithError(err).Debug("directory not reachable")
		return false
	}
	return true
}

// EnsureDirectoryScanned 保证目录在当前会话内被成功列举过一次。
func (s *Service) EnsureDirectoryScanned(ctx context.Context, dirRef string) error {
	spec, err := backend.Parse(dirRef)
	if err != nil {
		return err
	}
	return s.EnsureScanned(ctx, dirRef, spec)
}

// EnsureScanned 实现 backend.Scanner。同一会话同一目录的并发扫描共享一次列举；
// 列举脱离首个调用方的取消信号，只受 ListingTimeout 约束。
func (s *Service) EnsureScanned(ctx context.Context, dirRef string, spec backend.DirectorySpec) error {
	if s.cache.IsChecked(dirRef) {
		s.logger.WithFields(logging.LookupFields("scan", dirRef, "", spec.Kind.String())).Debug("scan skipped, directory already checked")
		return nil
	}

	session := s.cache.Session()
	detached := context.WithoutCancel(ctx)
	ch := s.scans.DoChan(session+"\x00"+dirRef, func() (interface{}, error) {
		if s.cache.IsChecked(dirRef) {
			return nil, nil
		}
		return nil, s.scan(detached, session, dirRef, spec)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &ListingError{DirRef: dirRef, Err: ctx.Err()}
	}
}

func (s *Service) scan(ctx context.Context, session, dirRef string, spec backend.DirectorySpec) error {
	scanCtx, cancel := withTimeout(ctx, s.listingTimeout)
	defer cancel()

	listing, err := s.lister.Browse(scanCtx, spec)
	if err != nil {
		s.logger.WithFields(logging.LookupFields("scan", dirRef, "", spec.Kind.String())).
			WithError(err).Warn("directory listing failed")
		return &ListingError{DirRef: dirRef, Err: err}
	}

	var targets map[string]string
	if listing.IsBundle {
		targets = bundleTargets(listing.Files)
	}
	added, ok := s.cache.Merge(session, dirRef, listing.Files, listing.Dirs, targets)
	if !ok {
		s.logger.WithFields(logging.LookupFields("scan", dirRef, "", spec.Kind.String())).
			Warn("session reset during scan, listing discarded")
		return &ListingError{DirRef: dirRef, Err: ErrSessionReset}
	}
	s.logger.WithFields(logging.ScanFields(dirRef, spec.Kind.String(), len(listing.Files), len(listing.Dirs), listing.IsBundle)).
		WithField("added", added).Debug("directory scanned")
	return nil
}

// UploadFile 把 data 写入目录引用对应的后端；失败会记录日志后返回。
func (s *Service) UploadFile(ctx context.Context, data []byte, dirRef, filename string) (backend.UploadResult, error) {
	result, err := s.upload(ctx, data, dirRef, filename)
	if err != nil {
		s.logger.WithFields(logging.LookupFields("upload", dirRef, filename, "")).
			WithError(err).Error("upload failed")
		return backend.UploadResult{}, err
	}
	return result, nil
}

// UploadImage 上传文件并返回可访问的路径。
func (s *Service) UploadImage(ctx context.Context, data []byte, dirRef, filename string) (string, error) {
	result, err := s.UploadFile(ctx, data, dirRef, filename)
	if err != nil {
		return "", err
	}
	return result.Path, nil
}

func (s *Service) upload(ctx context.Context, data []byte, dirRef, filename string) (backend.UploadResult, error) {
	if err := validateFilename(filename); err != nil {
		return backend.UploadResult{}, err
	}
	spec, err := backend.Parse(dirRef)
	if err != nil {
		return backend.UploadResult{}, err
	}
	if s.uploader == nil {
		return backend.UploadResult{}, fmt.Errorf("%w: uploads disabled", backend.ErrBackendUnavailable)
	}

	file := backend.File{
		Name:        filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
	result, err := s.uploader.Upload(ctx, spec, file)
	if err != nil {
		return backend.UploadResult{}, err
	}
	if result.Path != "" {
		s.cache.RecordFiles([]string{result.Path})
	}
	s.logger.WithFields(logging.LookupFields("upload", dirRef, filename, spec.Kind.String())).
		WithFields(logrus.Fields{"path": result.Path, "content_type": file.ContentType, "size": len(data)}).
		Info("file uploaded")
	return result, nil
}

// CacheStats 返回当前会话的缓存规模。
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ResetSession 清空缓存并开启新会话；身份缓存一并丢弃。
func (s *Service) ResetSession() string {
	session := s.cache.Reset()
	if s.identity != nil {
		s.identity.Forget()
	}
	s.logger.WithFields(logrus.Fields{"action": "reset", "session": session}).Info("directory cache reset")
	return session
}

// bundleTargets 以 URL 最后一段（解码后）作为文件名构建 bundle 映射。
func bundleTargets(files []string) map[string]string {
	targets := make(map[string]string, len(files))
	for _, file := range files {
		name := lastSegment(file)
		if name == "" {
			continue
		}
		targets[name] = file
	}
	return targets
}

// lastSegment 取原始 URL 路径的最后一段并解码；'?' 与 '#' 按文件名字符处理。
func lastSegment(raw string) string {
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+len("://"):]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return ""
		}
		rest = rest[slash:]
	}
	rest = strings.TrimSuffix(rest, "/")
	name := rest[strings.LastIndex(rest, "/")+1:]
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

func validateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
