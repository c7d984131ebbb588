package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/any-hub/asset-locator/internal/backend"
	"github.com/any-hub/asset-locator/internal/config"
)

// objectClient 是 BucketStore 用到的 minio 客户端子集，便于测试替换。
type objectClient interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// BucketStore 列举与写入 S3 兼容对象存储，文件以虚拟主机风格 URL 表示。
type BucketStore struct {
	client objectClient
	host   string
}

// NewBucketStore 根据配置创建 minio 客户端；未配置密钥时以匿名方式访问。
func NewBucketStore(cfg config.BucketConfig) (*BucketStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("bucket endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket client: %w", err)
	}
	return newBucketStore(client, cfg.EndpointHost()), nil
}

func newBucketStore(client objectClient, host string) *BucketStore {
	return &BucketStore{client: client, host: host}
}

// EndpointHost 返回拼接对象 URL 时使用的主机名。
func (s *BucketStore) EndpointHost() string {
	return s.host
}

// Browse 非递归列举 currentPath/ 前缀下的对象，公共前缀视为子目录；空路径列举 bucket 根。
func (s *BucketStore) Browse(ctx context.Context, spec backend.DirectorySpec) (backend.Listing, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var prefix string
	if spec.CurrentPath != "" {
		prefix = spec.CurrentPath + "/"
	}
	var listing backend.Listing
	for obj := range s.client.ListObjects(ctx, spec.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return backend.Listing{}, translateBucketError(spec.Bucket, obj.Err)
		}
		if obj.Key == prefix {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			listing.Dirs = append(listing.Dirs, backend.BucketURL(spec.Bucket, s.host, strings.TrimSuffix(obj.Key, "/")))
			continue
		}
		listing.Files = append(listing.Files, backend.BucketURL(spec.Bucket, s.host, obj.Key))
	}
	return listing, nil
}

// Upload 通过 PutObject 写入对象，返回对象 URL。
func (s *BucketStore) Upload(ctx context.Context, spec backend.DirectorySpec, file backend.File) (backend.UploadResult, error) {
	key := path.Join(spec.CurrentPath, file.Name)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, spec.Bucket, key, bytes.NewReader(file.Data), int64(len(file.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return backend.UploadResult{}, translateBucketError(spec.Bucket, err)
	}
	return backend.UploadResult{Path: backend.BucketURL(spec.Bucket, s.host, key)}, nil
}

func translateBucketError(bucket string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey":
		return fmt.Errorf("%w: bucket %q: %s", backend.ErrNotFound, bucket, resp.Message)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: bucket %q: %s", backend.ErrPermission, bucket, resp.Message)
	}
	return fmt.Errorf("bucket %q: %w", bucket, err)
}
