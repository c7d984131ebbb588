package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/any-hub/asset-locator/internal/backend"
)

// LocalStore 在服务端数据目录上列举与写入文件，返回的路径与 backend.LocalURL 一致。
type LocalStore struct {
	fs billy.Filesystem
}

// NewLocalStore 以 root 为根目录创建 LocalStore，root 不存在时自动创建。
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local root %q: %w", root, err)
	}
	return NewLocalStoreFS(osfs.New(root, osfs.WithBoundOS())), nil
}

// NewLocalStoreFS 使用任意 billy 文件系统（测试中为 memfs）。
func NewLocalStoreFS(fsys billy.Filesystem) *LocalStore {
	return &LocalStore{fs: fsys}
}

// Browse 列举目录的直接子项。
func (s *LocalStore) Browse(ctx context.Context, spec backend.DirectorySpec) (backend.Listing, error) {
	if err := ctx.Err(); err != nil {
		return backend.Listing{}, err
	}
	info, err := s.fs.Stat(spec.CurrentPath)
	if err != nil {
		return backend.Listing{}, translateFSError("stat", spec.CurrentPath, err)
	}
	if !info.IsDir() {
		return backend.Listing{}, fmt.Errorf("%w: %s is not a directory", backend.ErrNotFound, spec.CurrentPath)
	}

	entries, err := s.fs.ReadDir(spec.CurrentPath)
	if err != nil {
		return backend.Listing{}, translateFSError("readdir", spec.CurrentPath, err)
	}
	var listing backend.Listing
	for _, entry := range entries {
		uri := backend.LocalURL(spec.CurrentPath, entry.Name())
		if entry.IsDir() {
			listing.Dirs = append(listing.Dirs, uri)
			continue
		}
		listing.Files = append(listing.Files, uri)
	}
	return listing, nil
}

// Upload 写入文件，必要时创建父目录；同名文件会被覆盖。
func (s *LocalStore) Upload(ctx context.Context, spec backend.DirectorySpec, file backend.File) (backend.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return backend.UploadResult{}, err
	}
	if err := s.fs.MkdirAll(spec.CurrentPath, 0o755); err != nil {
		return backend.UploadResult{}, translateFSError("mkdirall", spec.CurrentPath, err)
	}
	target := s.fs.Join(spec.CurrentPath, file.Name)
	f, err := s.fs.Create(target)
	if err != nil {
		return backend.UploadResult{}, translateFSError("create", target, err)
	}
	if _, err := f.Write(file.Data); err != nil {
		_ = f.Close()
		return backend.UploadResult{}, translateFSError("write", target, err)
	}
	if err := f.Close(); err != nil {
		return backend.UploadResult{}, translateFSError("close", target, err)
	}
	return backend.UploadResult{Path: backend.LocalURL(spec.CurrentPath, file.Name)}, nil
}

func translateFSError(op, name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: local %s %q", backend.ErrNotFound, op, name)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: local %s %q", backend.ErrPermission, op, name)
	default:
		return fmt.Errorf("local: %s %q: %w", op, name, err)
	}
}
