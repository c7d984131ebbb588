package locator

import (
	"errors"
	"fmt"
)

// ErrInvalidFilename 表示上传文件名为空或包含路径分隔符。
var ErrInvalidFilename = errors.New("invalid filename")

// ErrSessionReset 表示列举进行中会话被重置，结果已丢弃；调用方可重试。
var ErrSessionReset = errors.New("session reset during scan")

// ListingError 表示目录列举失败（含超时），目录保持未扫描状态。
type ListingError struct {
	DirRef string
	Err    error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("list directory %q: %v", e.DirRef, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// ResolutionError 表示无法为目录引用与文件名计算 URL。
type ResolutionError struct {
	DirRef   string
	Filename string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q in directory %q: %v", e.Filename, e.DirRef, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
