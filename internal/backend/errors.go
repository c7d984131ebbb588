package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 表示目录或 bucket 不存在。
	ErrNotFound = errors.New("directory not found")
	// ErrPermission 表示后端拒绝访问。
	ErrPermission = errors.New("permission denied")
	// ErrBackendUnavailable 表示目录引用指向的后端未在配置中启用。
	ErrBackendUnavailable = errors.New("backend not configured")
)

// ParseError 描述格式错误的目录引用。
type ParseError struct {
	Ref    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid directory reference %q: %s", e.Ref, e.Reason)
}

// UnsupportedBackendError 表示来源名或后端类型无法识别。
type UnsupportedBackendError struct {
	Ref    string
	Source string
}

func (e *UnsupportedBackendError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("unsupported backend %q", e.Source)
	}
	return fmt.Sprintf("unsupported backend %q in directory reference %q", e.Source, e.Ref)
}

func newParseError(ref, reason string) error {
	return &ParseError{Ref: ref, Reason: reason}
}
