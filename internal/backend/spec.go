package backend

import (
	"regexp"
	"strings"
)

// DirectorySpec 是目录引用解析后的结构化描述。
type DirectorySpec struct {
	Kind        Kind
	CurrentPath string
	Bucket      string
}

var refPattern = regexp.MustCompile(`^\[([^\[\]]*)\]\s*(.*)$`)

// Parse 解析 "[source] path" 形式的目录引用；不带方括号的路径按本地目录处理。
// 格式错误返回 *ParseError，来源名未知返回 *UnsupportedBackendError。
//
// 本地与 cloud-proxy 的空路径（如 "[data]"）视为非法，数据根目录不可直接寻址；
// bucket 允许空路径，"[s3:bucket]" 表示 bucket 根目录。
func Parse(ref string) (DirectorySpec, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return DirectorySpec{}, newParseError(ref, "empty reference")
	}

	if !strings.HasPrefix(raw, "[") {
		if strings.ContainsAny(raw, "[]") {
			return DirectorySpec{}, newParseError(ref, "unbalanced brackets")
		}
		current, err := cleanCurrentPath(ref, raw, false)
		if err != nil {
			return DirectorySpec{}, err
		}
		return DirectorySpec{Kind: KindLocal, CurrentPath: current}, nil
	}

	matches := refPattern.FindStringSubmatch(raw)
	if matches == nil {
		return DirectorySpec{}, newParseError(ref, "unbalanced brackets")
	}

	source := strings.TrimSpace(matches[1])
	if source == "" {
		return DirectorySpec{}, newParseError(ref, "missing source")
	}
	name, bucket, hasBucket := strings.Cut(source, ":")
	name = strings.ToLower(strings.TrimSpace(name))
	bucket = strings.TrimSpace(bucket)

	kind, ok := sourceKinds[name]
	if !ok {
		return DirectorySpec{}, &UnsupportedBackendError{Ref: ref, Source: name}
	}

	spec := DirectorySpec{Kind: kind}
	switch kind {
	case KindBucket:
		if !hasBucket || bucket == "" {
			return DirectorySpec{}, newParseError(ref, "missing bucket name")
		}
		if strings.ContainsAny(bucket, "/ ") {
			return DirectorySpec{}, newParseError(ref, "invalid bucket name")
		}
		spec.Bucket = bucket
	default:
		if hasBucket {
			return DirectorySpec{}, newParseError(ref, "bucket is only valid for object storage sources")
		}
	}

	current, err := cleanCurrentPath(ref, matches[2], kind == KindBucket)
	if err != nil {
		return DirectorySpec{}, err
	}
	spec.CurrentPath = current
	return spec, nil
}

// cleanCurrentPath 去掉首尾斜杠并拒绝 ".." 片段；allowEmpty 为 false 时拒绝空路径。
func cleanCurrentPath(ref, raw string, allowEmpty bool) (string, error) {
	current := strings.Trim(strings.TrimSpace(raw), "/")
	if current == "" {
		if allowEmpty {
			return "", nil
		}
		return "", newParseError(ref, "empty path")
	}
	for _, segment := range strings.Split(current, "/") {
		if segment == ".." {
			return "", newParseError(ref, "path escapes the backend root")
		}
	}
	return current, nil
}
