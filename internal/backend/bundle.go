package backend

import (
	"context"
	"strings"
)

// PrefixBundleDetector 根据配置的路径前缀识别 bundle 目录。
type PrefixBundleDetector struct {
	prefixes []string
}

// NewPrefixBundleDetector 规范化前缀（去掉首尾斜杠、忽略空值）后构建检测器。
func NewPrefixBundleDetector(prefixes []string) *PrefixBundleDetector {
	normalized := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), "/"); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return &PrefixBundleDetector{prefixes: normalized}
}

// IsBundle 仅对 cloud-proxy 目录生效。
func (d *PrefixBundleDetector) IsBundle(_ context.Context, spec DirectorySpec) (bool, error) {
	if spec.Kind != KindCloudProxy {
		return false, nil
	}
	for _, prefix := range d.prefixes {
		if spec.CurrentPath == prefix || strings.HasPrefix(spec.CurrentPath, prefix+"/") {
			return true, nil
		}
	}
	return false, nil
}

// NoBundles 用于宿主不提供 bundle 的场景。
type NoBundles struct{}

// IsBundle 始终返回 false。
func (NoBundles) IsBundle(context.Context, DirectorySpec) (bool, error) {
	return false, nil
}
