package backend

import "context"

// Listing 是一次目录列举的结果；Files/Dirs 与 Resolver 产出的 URL 形式一致。
type Listing struct {
	Files    []string
	Dirs     []string
	IsBundle bool
}

// Lister 列举某个后端目录的直接子项。目录不存在时返回的错误应匹配 ErrNotFound，
// 无权限时匹配 ErrPermission。
type Lister interface {
	Browse(ctx context.Context, spec DirectorySpec) (Listing, error)
}

// File 是待上传的文件内容。
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult 描述上传后的落点，Path 可直接作为访问 URL 使用。
type UploadResult struct {
	Path string
}

// Uploader 把文件写入目录引用对应的后端目录。
type Uploader interface {
	Upload(ctx context.Context, spec DirectorySpec, file File) (UploadResult, error)
}

// Identity 是云端代理返回的当前用户信息。
type Identity struct {
	User string
}

// IdentityProvider 查询当前用户身份，用于拼接 cloud-proxy 的 URL 前缀。
type IdentityProvider interface {
	Identity(ctx context.Context) (Identity, error)
}

// BundleDetector 在列举之前判断 cloud-proxy 目录是否属于预打包 bundle。
type BundleDetector interface {
	IsBundle(ctx context.Context, spec DirectorySpec) (bool, error)
}

// Scanner 保证目录至少被完整列举过一次，由存在性检查器实现并注入 Resolver。
type Scanner interface {
	EnsureScanned(ctx context.Context, dirRef string, spec DirectorySpec) error
}
