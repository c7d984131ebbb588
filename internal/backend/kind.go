package backend

// Kind 标识目录引用所属的存储后端。
type Kind int

const (
	KindUnknown Kind = iota
	// KindLocal 服务器本地文件系统（宿主的 data 目录）。
	KindLocal
	// KindBucket 对象存储 bucket。
	KindBucket
	// KindCloudProxy 云端资源代理，URL 依赖用户身份或 bundle 映射。
	KindCloudProxy
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindBucket:
		return "bucket"
	case KindCloudProxy:
		return "cloud-proxy"
	default:
		return "unknown"
	}
}

// sourceKinds 把目录引用中的来源名映射到后端类型，兼容宿主原有写法与新别名。
var sourceKinds = map[string]Kind{
	"data":        KindLocal,
	"local":       KindLocal,
	"s3":          KindBucket,
	"bucket":      KindBucket,
	"forgevtt":    KindCloudProxy,
	"cloud-proxy": KindCloudProxy,
}
