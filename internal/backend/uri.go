package backend

import (
	"fmt"
	"strings"
)

// uriSafe 对应宿主 encodeURI 保留的字符集合：字母数字与 URI 保留/非保留符号。
const uriSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789;,/?:@&=+$-_.!~*'()#"

const upperHex = "0123456789ABCDEF"

// EncodeURI 按 encodeURI 规则对完整 URL 或相对路径做百分号编码，非 ASCII 按 UTF-8 字节编码。
func EncodeURI(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if strings.IndexByte(uriSafe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

// LocalURL 返回本地后端文件的规范 URL（相对路径）。
func LocalURL(currentPath, filename string) string {
	return EncodeURI(joinPath(currentPath, filename))
}

// BucketURL 返回 bucket 对象的虚拟主机风格 URL。
func BucketURL(bucket, endpointHost, key string) string {
	return EncodeURI(fmt.Sprintf("https://%s.%s/%s", bucket, endpointHost, strings.TrimPrefix(key, "/")))
}

// BundleFallbackURL 返回 bundle 映射缺失时猜测的模板 URL。
func BundleFallbackURL(assetsHost, currentPath, filename string) string {
	return EncodeURI(fmt.Sprintf("https://%s/bundle/%s", assetsHost, joinPath(currentPath, filename)))
}

func joinPath(dir, name string) string {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
