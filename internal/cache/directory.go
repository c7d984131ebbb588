package cache

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DirectoryCache 记录一次会话内已发现的文件、目录与 URL 模板，所有方法并发安全。
//
// 会话内 files/dirs 只增不减；checked 只在目录列举成功后写入；同一目录引用
// 不会同时拥有 URL 前缀与 bundle 文件映射。
type DirectoryCache struct {
	mu       sync.RWMutex
	session  string
	files    map[string]struct{}
	dirs     map[string]struct{}
	checked  map[string]struct{}
	prefixes map[string]string
	targets  map[string]map[string]string
}

// Stats 汇总缓存规模，供诊断接口与日志输出。
type Stats struct {
	Session  string `json:"session"`
	Files    int    `json:"files"`
	Dirs     int    `json:"dirs"`
	Checked  int    `json:"checked_dirs"`
	Prefixes int    `json:"url_prefixes"`
	Bundles  int    `json:"bundle_dirs"`
}

// NewDirectoryCache 创建空缓存并开启一个新会话。
func NewDirectoryCache() *DirectoryCache {
	c := &DirectoryCache{}
	c.reset()
	return c
}

// Has 判断文件 URL 是否已知。
func (c *DirectoryCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.files[id]
	return ok
}

// HasDir 判断目录标识是否出现过。
func (c *DirectoryCache) HasDir(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dirs[id]
	return ok
}

// RecordFiles 合并列举得到的文件，返回新增数量；重复或空字符串会被忽略。
func (c *DirectoryCache) RecordFiles(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return addAll(c.files, ids)
}

// RecordDirs 合并列举得到的子目录，返回新增数量。
func (c *DirectoryCache) RecordDirs(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return addAll(c.dirs, ids)
}

// MarkChecked 标记目录已完整列举，幂等。
func (c *DirectoryCache) MarkChecked(dirRef string) {
	c.mu.Lock()
	c.checked[dirRef] = struct{}{}
	c.mu.Unlock()
}

// IsChecked 返回目录是否已成功列举过。
func (c *DirectoryCache) IsChecked(dirRef string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.checked[dirRef]
	return ok
}

// URLPrefix 返回 cloud-proxy 标准模式下缓存的 URL 前缀。
func (c *DirectoryCache) URLPrefix(dirRef string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prefix, ok := c.prefixes[dirRef]
	return prefix, ok
}

// SetURLPrefix 写入 URL 前缀；若该目录已有 bundle 映射则拒绝并返回 false。
// 已存在的前缀保持不变。
func (c *DirectoryCache) SetURLPrefix(dirRef, prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.targets[dirRef]; ok {
		return false
	}
	if _, ok := c.prefixes[dirRef]; !ok {
		c.prefixes[dirRef] = strings.TrimSuffix(prefix, "/")
	}
	return true
}

// TargetFile 在 bundle 映射中查找文件；hasMap 表示该目录是否已有映射。
func (c *DirectoryCache) TargetFile(dirRef, name string) (url string, hasMap bool, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	targets, ok := c.targets[dirRef]
	if !ok {
		return "", false, false
	}
	url, found = targets[name]
	return url, true, found
}

// SetTargetFiles 写入 bundle 文件映射（文件名 → URL），同时把 URL 记入已知文件。
// 若该目录已有 URL 前缀则拒绝并返回 false。
func (c *DirectoryCache) SetTargetFiles(dirRef string, targets map[string]string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.prefixes[dirRef]; ok {
		return false
	}
	copied := make(map[string]string, len(targets))
	for name, url := range targets {
		copied[name] = url
		if url != "" {
			c.files[url] = struct{}{}
		}
	}
	c.targets[dirRef] = copied
	return true
}

// Merge 在 session 仍为当前会话时，原子地合并一次列举结果并标记 dirRef 已扫描；
// targets 非 nil 时写入 bundle 映射。列举结果优先于先前推断的 URL 前缀：
// 已缓存的前缀会被移除，保证两者不会并存。
// 会话已被 Reset 时丢弃结果并返回 ok=false。
func (c *DirectoryCache) Merge(session, dirRef string, files, dirs []string, targets map[string]string) (added int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session {
		return 0, false
	}
	added = addAll(c.files, files)
	addAll(c.dirs, dirs)
	if targets != nil {
		delete(c.prefixes, dirRef)
		copied := make(map[string]string, len(targets))
		for name, url := range targets {
			copied[name] = url
			if url != "" {
				if _, exists := c.files[url]; !exists {
					c.files[url] = struct{}{}
					added++
				}
			}
		}
		c.targets[dirRef] = copied
	}
	c.checked[dirRef] = struct{}{}
	return added, true
}

// Stats 返回当前会话的缓存规模快照。
func (c *DirectoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Session:  c.session,
		Files:    len(c.files),
		Dirs:     len(c.dirs),
		Checked:  len(c.checked),
		Prefixes: len(c.prefixes),
		Bundles:  len(c.targets),
	}
}

// Session 返回当前会话 ID。
func (c *DirectoryCache) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Reset 一次性清空全部集合并开启新会话，返回新的会话 ID。
func (c *DirectoryCache) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return c.session
}

func (c *DirectoryCache) reset() {
	c.session = uuid.NewString()
	c.files = make(map[string]struct{})
	c.dirs = make(map[string]struct{})
	c.checked = make(map[string]struct{})
	c.prefixes = make(map[string]string)
	c.targets = make(map[string]map[string]string)
}

func addAll(set map[string]struct{}, ids []string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, exists := set[id]; exists {
			continue
		}
		set[id] = struct{}{}
		added++
	}
	return added
}
