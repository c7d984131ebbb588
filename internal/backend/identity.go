package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedIdentity 缓存首次成功的身份查询结果；并发调用共享同一次请求，失败不缓存。
type CachedIdentity struct {
	provider IdentityProvider
	timeout  time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	last  *Identity
}

// NewCachedIdentity 包装 provider，timeout <= 0 时不额外限时。
func NewCachedIdentity(provider IdentityProvider, timeout time.Duration) *CachedIdentity {
	return &CachedIdentity{provider: provider, timeout: timeout}
}

// Identity 返回缓存的身份，缺失时发起一次受超时约束的查询。
func (c *CachedIdentity) Identity(ctx context.Context) (Identity, error) {
	if id, ok := c.cached(); ok {
		return id, nil
	}
	if c.provider == nil {
		return Identity{}, errors.New("identity provider not configured")
	}

	ch := c.group.DoChan("identity", func() (interface{}, error) {
		if id, ok := c.cached(); ok {
			return id, nil
		}
		callCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, c.timeout)
			defer cancel()
		}
		id, err := c.provider.Identity(callCtx)
		if err != nil {
			return Identity{}, err
		}
		if id.User == "" {
			return Identity{}, errors.New("identity lookup returned an empty user")
		}
		c.mu.Lock()
		c.last = &id
		c.mu.Unlock()
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Identity{}, res.Err
		}
		return res.Val.(Identity), nil
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// Forget 丢弃缓存的身份，下一次调用会重新查询。
func (c *CachedIdentity) Forget() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}

func (c *CachedIdentity) cached() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Identity{}, false
	}
	return *c.last, true
}
