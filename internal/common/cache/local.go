package cache

import (
	"time"

	"github.com/karlseguin/ccache/v3"
)

// Local 进程内 LRU 缓存，用于读多写少的目录数据
type Local[T any] struct {
	store *ccache.Cache[T]
	ttl   time.Duration
}

// NewLocal 创建进程内缓存
func NewLocal[T any](maxSize int64, ttl time.Duration) *Local[T] {
	return &Local[T]{
		store: ccache.New(ccache.Configure[T]().MaxSize(maxSize)),
		ttl:   ttl,
	}
}

// Fetch 命中且未过期时直接返回，否则调用 load 并写入缓存
func (c *Local[T]) Fetch(key string, load func() (T, error)) (T, error) {
	item, err := c.store.Fetch(key, c.ttl, load)
	if err != nil {
		var zero T
		return zero, err
	}
	return item.Value(), nil
}

// Stop 停止后台清理协程
func (c *Local[T]) Stop() {
	c.store.Stop()
}
