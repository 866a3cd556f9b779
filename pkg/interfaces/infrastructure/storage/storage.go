// Package storage 定义存储接口
package storage

import (
	"context"
	"time"
)

// MemoryStore 进程内键值缓存
type MemoryStore interface {
	// Get 获取值，不存在或已过期时 found 为 false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set 写入值；ttl <= 0 表示使用缓存的默认生命周期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除键
	Delete(ctx context.Context, key string) error

	// Close 释放资源
	Close() error
}
