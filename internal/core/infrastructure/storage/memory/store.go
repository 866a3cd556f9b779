// Package memory 提供基于BigCache的内存缓存实现
package memory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/storage"
)

// 值头部：8 字节过期时间（unix 纳秒，0 表示只受生命周期窗口约束）
const expiryHeaderSize = 8

// Options 内存缓存参数
type Options struct {
	LifeWindow   time.Duration // 条目最长存活时间
	CleanWindow  time.Duration // 过期清理周期
	MaxEntrySize int           // 单条目初始大小（字节）
	Shards       int           // 分片数，必须为 2 的幂
}

// Store 实现了MemoryStore接口，基于BigCache提供内存缓存功能
type Store struct {
	cache  *bigcache.BigCache
	clock  clock.Clock
	logger log.Logger
	mutex  sync.RWMutex
	closed bool
}

// New 创建一个新的BigCache内存存储实例
func New(opts Options, clk clock.Clock, logger log.Logger) (*Store, error) {
	if opts.LifeWindow <= 0 {
		opts.LifeWindow = 10 * time.Minute
	}
	if opts.CleanWindow <= 0 {
		opts.CleanWindow = opts.LifeWindow / 2
	}
	if opts.Shards <= 0 {
		opts.Shards = 16
	}

	bigCacheConfig := bigcache.DefaultConfig(opts.LifeWindow)
	bigCacheConfig.Shards = opts.Shards
	bigCacheConfig.CleanWindow = opts.CleanWindow
	// 元数据条目很少，避免 DefaultConfig 的大块预分配
	bigCacheConfig.MaxEntriesInWindow = 1024
	if opts.MaxEntrySize > 0 {
		bigCacheConfig.MaxEntrySize = opts.MaxEntrySize
	}
	bigCacheConfig.Verbose = false

	cache, err := bigcache.New(context.Background(), bigCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &Store{
		cache:  cache,
		clock:  clk,
		logger: logger,
	}, nil
}

var _ storage.MemoryStore = (*Store)(nil)

// Close 关闭缓存并释放资源
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}

	s.logger.Debug("关闭内存存储")
	err := s.cache.Close()
	if err == nil {
		s.closed = true
	}
	return err
}

// Get 获取缓存值
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return nil, false, errors.New("memory store closed")
	}

	raw, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		s.logger.Warnf("获取缓存键[%s]失败: %v", key, err)
		return nil, false, err
	}
	if len(raw) < expiryHeaderSize {
		return nil, false, fmt.Errorf("corrupted cache entry %q", key)
	}

	// 检查键是否过期
	expiry := int64(binary.BigEndian.Uint64(raw[:expiryHeaderSize]))
	if expiry > 0 && s.clock.UnixNano() >= expiry {
		_ = s.cache.Delete(key)
		return nil, false, nil
	}

	value := make([]byte, len(raw)-expiryHeaderSize)
	copy(value, raw[expiryHeaderSize:])
	return value, true, nil
}

// Set 设置缓存值，可指定过期时间
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return errors.New("memory store closed")
	}

	var expiry int64
	if ttl > 0 {
		expiry = s.clock.Now().Add(ttl).UnixNano()
	}

	raw := make([]byte, expiryHeaderSize+len(value))
	binary.BigEndian.PutUint64(raw[:expiryHeaderSize], uint64(expiry))
	copy(raw[expiryHeaderSize:], value)

	if err := s.cache.Set(key, raw); err != nil {
		s.logger.Warnf("设置缓存键[%s]失败: %v", key, err)
		return err
	}
	return nil
}

// Delete 删除键
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return errors.New("memory store closed")
	}

	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Len 当前条目数
func (s *Store) Len() int {
	return s.cache.Len()
}
