package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/core/infrastructure/clock"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
)

// setupTestStore 创建测试存储
func setupTestStore(t *testing.T) (*Store, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Unix(1_700_000_000, 0))
	store, err := New(Options{LifeWindow: time.Hour, MaxEntrySize: 256}, clk, infralog.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, clk
}

// TestBasicOperations 测试基本操作
func TestBasicOperations(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "token:0xabc", []byte(`{"symbol":"CRT"}`), 0))
	value, found, err := store.Get(ctx, "token:0xabc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"symbol":"CRT"}`, string(value))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "token:0xabc"))
	_, found, err = store.Get(ctx, "token:0xabc")
	require.NoError(t, err)
	assert.False(t, found)

	// 删除不存在的键不报错
	assert.NoError(t, store.Delete(ctx, "token:0xabc"))
}

// TestTTL 测试过期
func TestTTL(t *testing.T) {
	store, clk := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 5*time.Second))

	clk.Advance(4 * time.Second)
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	clk.Advance(time.Second)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "到期后应不可见")
}

// TestClosed 测试关闭后的行为
func TestClosed(t *testing.T) {
	store, _ := setupTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "重复关闭应静默成功")

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, store.Set(context.Background(), "k", []byte("v"), 0))
}
