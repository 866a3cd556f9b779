package clock

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/config"
)

func TestMockClock(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	c := NewMockClock(base)

	assert.Equal(t, base, c.Now())
	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, int64(1_700_000_001), c.Unix())
	assert.Equal(t, 1500*time.Millisecond, c.Since(base))

	c.Set(base)
	assert.Equal(t, base.UnixNano(), c.UnixNano())
}

func TestNTPClock_AppliesOffset(t *testing.T) {
	var calls atomic.Int32
	c := newNTPClock("test", time.Hour, func(string) (time.Duration, error) {
		calls.Add(1)
		return time.Second, nil
	})

	before := time.Now()
	now := c.Now()
	assert.True(t, now.After(before.Add(900*time.Millisecond)), "应加上 NTP 偏移")
	// 同步间隔内不重复查询
	assert.Equal(t, int32(1), calls.Load())

	healthy, offset, lastSync, err := c.Health()
	assert.True(t, healthy)
	assert.Equal(t, time.Second, offset)
	assert.False(t, lastSync.IsZero())
	assert.NoError(t, err)
}

func TestNTPClock_InitialFailureIsNotFatal(t *testing.T) {
	c := newNTPClock("test", time.Hour, func(string) (time.Duration, error) {
		return 0, errors.New("timeout")
	})

	assert.False(t, c.Now().IsZero())
	healthy, offset, _, err := c.Health()
	assert.False(t, healthy)
	assert.Zero(t, offset)
	assert.Error(t, err)
}

func TestNTPClock_LargeOffsetUnhealthy(t *testing.T) {
	c := newNTPClock("test", time.Hour, func(string) (time.Duration, error) {
		return -10 * time.Second, nil
	})
	healthy, _, _, _ := c.Health()
	assert.False(t, healthy)
}

func TestRegisterClockMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	// 系统时钟不注册
	require.NoError(t, RegisterClockMetrics(reg, NewSystemClock()))

	c := newNTPClock("test", time.Hour, func(string) (time.Duration, error) {
		return 250 * time.Millisecond, nil
	})
	require.NoError(t, RegisterClockMetrics(reg, c))

	count, err := testutil.GatherAndCount(reg, "p2efarm_clock_healthy", "p2efarm_clock_offset_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &SystemClock{}, New(config.ClockConfig{Type: "system"}))
	assert.IsType(t, &SystemClock{}, New(config.ClockConfig{Type: "ntp"}))
}
