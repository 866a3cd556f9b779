package clock

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
	infraClock "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
)

// queryFn NTP 查询函数，测试中替换
type queryFn func(server string) (time.Duration, error)

func ntpQuery(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// NTPClock 通过NTP周期性校正偏移的时钟实现
//
// 奖励估算依赖本地时间与链上 lastClaimTime 的差值，本地时钟漂移时可切换到此实现。
type NTPClock struct {
	mu                 sync.Mutex
	server             string
	query              queryFn
	offset             time.Duration
	lastSync           time.Time
	lastAttempt        time.Time
	syncInterval       time.Duration
	backoff            time.Duration
	backoffInitial     time.Duration
	backoffMax         time.Duration
	unhealthyThreshold time.Duration
	lastError          error
}

// NewNTPClock 创建NTP时钟
// server 例如 "time.google.com"，syncInterval 建议 5~10 分钟
func NewNTPClock(server string, syncInterval time.Duration) *NTPClock {
	return newNTPClock(server, syncInterval, ntpQuery)
}

func newNTPClock(server string, syncInterval time.Duration, query queryFn) *NTPClock {
	c := &NTPClock{
		server:             server,
		query:              query,
		syncInterval:       syncInterval,
		backoffInitial:     5 * time.Second,
		backoffMax:         5 * time.Minute,
		unhealthyThreshold: 2 * time.Second,
	}
	c.mu.Lock()
	// 初始化失败不致命，置零偏移，后续重试
	if err := c.syncLocked(); err != nil {
		c.lastError = err
		c.backoff = c.backoffInitial
	}
	c.mu.Unlock()
	return c
}

func (c *NTPClock) Now() time.Time {
	c.mu.Lock()
	c.maybeSyncLocked()
	offset := c.offset
	c.mu.Unlock()
	return time.Now().Add(offset)
}

func (c *NTPClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
func (c *NTPClock) Unix() int64                     { return c.Now().Unix() }
func (c *NTPClock) UnixNano() int64                 { return c.Now().UnixNano() }

// Health 返回当前健康状态与关键指标
// healthy: 最近一次同步无错误，且偏移量在阈值内
func (c *NTPClock) Health() (healthy bool, offset time.Duration, lastSync time.Time, lastError error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset, lastSync, lastError = c.offset, c.lastSync, c.lastError
	if c.unhealthyThreshold > 0 && (offset < -c.unhealthyThreshold || offset > c.unhealthyThreshold) {
		return false, offset, lastSync, lastError
	}
	if lastError != nil {
		return false, offset, lastSync, lastError
	}
	return true, offset, lastSync, nil
}

func (c *NTPClock) maybeSyncLocked() {
	// 动态计算有效同步间隔（含退避）
	effective := c.syncInterval
	if c.backoff > 0 {
		if c.backoff > c.backoffMax {
			c.backoff = c.backoffMax
		}
		effective = c.backoff
	}
	if time.Since(c.lastAttempt) < effective {
		return
	}
	if err := c.syncLocked(); err != nil {
		c.lastError = err
		if c.backoff == 0 {
			c.backoff = c.backoffInitial
		} else {
			c.backoff *= 2
		}
		return
	}
	// 成功，清零退避
	c.backoff = 0
	c.lastError = nil
}

func (c *NTPClock) syncLocked() error {
	c.lastAttempt = time.Now()
	offset, err := c.query(c.server)
	if err != nil {
		return err
	}
	c.offset = offset
	c.lastSync = c.lastAttempt
	return nil
}

var _ infraClock.Clock = (*NTPClock)(nil)
