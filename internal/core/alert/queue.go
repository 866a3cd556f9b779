// Package alert 实现有界、自动过期的用户通知队列
package alert

import (
	"sort"
	"sync"
	"time"

	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
)

// Severity 告警级别
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// 默认参数
const (
	DefaultCapacity = 5
	DefaultTTL      = 5 * time.Second
)

// Alert 一条用户通知
type Alert struct {
	ID        uint64    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Options 队列参数，零值使用默认值
type Options struct {
	Capacity int
	TTL      time.Duration
}

// Queue 告警队列
//
// 不变量：
//   - 条目数不超过 Capacity，满时先淘汰最旧的一条
//   - ID 在队列生命周期内单调递增
//   - 每条告警在创建 TTL 之后不可见
type Queue struct {
	mu       sync.Mutex
	alerts   []Alert
	timers   map[uint64]*time.Timer
	nextID   uint64
	capacity int
	ttl      time.Duration
	closed   bool

	clock   clock.Clock
	bus     event.EventBus
	metrics *metrics.Metrics
}

// NewQueue 创建告警队列；bus 与 m 可为 nil
func NewQueue(opts Options, clk clock.Clock, bus event.EventBus, m *metrics.Metrics) *Queue {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Queue{
		alerts:   make([]Alert, 0, opts.Capacity),
		timers:   make(map[uint64]*time.Timer),
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		clock:    clk,
		bus:      bus,
		metrics:  m,
	}
}

// Push 追加一条告警并安排自动过期
func (q *Queue) Push(severity Severity, message string) Alert {
	q.mu.Lock()
	q.pruneLocked()

	q.nextID++
	a := Alert{
		ID:        q.nextID,
		Severity:  severity,
		Message:   message,
		CreatedAt: q.clock.Now(),
	}

	for len(q.alerts) >= q.capacity {
		q.removeAtLocked(0)
	}
	q.alerts = append(q.alerts, a)

	if !q.closed {
		id := a.ID
		q.timers[id] = time.AfterFunc(q.ttl, func() { q.expire(id) })
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()
	}
	q.notify()
	return a
}

// Error 追加错误告警
func (q *Queue) Error(message string) Alert { return q.Push(SeverityError, message) }

// Success 追加成功告警
func (q *Queue) Success(message string) Alert { return q.Push(SeveritySuccess, message) }

// Dismiss 按 ID 移除；ID 不存在时返回 false
func (q *Queue) Dismiss(id uint64) bool {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.removeAtLocked(idx)
	q.mu.Unlock()

	q.notify()
	return true
}

// List 返回按创建顺序排列的可见告警副本
func (q *Queue) List() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked()
	out := make([]Alert, len(q.alerts))
	copy(out, q.alerts)
	return out
}

// Len 可见告警数
func (q *Queue) Len() int {
	return len(q.List())
}

// Clear 清空队列
func (q *Queue) Clear() {
	q.mu.Lock()
	for len(q.alerts) > 0 {
		q.removeAtLocked(0)
	}
	q.mu.Unlock()
	q.notify()
}

// Close 停止全部过期定时器，之后的告警只依赖惰性清理
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) expire(id uint64) {
	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.removeAtLocked(idx)
	q.mu.Unlock()

	q.notify()
}

// pruneLocked 按时钟移除已过期条目
func (q *Queue) pruneLocked() {
	now := q.clock.Now()
	for len(q.alerts) > 0 && !now.Before(q.alerts[0].CreatedAt.Add(q.ttl)) {
		q.removeAtLocked(0)
	}
}

func (q *Queue) indexLocked(id uint64) int {
	// alerts 按 ID 升序
	idx := sort.Search(len(q.alerts), func(i int) bool { return q.alerts[i].ID >= id })
	if idx < len(q.alerts) && q.alerts[idx].ID == id {
		return idx
	}
	return -1
}

func (q *Queue) removeAtLocked(idx int) {
	id := q.alerts[idx].ID
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	q.alerts = append(q.alerts[:idx], q.alerts[idx+1:]...)
}

func (q *Queue) notify() {
	if q.bus != nil {
		q.bus.Publish(infraevent.TopicAlertChanged)
	}
}
