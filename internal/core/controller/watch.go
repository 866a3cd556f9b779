package controller

import (
	"fmt"

	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
)

type busHandler struct {
	topic   event.EventType
	handler interface{}
}

// OnChange 注册状态变化回调，返回取消函数
//
// 告警列表或农场视图变化时调用 fn，fn 在总线的异步协程中执行，不应阻塞。
// 回调只在 Start 之后生效。
func (c *Controller) OnChange(fn func()) (cancel func()) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	c.nextWatcher++
	id := c.nextWatcher
	c.watchers[id] = fn
	return func() {
		c.watchMu.Lock()
		defer c.watchMu.Unlock()
		delete(c.watchers, id)
	}
}

func (c *Controller) notifyWatchers() {
	c.watchMu.Lock()
	fns := make([]func(), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// subscribeChanges 订阅会改变 StateView 的事件，重复调用无副作用
func (c *Controller) subscribeChanges() error {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	if c.bus == nil || c.busHandlers != nil {
		return nil
	}
	subs := []busHandler{
		{infraevent.TopicAlertChanged, func() { c.notifyWatchers() }},
		{infraevent.TopicViewRefreshed, func() { c.notifyWatchers() }},
		{infraevent.TopicViewTick, func(uint64) { c.notifyWatchers() }},
	}
	for _, s := range subs {
		if err := c.bus.SubscribeAsync(s.topic, s.handler, true); err != nil {
			c.unsubscribeChangesLocked()
			return fmt.Errorf("subscribe %s: %w", s.topic, err)
		}
		c.busHandlers = append(c.busHandlers, s)
	}
	return nil
}

func (c *Controller) unsubscribeChanges() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	c.unsubscribeChangesLocked()
}

func (c *Controller) unsubscribeChangesLocked() {
	for _, s := range c.busHandlers {
		_ = c.bus.Unsubscribe(s.topic, s.handler)
	}
	c.busHandlers = nil
}
