// Package event 基于asaskevich/EventBus的事件总线实现
package event

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// EventBus 对 asaskevich/EventBus 的薄封装
//
// 增加了订阅失败日志，主题统一使用 event.EventType。
type EventBus struct {
	bus    evbus.Bus
	logger log.Logger
}

// New 创建事件总线实例
func New(logger log.Logger) *EventBus {
	return &EventBus{
		bus:    evbus.New(),
		logger: logger,
	}
}

var _ event.EventBus = (*EventBus)(nil)

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if err := eb.bus.Subscribe(string(eventType), handler); err != nil {
		eb.warnf("订阅事件失败 [%s]: %v", eventType, err)
		return err
	}
	return nil
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if err := eb.bus.SubscribeAsync(string(eventType), handler, transactional); err != nil {
		eb.warnf("异步订阅事件失败 [%s]: %v", eventType, err)
		return err
	}
	return nil
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	return eb.bus.HasCallback(string(eventType))
}

func (eb *EventBus) warnf(format string, args ...interface{}) {
	if eb.logger != nil {
		eb.logger.Warnf(format, args...)
	}
}
