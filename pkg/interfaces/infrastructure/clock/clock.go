// Package clock provides clock interfaces.
package clock

import "time"

// Clock 提供统一的时间源接口
//
// 告警过期与奖励估算都从这里取时间，测试中替换为 MockClock。
type Clock interface {
	// Now 获取当前时间
	Now() time.Time

	// Since 计算从指定时间到现在的持续时间
	Since(t time.Time) time.Duration

	// Unix 获取当前Unix时间戳（秒）
	Unix() int64

	// UnixNano 获取当前Unix时间戳（纳秒）
	UnixNano() int64
}
