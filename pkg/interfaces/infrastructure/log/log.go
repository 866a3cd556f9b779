// Package log 日志接口
package log

import "go.uber.org/zap"

// Logger 各组件依赖的日志记录器
//
// With 接收键值对并返回子记录器，原记录器不变。
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	// Fatal 记录后退出进程
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	With(args ...interface{}) Logger
	Sync() error

	// GetZapLogger 底层 zap 记录器
	GetZapLogger() *zap.Logger
}
