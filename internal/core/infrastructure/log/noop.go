package log

import (
	logInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"go.uber.org/zap"
)

// NoopLogger 丢弃全部输出，用于测试与未配置日志的组件
type NoopLogger struct{}

// NewNoopLogger 创建空日志记录器
func NewNoopLogger() logInterface.Logger { return NoopLogger{} }

func (NoopLogger) Debug(string)                              {}
func (NoopLogger) Debugf(string, ...interface{})             {}
func (NoopLogger) Info(string)                               {}
func (NoopLogger) Infof(string, ...interface{})              {}
func (NoopLogger) Warn(string)                               {}
func (NoopLogger) Warnf(string, ...interface{})              {}
func (NoopLogger) Error(string)                              {}
func (NoopLogger) Errorf(string, ...interface{})             {}
func (NoopLogger) Fatal(string)                              {}
func (NoopLogger) Fatalf(string, ...interface{})             {}
func (l NoopLogger) With(...interface{}) logInterface.Logger { return l }
func (NoopLogger) Sync() error                               { return nil }
func (NoopLogger) GetZapLogger() *zap.Logger                 { return zap.NewNop() }
