package log

import (
	"fmt"

	"go.uber.org/fx"

	logconfig "github.com/weisyn/p2efarm/internal/config/log"
	logInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// ModuleParams 日志模块依赖
type ModuleParams struct {
	fx.In

	Options   *logconfig.LogOptions `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Module 日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideLogger),
	)
}

// ProvideLogger 按用户配置创建记录器，停止时刷新缓冲
func ProvideLogger(params ModuleParams) (logInterface.Logger, error) {
	logger, err := New(logconfig.New(params.Options))
	if err != nil {
		return nil, fmt.Errorf("创建日志记录器失败: %w", err)
	}
	params.Lifecycle.Append(fx.StopHook(func() {
		// stderr 上的 Sync 在部分平台返回 EINVAL
		_ = logger.Sync()
	}))
	return logger, nil
}

// NewModuleLogger 带 module 字段的子记录器，base 为空时返回 Nop
func NewModuleLogger(base logInterface.Logger, module string) logInterface.Logger {
	if base == nil {
		return NewNoopLogger()
	}
	return base.With("module", module)
}
