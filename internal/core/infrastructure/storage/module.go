// Package storage 提供存储管理功能
package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/p2efarm/internal/config"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Config    *config.Config
	Clock     clock.Clock
	Logger    log.Logger `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	MemoryStore storageInterface.MemoryStore
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 根据缓存配置创建内存存储，停止时关闭
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := params.Logger
	if logger == nil {
		logger = infralog.NewNoopLogger()
	}

	store, err := memory.New(memory.Options{
		LifeWindow:   params.Config.Cache.LifeWindow.Std(),
		MaxEntrySize: params.Config.Cache.MaxEntrySize,
	}, params.Clock, logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("正在关闭存储服务...")
			if err := store.Close(); err != nil {
				logger.Errorf("关闭内存存储失败: %v", err)
				return err
			}
			return nil
		},
	})

	return ModuleOutput{MemoryStore: store}, nil
}
