package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	walletpkg "github.com/weisyn/p2efarm/client/core/wallet"
	"github.com/weisyn/p2efarm/client/core/contract"
	httpapi "github.com/weisyn/p2efarm/internal/api/http"
	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/clock"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/storage"
	clockInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	eventInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/storage"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 通信与数据层
	LayerCommunication = "communication"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 15 * time.Second
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts       *options
	fxApp      *fx.App
	controller *controller.Controller
	logger     log.Logger
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	modules := []fx.Option{}

	// 1. 配置(不依赖其他)
	if b.opts.config != nil {
		modules = append(modules, config.Supply(b.opts.config))
	} else {
		modules = append(modules,
			fx.Supply(fx.Annotate(b.opts.configFilePath, fx.ResultTags(`name:"config_path"`))),
			config.Module(),
		)
	}

	// 命令行开关覆盖配置文件
	if b.opts.enableAPI != nil {
		enabled := *b.opts.enableAPI
		modules = append(modules, fx.Decorate(func(cfg *config.Config) *config.Config {
			cfg.API.Enabled = enabled
			return cfg
		}))
	}

	return append(modules,
		infralog.Module(), // 2. 日志(依赖配置)
		metrics.Module(),  // 3. 指标
		fx.Provide(ProvideClock),
	)
}

// SetupCommunicationLayer 设置通信与数据层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),   // 事件(依赖日志)
		storage.Module(), // 存储(依赖配置和时钟)
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
//
// 钱包 -> 控制器，控制器持有全部核心组件。
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(ProvideWallet),
		fx.Provide(ProvideController),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	return []fx.Option{
		httpapi.Module(),
		fx.Populate(&b.controller, &b.logger),
	}
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupCommunicationLayer()...)
	allModules = append(allModules, b.SetupBusinessLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		// 禁用fx内部日志
		fx.NopLogger,
	)
	return b.fxApp.Err()
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}

	if b.opts.autoConnect {
		if err := b.controller.Connect(ctx); err != nil {
			b.logger.Warnf("自动连接钱包失败: %v", err)
		}
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// ProvideClock 按配置创建时钟，并注册健康采集器
func ProvideClock(cfg *config.Config, reg prometheus.Registerer, logger log.Logger) clockInterface.Clock {
	c := clock.New(cfg.Clock)
	if err := clock.RegisterClockMetrics(reg, c); err != nil {
		logger.Warnf("注册时钟指标失败: %v", err)
	}
	return c
}

// WalletParams 钱包依赖
type WalletParams struct {
	fx.In

	Config    *config.Config
	Bus       eventInterface.EventBus
	Logger    log.Logger
	Lifecycle fx.Lifecycle
}

// ProvideWallet 按配置创建钱包提供者
//
// none 模式返回 nil，控制器按"未安装钱包"处理。
func ProvideWallet(params WalletParams) (walletInterface.Provider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	provider, err := walletpkg.NewProvider(ctx, params.Config.Wallet, params.Bus,
		infralog.NewModuleLogger(params.Logger, "wallet"))
	if err != nil {
		return nil, fmt.Errorf("创建钱包提供者失败: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return provider.Close() },
	})
	return provider, nil
}

// ControllerParams 控制器依赖
type ControllerParams struct {
	fx.In

	Config    *config.Config
	Provider  walletInterface.Provider `optional:"true"`
	Bus       eventInterface.EventBus
	Clock     clockInterface.Clock
	Store     storageInterface.MemoryStore
	Metrics   *metrics.Metrics
	Logger    log.Logger
	Lifecycle fx.Lifecycle
}

// ProvideController 组装控制器，随应用启动刷新并在停止时断开
func ProvideController(params ControllerParams) (*controller.Controller, error) {
	c, err := controller.NewController(controller.ControllerDeps{
		Config:   params.Config,
		Provider: params.Provider,
		Binder:   contract.NewBinder(params.Config.Contracts, params.Config.Refresh.ReceiptPoll.Std()),
		Bus:      params.Bus,
		Clock:    params.Clock,
		Store:    params.Store,
		Logger:   params.Logger,
		Metrics:  params.Metrics,
	})
	if err != nil {
		return nil, err
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: c.Start,
		OnStop: func(context.Context) error {
			c.Stop()
			return nil
		},
	})
	return c, nil
}

// BootstrapApp 执行完整的引导过程并返回应用实例
func BootstrapApp(options ...Option) (App, error) {
	bootstrap := NewBootstrap(newOptions(options...))

	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := bootstrap.StartApp(ctx); err != nil {
		return nil, err
	}

	return &internalApp{bootstrap: bootstrap}, nil
}
