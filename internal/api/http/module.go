package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/controller"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// ModuleParams HTTP 模块依赖
type ModuleParams struct {
	fx.In

	Config     *config.Config
	Controller *controller.Controller
	Gatherer   prometheus.Gatherer `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
	Logger     log.Logger
	Lifecycle  fx.Lifecycle
}

// Module 返回 HTTP API 模块
func Module() fx.Option {
	return fx.Module("api.http",
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建服务器并注册启动与停止钩子
//
// api.enabled 为 false 时只创建不监听。
func ProvideServer(params ModuleParams) *Server {
	logger := infralog.NewModuleLogger(params.Logger, "api")
	server := NewServer(params.Config.API, params.Controller, params.Gatherer, params.Metrics, logger)
	if !params.Config.API.Enabled {
		logger.Info("HTTP API 已禁用")
		return server
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return server.Start() },
		OnStop:  server.Stop,
	})
	return server
}
