// Package app 按层装配 fx 依赖图并管理应用生命周期
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/weisyn/p2efarm/internal/core/controller"
)

// App 是应用的对外接口
type App interface {
	// Controller 控制器，供 CLI 与界面使用
	Controller() *controller.Controller

	// Stop 停止应用
	Stop() error

	// Wait 阻塞到收到退出信号或 ctx 结束，然后停止应用
	Wait(ctx context.Context) error
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Controller 实现 App
func (a *internalApp) Controller() *controller.Controller {
	return a.bootstrap.controller
}

// Stop 停止应用
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 实现 App
func (a *internalApp) Wait(ctx context.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		a.bootstrap.logger.Infof("收到信号 %v，正在退出", sig)
	case <-ctx.Done():
	}
	return a.Stop()
}

// Start 启动应用
func Start(appOptions ...Option) (App, error) {
	return BootstrapApp(appOptions...)
}
