package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/p2efarm/client/pkg/ux/ui"
	"github.com/weisyn/p2efarm/internal/app"
	"github.com/weisyn/p2efarm/internal/core/controller"
)

var (
	serveConnect bool
	serveNoAPI   bool
	watchAPI     bool
)

// serveCmd 常驻运行
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API 与农场刷新器",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := []app.Option{app.WithConfig(cfg)}
		if serveNoAPI {
			opts = append(opts, app.WithoutAPI())
		} else {
			opts = append(opts, app.WithAPI())
		}
		if serveConnect {
			opts = append(opts, app.WithAutoConnect())
		}

		a, err := app.Start(opts...)
		if err != nil {
			return err
		}
		if !serveNoAPI {
			formatter.PrintInfo(fmt.Sprintf("HTTP API 监听 %s", cfg.API.Listen))
		}
		return a.Wait(cmd.Context())
	},
}

// watchCmd 终端实时面板
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "连接钱包并持续显示农场面板",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := []app.Option{app.WithConfig(cfg), app.WithAutoConnect()}
		if watchAPI {
			opts = append(opts, app.WithAPI())
		} else {
			opts = append(opts, app.WithoutAPI())
		}
		a, err := app.Start(opts...)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go runDashboard(ctx, a.Controller(), ui.NewDashboard(os.Stdout, true))
		return a.Wait(ctx)
	},
}

// runDashboard 状态变化时重绘面板直到 ctx 结束
func runDashboard(ctx context.Context, ctrl *controller.Controller, dash *ui.Dashboard) {
	// 容量 1：连续变化合并为一次重绘
	redraw := make(chan struct{}, 1)
	cancel := ctrl.OnChange(func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		if err := dash.Render(ctrl.State()); err != nil {
			formatter.PrintError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-redraw:
		}
	}
}

// statusCmd 一次性查询
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "连接钱包并输出当前状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, ctrl *controller.Controller) error {
			return formatter.PrintState(ctrl.State())
		})
	},
}

// watchTokenCmd wallet_watchAsset
var watchTokenCmd = &cobra.Command{
	Use:   "watch-token",
	Short: "请求钱包跟踪奖励代币",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, ctrl *controller.Controller) error {
			err := ctrl.WatchToken(ctx)
			printAlerts(ctrl.State())
			return err
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveConnect, "connect", false, "启动后立即连接钱包")
	serveCmd.Flags().BoolVar(&serveNoAPI, "no-api", false, "不启动 HTTP API")
	watchCmd.Flags().BoolVar(&watchAPI, "api", false, "同时启动 HTTP API")
}
