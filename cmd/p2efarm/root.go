package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/p2efarm/client/core/output"
	"github.com/weisyn/p2efarm/internal/app"
	"github.com/weisyn/p2efarm/internal/app/version"
	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/alert"
	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath   string // 配置文件
	OutputFormat string // 输出格式
	WalletMode   string // 覆盖 wallet.mode
	Silent       bool   // 静默模式
}

var (
	globalFlags GlobalFlags
	formatter   *output.Formatter
)

// 退出码
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitNoWallet
	exitWrongNetwork
	exitRejected
	exitBusy
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "p2efarm",
	Short: "P2E 农场游戏钱包会话与交易控制器",
	Long: `p2efarm - 连接钱包、查看农场并发送游戏交易

需要代币支付的操作（买农场、升级）会先发 approve，确认后再发送主交易。
同一时刻只允许一笔交易在途。

示例：
  p2efarm serve --connect        # 启动 HTTP API 与刷新器
  p2efarm status -o pretty       # 查看会话与农场
  p2efarm claim 7                # 领取 7 号农场奖励`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(globalFlags.OutputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, cmd.OutOrStdout())
		formatter.SetSilent(globalFlags.Silent)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "配置文件 (默认: $P2EFARM_CONFIG 或 ~/.p2efarm/config.json)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "text", "输出格式: json|pretty|text")
	rootCmd.PersistentFlags().StringVar(&globalFlags.WalletMode, "wallet", "", "钱包模式: rpc|local|none")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Silent, "silent", false, "静默模式 (仅输出错误)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchTokenCmd)
	rootCmd.AddCommand(actionCommands()...)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd 构建信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本与构建信息",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter.Print(version.GetBuildInfo())
	},
}

// Execute 执行根命令
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if formatter != nil {
			formatter.PrintError(err)
		} else {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		}
		return exitCode(err)
	}
	return exitOK
}

// exitCode 按哨兵错误映射退出码
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, txflow.ErrInvalidAction):
		return exitUsage
	case errors.Is(err, session.ErrNoWallet):
		return exitNoWallet
	case errors.Is(err, session.ErrWrongNetwork):
		return exitWrongNetwork
	case errors.Is(err, wallet.ErrUserRejected):
		return exitRejected
	case errors.Is(err, txflow.ErrBusy), errors.Is(err, session.ErrConnectInProgress):
		return exitBusy
	default:
		return exitFailure
	}
}

// loadConfig 读取配置并应用命令行覆盖
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if globalFlags.WalletMode != "" {
		cfg.Wallet.Mode = globalFlags.WalletMode
	}
	return cfg, nil
}

// withSession 启动不带 API 的应用，连接钱包并刷新一次后执行 fn
func withSession(ctx context.Context, fn func(ctx context.Context, ctrl *controller.Controller) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Start(app.WithConfig(cfg), app.WithoutAPI())
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(); stopErr != nil {
			formatter.PrintWarning(fmt.Sprintf("停止应用失败: %v", stopErr))
		}
	}()

	ctrl := a.Controller()
	if err := ctrl.Connect(ctx); err != nil {
		printAlerts(ctrl.State())
		return err
	}
	if err := ctrl.Refresh(ctx); err != nil {
		formatter.PrintWarning(fmt.Sprintf("刷新失败: %v", err))
	}
	return fn(ctx, ctrl)
}

// printAlerts 把告警队列输出为提示行
func printAlerts(v controller.StateView) {
	for _, a := range v.Alerts {
		if a.Severity == alert.SeveritySuccess {
			formatter.PrintSuccess(a.Message)
		} else {
			formatter.PrintWarning(a.Message)
		}
	}
}
