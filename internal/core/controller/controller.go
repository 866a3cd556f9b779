// Package controller 组装核心组件，对外暴露固定的命令集与状态视图
package controller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/alert"
	"github.com/weisyn/p2efarm/internal/core/farmview"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/network"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// 用户提示
const (
	MessageTokenWatched     = "Token added to wallet."
	MessageTokenWatchFailed = "Failed to add token to wallet."
)

// ControllerDeps 控制器依赖
type ControllerDeps struct {
	Config   *config.Config
	Provider wallet.Provider // 为 nil 表示未安装钱包
	Binder   session.Binder
	Bus      event.EventBus
	Clock    clock.Clock
	Store    storage.MemoryStore
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

// NetworkView 必需网络
type NetworkView struct {
	Name    string `json:"name"`
	ChainID string `json:"chain_id"`
	URL     string `json:"url"`
}

// StateView 对外展示的完整状态
type StateView struct {
	Session          string              `json:"session"`
	SessionID        string              `json:"session_id,omitempty"`
	Signer           string              `json:"signer,omitempty"`
	Network          NetworkView         `json:"network"`
	Pending          *txflow.PendingTx   `json:"pending,omitempty"`
	Busy             bool                `json:"busy"`
	Balance          string              `json:"balance,omitempty"`
	BalanceFormatted string              `json:"balance_formatted,omitempty"`
	Symbol           string              `json:"symbol,omitempty"`
	Farms            []farmview.FarmView `json:"farms"`
	Alerts           []alert.Alert       `json:"alerts"`
	Tick             uint64              `json:"tick"`
}

// Controller 应用控制器
//
// 持有全部核心组件，对外只暴露固定的一组命令：
// Connect、Disconnect、Submit、DismissAlert、WatchToken，
// 以及本地钱包的 SwitchAccount、LockWallet。
type Controller struct {
	cfg      *config.Config
	logger   log.Logger
	provider wallet.Provider

	// 后台提交的生命周期，Stop 时取消
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup

	alerts   *alert.Queue
	guard    *network.Guard
	sessions *session.Manager
	tx       *txflow.Orchestrator
	view     *farmview.Refresher

	// 状态变化观察者
	bus         event.EventBus
	watchMu     sync.Mutex
	watchers    map[uint64]func()
	nextWatcher uint64
	busHandlers []busHandler
}

// NewController 组装核心组件
func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.Config == nil {
		return nil, errors.New("controller: config is required")
	}
	if deps.Binder == nil {
		return nil, errors.New("controller: binder is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = infralog.NewNoopLogger()
	}
	cfg := deps.Config

	alerts := alert.NewQueue(alert.Options{
		Capacity: cfg.Alerts.Capacity,
		TTL:      cfg.Alerts.TTL.Std(),
	}, deps.Clock, deps.Bus, deps.Metrics)

	guard, err := network.NewGuard(network.Options{
		Name:    cfg.Network.Name,
		ChainID: cfg.Network.ChainID,
		URL:     cfg.Network.URL,
	}, deps.Provider, alerts, infralog.NewModuleLogger(logger, "network"))
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	sessions := session.NewManager(session.Deps{
		Provider: deps.Provider,
		Guard:    guard,
		Binder:   deps.Binder,
		Alerts:   alerts,
		Bus:      deps.Bus,
		Clock:    deps.Clock,
		Logger:   infralog.NewModuleLogger(logger, "session"),
		Metrics:  deps.Metrics,
	})

	tx := txflow.NewOrchestrator(txflow.Deps{
		Sessions: sessions,
		Alerts:   alerts,
		Bus:      deps.Bus,
		Clock:    deps.Clock,
		Logger:   infralog.NewModuleLogger(logger, "txflow"),
		Metrics:  deps.Metrics,
	})

	view := farmview.NewRefresher(farmview.Deps{
		Sessions: sessions,
		Bus:      deps.Bus,
		Store:    deps.Store,
		Clock:    deps.Clock,
		Logger:   infralog.NewModuleLogger(logger, "farmview"),
		Metrics:  deps.Metrics,
		Tick:     cfg.Refresh.Tick.Std(),
	})

	// 会话重置时清理派生状态
	sessions.OnReset(tx.ClearPending)
	sessions.OnReset(view.Clear)
	sessions.OnReset(alerts.Clear)

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:      cfg,
		logger:   logger,
		provider: deps.Provider,
		ctx:      ctx,
		cancel:   cancel,
		alerts:   alerts,
		guard:    guard,
		sessions: sessions,
		tx:       tx,
		view:     view,
		bus:      deps.Bus,
		watchers: make(map[uint64]func()),
	}, nil
}

// Start 订阅状态变化并启动视图刷新
func (c *Controller) Start(ctx context.Context) error {
	if err := c.subscribeChanges(); err != nil {
		return err
	}
	return c.view.Start(ctx)
}

// Stop 取消后台提交、停止刷新、断开会话并释放告警定时器
func (c *Controller) Stop() {
	c.cancel()
	c.jobs.Wait()
	c.view.Stop()
	c.sessions.Disconnect()
	c.alerts.Close()
	c.unsubscribeChanges()
}

// Connect 连接钱包并建立会话
func (c *Controller) Connect(ctx context.Context) error {
	return c.sessions.Connect(ctx)
}

// Disconnect 断开当前会话
func (c *Controller) Disconnect() {
	c.sessions.Disconnect()
}

// Submit 提交一个游戏操作并等待确认
func (c *Controller) Submit(ctx context.Context, action txflow.Action) (*txflow.Result, error) {
	return c.tx.Submit(ctx, action)
}

// SubmitAsync 同步完成前置检查后在后台执行操作
//
// 返回 nil 表示已受理，结果交给 done（可为 nil）。
func (c *Controller) SubmitAsync(action txflow.Action, done func(*txflow.Result, error)) error {
	job, err := c.tx.Begin(action)
	if err != nil {
		return err
	}

	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		res, err := job.Run(c.ctx)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// DismissAlert 关闭告警
func (c *Controller) DismissAlert(id uint64) bool {
	return c.alerts.Dismiss(id)
}

// WalletAccounts 本地钱包的全部账户
func (c *Controller) WalletAccounts() ([]common.Address, error) {
	am, err := c.accountManager()
	if err != nil {
		return nil, err
	}
	return am.Accounts(), nil
}

// SwitchAccount 切换本地钱包账户，已连接的会话随 accountsChanged 重新初始化
func (c *Controller) SwitchAccount(index int) error {
	am, err := c.accountManager()
	if err != nil {
		return err
	}
	if err := am.SwitchAccount(index); err != nil {
		return err
	}
	c.logger.Infof("本地钱包切换到账户 %d", index)
	return nil
}

// LockWallet 锁定本地钱包，已连接的会话随空的 accountsChanged 重置
func (c *Controller) LockWallet() error {
	am, err := c.accountManager()
	if err != nil {
		return err
	}
	am.Lock()
	c.logger.Info("本地钱包已锁定")
	return nil
}

func (c *Controller) accountManager() (wallet.AccountManager, error) {
	if c.provider == nil {
		return nil, session.ErrNoWallet
	}
	am, ok := c.provider.(wallet.AccountManager)
	if !ok {
		return nil, wallet.ErrAccountsUnsupported
	}
	return am, nil
}

// WatchToken 请求钱包跟踪奖励代币
func (c *Controller) WatchToken(ctx context.Context) error {
	s := c.sessions.Current()
	if s == nil {
		return txflow.ErrNoSession
	}

	meta := c.view.Snapshot().Token
	if meta.Symbol == "" || meta.Address != s.Token.Address() {
		m, err := s.Token.Metadata(ctx)
		if err != nil {
			c.logger.Errorf("查询代币元数据失败: %v", err)
			c.alerts.Error(MessageTokenWatchFailed)
			return fmt.Errorf("token metadata: %w", err)
		}
		meta = m
	}

	params := wallet.WatchAssetParams{
		Type: "ERC20",
		Options: wallet.WatchAssetOption{
			Address:  s.Token.Address().Hex(),
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
		},
	}

	var added bool
	if err := s.Provider.Request(ctx, &added, wallet.MethodWatchAsset, params); err != nil {
		c.logger.Errorf("wallet_watchAsset 失败: %v", err)
		c.alerts.Error(MessageTokenWatchFailed)
		return fmt.Errorf("watch asset: %w", err)
	}
	if !added {
		c.alerts.Error(MessageTokenWatchFailed)
		return wallet.ErrUserRejected
	}

	c.alerts.Success(MessageTokenWatched)
	return nil
}

// State 汇总当前状态
func (c *Controller) State() StateView {
	snap := c.view.Snapshot()

	v := StateView{
		Session: c.sessions.State().String(),
		Network: NetworkView{
			Name:    c.cfg.Network.Name,
			ChainID: c.cfg.Network.ChainID,
			URL:     c.cfg.Network.URL,
		},
		Pending: c.tx.Pending(),
		Busy:    c.tx.Busy(),
		Farms:   []farmview.FarmView{},
		Alerts:  c.alerts.List(),
		Tick:    snap.Tick,
	}

	s := c.sessions.Current()
	if s == nil {
		return v
	}
	v.SessionID = s.ID
	v.Signer = s.Signer.Hex()

	// 只展示属于当前会话的快照
	if snap.SessionID != s.ID {
		return v
	}
	if snap.Farms != nil {
		v.Farms = snap.Farms
	}
	if snap.Balance != nil {
		v.Balance = snap.Balance.String()
		v.BalanceFormatted = farmview.FormatUnits(snap.Balance, snap.Token.Decimals)
		v.Symbol = snap.Token.Symbol
	}
	return v
}

// Network 必需网络的链 ID
func (c *Controller) Network() *big.Int { return c.guard.Required() }

// Signer 当前签名账户
func (c *Controller) Signer() (common.Address, bool) {
	s := c.sessions.Current()
	if s == nil {
		return common.Address{}, false
	}
	return s.Signer, true
}

// Refresh 立即刷新视图
func (c *Controller) Refresh(ctx context.Context) error {
	return c.view.Refresh(ctx)
}
