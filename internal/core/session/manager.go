package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/weisyn/p2efarm/internal/core/alert"
	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/network"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// Deps 会话管理器依赖；Bus 与 Metrics 可为 nil
type Deps struct {
	Provider wallet.Provider // 为 nil 表示未安装钱包
	Guard    *network.Guard
	Binder   Binder
	Alerts   *alert.Queue
	Bus      event.EventBus
	Clock    clock.Clock
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

// Manager 会话管理器
//
// 不变量：
//   - 任意时刻至多一个当前会话
//   - 钱包事件订阅至多一个，Reset 时注销
//   - 非 Connected 状态下收到的钱包事件被忽略
type Manager struct {
	mu      sync.Mutex
	state   State
	current *Session
	sub     wallet.Subscription
	epoch   uint64 // 每次 Reset 递增，用于丢弃过期的连接流程
	hooks   []func()

	deps Deps
}

// NewManager 创建会话管理器
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps}
}

// OnReset 注册 Reset 时调用的清理函数
func (m *Manager) OnReset(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Current 当前会话，未认证时为 nil
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// State 当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Provider 钱包提供者，可能为 nil
func (m *Manager) Provider() wallet.Provider { return m.deps.Provider }

// Connect 连接钱包
//
// 步骤：网络校验 → 请求账户 → Initialize(第一个账户) → 注册唯一的钱包事件订阅。
// 任一步失败时恢复到连接前的状态。
func (m *Manager) Connect(ctx context.Context) error {
	if m.deps.Provider == nil {
		m.deps.Alerts.Error(MessageNoWallet)
		return ErrNoWallet
	}

	m.mu.Lock()
	if m.state == Connecting {
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	prev := m.state
	epoch := m.epoch
	m.setStateLocked(Connecting)
	m.mu.Unlock()

	logger := m.deps.Logger
	logger.Debug("开始连接钱包")

	if !m.deps.Guard.Check(ctx) {
		m.restore(epoch, prev)
		return ErrWrongNetwork
	}

	var accounts []string
	if err := m.deps.Provider.Request(ctx, &accounts, wallet.MethodRequestAccounts); err != nil {
		logger.Warnf("请求账户失败: %v", err)
		m.restore(epoch, prev)
		if errors.Is(err, wallet.ErrUserRejected) {
			m.deps.Alerts.Error(MessageConnectFailed)
		} else {
			m.deps.Alerts.Error(MessageNoAccounts)
		}
		return fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		m.restore(epoch, prev)
		m.deps.Alerts.Error(MessageNoAccounts)
		return ErrNoAccounts
	}

	if err := m.initialize(ctx, accounts[0], &epoch); err != nil {
		m.restore(epoch, prev)
		if !errors.Is(err, ErrConnectAborted) {
			m.deps.Alerts.Error(MessageConnectFailed)
		}
		return err
	}

	if err := m.ensureSubscribed(); err != nil {
		// 会话已建立，事件订阅失败只影响账户切换的自动跟随
		logger.Warnf("订阅钱包事件失败: %v", err)
	}
	return nil
}

// Initialize 为 account 建立全新会话并替换当前会话
func (m *Manager) Initialize(ctx context.Context, account string) error {
	return m.initialize(ctx, account, nil)
}

// initialize 在 epoch 非空时要求期间没有发生 Reset
func (m *Manager) initialize(ctx context.Context, account string, epoch *uint64) error {
	if !common.IsHexAddress(account) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	signer := common.HexToAddress(account)

	bindings, err := m.deps.Binder(ctx, m.deps.Provider, signer)
	if err != nil {
		return fmt.Errorf("bind contracts for %s: %w", signer.Hex(), err)
	}

	s := &Session{
		ID:        uuid.NewString(),
		Provider:  m.deps.Provider,
		Signer:    signer,
		Token:     bindings.Token,
		Farm:      bindings.Farm,
		Confirmer: bindings.Confirmer,
		CreatedAt: m.deps.Clock.Now(),
	}

	m.mu.Lock()
	if epoch != nil && *epoch != m.epoch {
		m.mu.Unlock()
		return ErrConnectAborted
	}
	m.current = s
	m.setStateLocked(Connected)
	m.mu.Unlock()

	m.deps.Logger.Infof("会话已建立 session=%s signer=%s", s.ID, s.Signer.Hex())
	m.publish(s)
	return nil
}

// Reset 清除会话、注销钱包订阅并调用清理函数，可重复调用
func (m *Manager) Reset() {
	m.mu.Lock()
	changed := m.current != nil || m.state != Disconnected
	m.current = nil
	m.epoch++
	sub := m.sub
	m.sub = nil
	m.setStateLocked(Disconnected)
	hooks := append([]func(){}, m.hooks...)
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	for _, hook := range hooks {
		hook()
	}

	if changed {
		m.deps.Logger.Info("会话已重置")
		m.publish(nil)
	}
}

// Disconnect 用户主动断开
func (m *Manager) Disconnect() {
	m.Reset()
}

func (m *Manager) ensureSubscribed() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		return nil
	}
	epoch := m.epoch
	sub, err := m.deps.Provider.Subscribe(func(ev wallet.Event) { m.onWalletEvent(epoch, ev) })
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

func (m *Manager) onWalletEvent(epoch uint64, ev wallet.Event) {
	m.mu.Lock()
	ignore := m.state != Connected || epoch != m.epoch
	m.mu.Unlock()
	if ignore {
		m.deps.Logger.Debugf("忽略钱包事件 %s", ev.Name)
		return
	}

	switch ev.Name {
	case wallet.EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			m.Reset()
			return
		}
		// 以订阅时的 epoch 初始化，期间发生的 Reset 不会被覆盖
		err := m.initialize(context.Background(), ev.Accounts[0].Hex(), &epoch)
		switch {
		case err == nil:
		case errors.Is(err, ErrConnectAborted):
			m.deps.Logger.Debug("账户切换期间会话已重置")
		default:
			// 不保留旧账户的会话
			m.deps.Logger.Errorf("切换账户失败: %v", err)
			m.Reset()
			m.deps.Alerts.Error(MessageConnectFailed)
		}
	case wallet.EventChainChanged:
		// 合约客户端可能不再指向正确的链，必须重新连接
		m.Reset()
	default:
		m.deps.Logger.Debugf("未知钱包事件 %s", ev.Name)
	}
}

// restore 连接失败时回到 prev；期间发生过 Reset 则保持 Disconnected
func (m *Manager) restore(epoch uint64, prev State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.state != Connecting {
		return
	}
	if prev == Connected && m.current == nil {
		prev = Disconnected
	}
	m.setStateLocked(prev)
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionState.Set(float64(s))
	}
}

func (m *Manager) publish(s *Session) {
	if m.deps.Bus != nil {
		m.deps.Bus.Publish(infraevent.TopicSessionChanged, s)
	}
}
