package txflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/weisyn/p2efarm/internal/core/alert"
	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// 错误定义
var (
	ErrNoSession = errors.New("no active session")
	ErrBusy      = errors.New("another transaction is in progress")
)

// 用户提示
const (
	MessageTxFailed = "Transaction failed. Please try again."
	MessageBusy     = "Another transaction is already in progress."
)

// SessionSource 当前会话来源
type SessionSource interface {
	Current() *session.Session
}

// Deps 编排器依赖；Bus 与 Metrics 可为 nil
type Deps struct {
	Sessions SessionSource
	Alerts   *alert.Queue
	Bus      event.EventBus
	Clock    clock.Clock
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

// Result 成功提交的结果
type Result struct {
	Kind         Kind              `json:"kind"`
	ApprovalHash common.Hash       `json:"approval_hash,omitempty"`
	Hash         common.Hash       `json:"hash"`
	Receipt      *ethtypes.Receipt `json:"-"`
	Duration     time.Duration     `json:"duration"`
}

// Orchestrator 交易编排器
//
// 不变量：
//   - 同一时刻至多一个 Submit 在执行，其余立即返回 ErrBusy
//   - 授权总在主调用之前，授权失败时不会发起主调用
//   - 待确认交易一旦设置，恰好清除一次
type Orchestrator struct {
	mu      sync.Mutex
	busy    bool
	pending *PendingTx

	deps Deps
}

// NewOrchestrator 创建编排器
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Busy 是否有交易在执行
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Pending 当前待确认交易，没有时为 nil
func (o *Orchestrator) Pending() *PendingTx {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return nil
	}
	p := *o.pending
	return &p
}

// ClearPending 会话重置时清除待确认交易
func (o *Orchestrator) ClearPending() {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()

	if p != nil {
		o.publish(infraevent.TopicTxCleared, *p)
	}
}

// Submit 执行一次操作并等待确认
//
// 无会话时静默返回 ErrNoSession；其余失败记录原始错误并推送统一的失败告警。
func (o *Orchestrator) Submit(ctx context.Context, action Action) (*Result, error) {
	job, err := o.Begin(action)
	if err != nil {
		return nil, err
	}
	return job.Run(ctx)
}

// Begin 同步完成会话、参数与 busy 检查并占用 busy 标志
//
// 返回的 Job 必须恰好执行一次 Run，busy 标志在 Run 结束时释放。
func (o *Orchestrator) Begin(action Action) (*Job, error) {
	s := o.deps.Sessions.Current()
	if s == nil {
		return nil, ErrNoSession
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		o.deps.Alerts.Error(MessageBusy)
		o.observe(action.Kind, metrics.OutcomeRejected, 0)
		return nil, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()

	return &Job{o: o, session: s, action: action}, nil
}

// Job 已占用 busy 标志、等待执行的操作
type Job struct {
	o       *Orchestrator
	session *session.Session
	action  Action
	once    sync.Once
}

// Action 待执行的操作
func (j *Job) Action() Action { return j.action }

// Run 执行操作并等待确认；重复调用返回错误
func (j *Job) Run(ctx context.Context) (*Result, error) {
	ran := false
	var (
		result *Result
		err    error
	)
	j.once.Do(func() {
		ran = true
		result, err = j.o.execute(ctx, j.session, j.action)
	})
	if !ran {
		return nil, errors.New("job already run")
	}
	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, s *session.Session, action Action) (*Result, error) {
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	logger := o.deps.Logger.With("session", s.ID, "kind", string(action.Kind))
	start := o.deps.Clock.Now()

	result, err := o.run(ctx, s, action, logger)
	elapsed := o.deps.Clock.Since(start)
	if err != nil {
		logger.Errorf("交易失败: %v", err)
		o.deps.Alerts.Error(MessageTxFailed)
		o.observe(action.Kind, metrics.OutcomeFailed, elapsed)
		return nil, err
	}

	result.Duration = elapsed
	logger.Infof("交易已确认 hash=%s 耗时=%s", result.Hash.Hex(), elapsed)
	o.deps.Alerts.Success(action.Kind.SuccessMessage())
	o.observe(action.Kind, metrics.OutcomeSuccess, elapsed)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, s *session.Session, action Action, logger log.Logger) (*Result, error) {
	result := &Result{Kind: action.Kind}

	if action.Kind.RequiresApproval() {
		price, err := o.price(ctx, s, action)
		if err != nil {
			return nil, fmt.Errorf("query price: %w", err)
		}

		hash, err := s.Token.Approve(ctx, s.Farm.Address(), price)
		if err != nil {
			return nil, fmt.Errorf("approve %s: %w", price, err)
		}
		logger.Debugf("授权已提交 hash=%s amount=%s", hash.Hex(), price)

		if _, err := s.Confirmer.WaitMined(ctx, hash); err != nil {
			return nil, fmt.Errorf("wait approval %s: %w", hash.Hex(), err)
		}
		result.ApprovalHash = hash
	}

	hash, err := o.call(ctx, s, action)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action.Kind, err)
	}

	o.setPending(PendingTx{Hash: hash, Kind: action.Kind})
	defer o.clearPending(hash)

	receipt, err := s.Confirmer.WaitMined(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", hash.Hex(), err)
	}

	result.Hash = hash
	result.Receipt = receipt
	return result, nil
}

func (o *Orchestrator) price(ctx context.Context, s *session.Session, action Action) (*big.Int, error) {
	switch action.Kind {
	case KindBuy:
		return s.Farm.FarmPrice(ctx)
	case KindUpgradeCapacity:
		return s.Farm.CurrentCostUpgradeMaxCapacity(ctx, action.Level)
	case KindUpgradeRate:
		return s.Farm.CurrentCostUpgradeRewardRate(ctx, action.Level)
	default:
		return nil, fmt.Errorf("%w: %s has no price", ErrInvalidAction, action.Kind)
	}
}

func (o *Orchestrator) call(ctx context.Context, s *session.Session, action Action) (common.Hash, error) {
	switch action.Kind {
	case KindBuy:
		return s.Farm.BuyFarm(ctx)
	case KindUpgradeCapacity:
		return s.Farm.UpgradeMaxCapacity(ctx, action.FarmID)
	case KindUpgradeRate:
		return s.Farm.UpgradeRewardRate(ctx, action.FarmID)
	case KindClaim:
		return s.Farm.ClaimRewards(ctx, action.FarmID)
	case KindSell:
		return s.Farm.SellFarm(ctx, action.FarmID)
	case KindTransfer:
		return s.Token.Transfer(ctx, action.To, action.Amount)
	default:
		return common.Hash{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, action.Kind)
	}
}

func (o *Orchestrator) setPending(p PendingTx) {
	o.mu.Lock()
	o.pending = &p
	o.mu.Unlock()

	o.publish(infraevent.TopicTxPending, p)
}

// clearPending 只清除仍是 hash 的待确认交易，已被 ClearPending 清除时什么也不做
func (o *Orchestrator) clearPending(hash common.Hash) {
	o.mu.Lock()
	if o.pending == nil || o.pending.Hash != hash {
		o.mu.Unlock()
		return
	}
	p := *o.pending
	o.pending = nil
	o.mu.Unlock()

	o.publish(infraevent.TopicTxCleared, p)
}

func (o *Orchestrator) publish(topic event.EventType, p PendingTx) {
	if o.deps.Bus != nil {
		o.deps.Bus.Publish(topic, p)
	}
}

func (o *Orchestrator) observe(kind Kind, outcome string, elapsed time.Duration) {
	if o.deps.Metrics == nil {
		return
	}
	o.deps.Metrics.TxTotal.WithLabelValues(string(kind), outcome).Inc()
	if outcome != metrics.OutcomeRejected {
		o.deps.Metrics.TxDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	}
}
