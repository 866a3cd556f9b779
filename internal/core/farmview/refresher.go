// Package farmview 刷新农场列表与余额，并按刻度计算奖励估算
package farmview

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/p2efarm/pkg/types"
)

const (
	// DefaultTick 估算重算间隔
	DefaultTick = time.Second

	// 单次刷新的并发上限
	fetchConcurrency = 8

	metadataKeyPrefix = "token-metadata:"
)

// fallbackMetadata 元数据查询失败时使用
var fallbackMetadata = types.TokenMetadata{Symbol: "CRT", Decimals: 18}

// SessionSource 当前会话来源
type SessionSource interface {
	Current() *session.Session
}

// FarmView 一个农场的展示数据
type FarmView struct {
	Farm      *types.Farm          `json:"farm"`
	SellPrice *big.Int             `json:"sell_price,omitempty"` // getFarmSellPrice 失败时为 nil
	Estimate  types.RewardEstimate `json:"estimate"`
}

// Snapshot 一次刷新的完整结果，整体替换
type Snapshot struct {
	SessionID   string              `json:"session_id,omitempty"`
	Signer      common.Address      `json:"signer"`
	Balance     *big.Int            `json:"balance,omitempty"`
	Token       types.TokenMetadata `json:"token"`
	Farms       []FarmView          `json:"farms"`
	Tick        uint64              `json:"tick"`
	RefreshedAt time.Time           `json:"refreshed_at"`
}

// Deps 刷新器依赖；Bus、Store 与 Metrics 可为 nil
type Deps struct {
	Sessions SessionSource
	Bus      event.EventBus
	Store    storage.MemoryStore
	Clock    clock.Clock
	Logger   log.Logger
	Metrics  *metrics.Metrics
	Tick     time.Duration
}

// Refresher 农场视图刷新器
//
// 不变量：
//   - 快照只被整体替换，农场顺序与 getIdsFarm 返回顺序一致
//   - 过期刷新（会话已替换或有更新的刷新已提交）的结果被丢弃
//   - 估算每个刻度只计算一次
type Refresher struct {
	mu        sync.RWMutex
	snap      Snapshot
	committed uint64
	tick      uint64

	seq atomic.Uint64

	deps Deps

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	handlers    []subscription
}

type subscription struct {
	topic   event.EventType
	handler interface{}
}

// NewRefresher 创建刷新器
func NewRefresher(deps Deps) *Refresher {
	if deps.Tick <= 0 {
		deps.Tick = DefaultTick
	}
	return &Refresher{deps: deps}
}

// Snapshot 返回当前快照的副本
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.snap
	s.Tick = r.tick
	s.Farms = append([]FarmView(nil), r.snap.Farms...)
	return s
}

// Start 订阅会话与交易事件并启动刻度循环
func (r *Refresher) Start(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	if r.deps.Bus != nil {
		subs := []subscription{
			{infraevent.TopicSessionChanged, func(*session.Session) { r.refreshAsync(loopCtx) }},
			{infraevent.TopicTxPending, func(txflow.PendingTx) { r.refreshAsync(loopCtx) }},
			{infraevent.TopicTxCleared, func(txflow.PendingTx) { r.refreshAsync(loopCtx) }},
		}
		for _, s := range subs {
			if err := r.deps.Bus.SubscribeAsync(s.topic, s.handler, true); err != nil {
				cancel()
				r.unsubscribeLocked()
				return fmt.Errorf("subscribe %s: %w", s.topic, err)
			}
			r.handlers = append(r.handlers, s)
		}
	}

	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)

	r.deps.Logger.Infof("农场视图刷新器已启动 tick=%s", r.deps.Tick)
	return nil
}

// Stop 停止刻度循环并取消订阅
func (r *Refresher) Stop() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.unsubscribeLocked()
	r.deps.Logger.Info("农场视图刷新器已停止")
}

func (r *Refresher) unsubscribeLocked() {
	for _, s := range r.handlers {
		_ = r.deps.Bus.Unsubscribe(s.topic, s.handler)
	}
	r.handlers = nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.deps.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick 刻度加一并用当前时间重算全部估算，不修改链上数据
func (r *Refresher) Tick() uint64 {
	now := r.deps.Clock.Now()

	r.mu.Lock()
	r.tick++
	tick := r.tick
	if len(r.snap.Farms) > 0 {
		farms := make([]FarmView, len(r.snap.Farms))
		for i, v := range r.snap.Farms {
			v.Estimate = EstimateReward(v.Farm, now)
			farms[i] = v
		}
		r.snap.Farms = farms
	}
	r.mu.Unlock()

	if r.deps.Bus != nil {
		r.deps.Bus.Publish(infraevent.TopicViewTick, tick)
	}
	return tick
}

// Clear 清空快照，正在进行的刷新结果将被丢弃
func (r *Refresher) Clear() {
	r.commit(r.seq.Add(1), Snapshot{})
}

func (r *Refresher) refreshAsync(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.deps.Logger.Warnf("刷新农场视图失败: %v", err)
	}
}

// Refresh 重新读取余额与农场列表
//
// 无会话时快照清空。读取失败时保留上一次快照并返回错误。
func (r *Refresher) Refresh(ctx context.Context) error {
	seq := r.seq.Add(1)

	s := r.deps.Sessions.Current()
	if s == nil {
		r.commit(seq, Snapshot{})
		return nil
	}

	start := r.deps.Clock.Now()
	snap, err := r.fetch(ctx, s)
	if r.deps.Metrics != nil {
		r.deps.Metrics.RefreshDuration.Observe(r.deps.Clock.Since(start).Seconds())
	}
	if err != nil {
		if r.deps.Metrics != nil {
			r.deps.Metrics.RefreshErrors.Inc()
		}
		return fmt.Errorf("refresh session %s: %w", s.ID, err)
	}

	if cur := r.deps.Sessions.Current(); cur == nil || cur.ID != s.ID {
		r.deps.Logger.Debugf("会话已替换，丢弃刷新结果 session=%s", s.ID)
		return nil
	}
	r.commit(seq, snap)
	return nil
}

func (r *Refresher) fetch(ctx context.Context, s *session.Session) (Snapshot, error) {
	balance, err := s.Token.BalanceOf(ctx, s.Signer)
	if err != nil {
		return Snapshot{}, fmt.Errorf("balanceOf: %w", err)
	}

	ids, err := s.Farm.GetIdsFarm(ctx, s.Signer)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getIdsFarm: %w", err)
	}

	views := make([]FarmView, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			farm, err := s.Farm.AllFarms(gctx, id)
			if err != nil {
				return fmt.Errorf("allFarms(%s): %w", id, err)
			}
			price, err := s.Farm.GetFarmSellPrice(gctx, id)
			if err != nil {
				r.deps.Logger.Warnf("查询出售价格失败 id=%s: %v", id, err)
				price = nil
			}
			views[i] = FarmView{Farm: farm, SellPrice: price}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	now := r.deps.Clock.Now()
	for i := range views {
		views[i].Estimate = EstimateReward(views[i].Farm, now)
	}

	return Snapshot{
		SessionID:   s.ID,
		Signer:      s.Signer,
		Balance:     balance,
		Token:       r.metadata(ctx, s),
		Farms:       views,
		RefreshedAt: now,
	}, nil
}

// metadata 读取代币元数据，优先使用缓存
func (r *Refresher) metadata(ctx context.Context, s *session.Session) types.TokenMetadata {
	key := metadataKeyPrefix + s.Token.Address().Hex()

	if r.deps.Store != nil {
		if raw, found, err := r.deps.Store.Get(ctx, key); err == nil && found {
			var meta types.TokenMetadata
			if err := json.Unmarshal(raw, &meta); err == nil {
				return meta
			}
		}
	}

	meta, err := s.Token.Metadata(ctx)
	if err != nil {
		r.deps.Logger.Warnf("查询代币元数据失败，使用默认值: %v", err)
		fallback := fallbackMetadata
		fallback.Address = s.Token.Address()
		return fallback
	}

	if r.deps.Store != nil {
		if raw, err := json.Marshal(meta); err == nil {
			if err := r.deps.Store.Set(ctx, key, raw, 0); err != nil {
				r.deps.Logger.Debugf("缓存代币元数据失败: %v", err)
			}
		}
	}
	return meta
}

func (r *Refresher) commit(seq uint64, snap Snapshot) {
	r.mu.Lock()
	if seq < r.committed {
		r.mu.Unlock()
		return
	}
	r.committed = seq
	r.snap = snap
	farms := len(snap.Farms)
	r.mu.Unlock()

	if r.deps.Metrics != nil {
		r.deps.Metrics.Farms.Set(float64(farms))
	}
	if r.deps.Bus != nil {
		r.deps.Bus.Publish(infraevent.TopicViewRefreshed)
	}
}
