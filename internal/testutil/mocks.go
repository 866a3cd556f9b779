// Package testutil 提供控制器测试的辅助工具
//
// 本包提供钱包、合约与日志的内存实现，所有实现都是并发安全的。
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
	"github.com/weisyn/p2efarm/pkg/types"
)

// ==================== 日志 ====================

// BehavioralMockLogger 记录所有日志调用，用于验证日志行为
type BehavioralMockLogger struct {
	logs  []string
	mutex sync.Mutex
}

func (m *BehavioralMockLogger) record(prefix, msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = append(m.logs, prefix+msg)
}

func (m *BehavioralMockLogger) Debug(msg string) { m.record("DEBUG: ", msg) }
func (m *BehavioralMockLogger) Debugf(format string, args ...interface{}) {
	m.record("DEBUG: ", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Info(msg string) { m.record("INFO: ", msg) }
func (m *BehavioralMockLogger) Infof(format string, args ...interface{}) {
	m.record("INFO: ", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Warn(msg string) { m.record("WARN: ", msg) }
func (m *BehavioralMockLogger) Warnf(format string, args ...interface{}) {
	m.record("WARN: ", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Error(msg string) { m.record("ERROR: ", msg) }
func (m *BehavioralMockLogger) Errorf(format string, args ...interface{}) {
	m.record("ERROR: ", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Fatal(msg string) { m.record("FATAL: ", msg) }
func (m *BehavioralMockLogger) Fatalf(format string, args ...interface{}) {
	m.record("FATAL: ", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) With(args ...interface{}) log.Logger { return m }
func (m *BehavioralMockLogger) Sync() error                         { return nil }
func (m *BehavioralMockLogger) GetZapLogger() *zap.Logger           { return zap.NewNop() }

// Logs 返回已记录日志的副本
func (m *BehavioralMockLogger) Logs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]string, len(m.logs))
	copy(out, m.logs)
	return out
}

// Contains 任意一条日志包含 substr 时返回 true
func (m *BehavioralMockLogger) Contains(substr string) bool {
	for _, line := range m.Logs() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// ==================== 调用记录 ====================

// CallLog 记录跨合约的调用顺序
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Add 追加一条调用
func (c *CallLog) Add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

// Calls 返回调用副本
func (c *CallLog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count 某个调用出现的次数
func (c *CallLog) Count(call string) int {
	n := 0
	for _, got := range c.Calls() {
		if got == call {
			n++
		}
	}
	return n
}

// ==================== 钱包 ====================

// FakeProvider 内存钱包提供者
type FakeProvider struct {
	mu       sync.Mutex
	chainID  string
	accounts []common.Address
	known    []common.Address // AccountManager 视角的全部账户
	errs     map[string]error
	requests []string
	watched  []wallet.WatchAssetParams
	sent     []wallet.SendTxArgs
	handlers map[int]func(wallet.Event)
	nextSub  int
	subTotal int
	backend  wallet.Backend
}

// NewFakeProvider 创建位于 chainID 上、持有 accounts 的提供者
func NewFakeProvider(chainID string, accounts ...common.Address) *FakeProvider {
	return &FakeProvider{
		chainID:  chainID,
		accounts: accounts,
		known:    append([]common.Address{}, accounts...),
		errs:     make(map[string]error),
		handlers: make(map[int]func(wallet.Event)),
	}
}

var (
	_ wallet.Provider       = (*FakeProvider)(nil)
	_ wallet.AccountManager = (*FakeProvider)(nil)
)

// SetChainID 修改当前链（不触发事件）
func (p *FakeProvider) SetChainID(chainID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainID = chainID
}

// SetAccounts 修改账户列表（不触发事件）
func (p *FakeProvider) SetAccounts(accounts ...common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

// FailMethod 让 method 返回 err；err 为 nil 时恢复
func (p *FakeProvider) FailMethod(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, method)
		return
	}
	p.errs[method] = err
}

// SetBackend 设置链读取后端
func (p *FakeProvider) SetBackend(b wallet.Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend = b
}

// Request 实现 wallet.Provider
func (p *FakeProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	p.mu.Lock()
	p.requests = append(p.requests, method)
	if err := p.errs[method]; err != nil {
		p.mu.Unlock()
		return err
	}

	var value interface{}
	switch method {
	case wallet.MethodChainID:
		value = p.chainID
	case wallet.MethodRequestAccounts, wallet.MethodAccounts:
		value = append([]common.Address{}, p.accounts...)
	case wallet.MethodWatchAsset:
		if len(params) > 0 {
			if asset, ok := params[0].(wallet.WatchAssetParams); ok {
				p.watched = append(p.watched, asset)
			}
		}
		value = true
	case wallet.MethodSendTransaction:
		if len(params) > 0 {
			if args, ok := params[0].(wallet.SendTxArgs); ok {
				p.sent = append(p.sent, args)
			}
		}
		value = common.BigToHash(big.NewInt(int64(len(p.sent)))).Hex()
	default:
		p.mu.Unlock()
		return fmt.Errorf("method %s not supported", method)
	}
	p.mu.Unlock()

	return assign(result, value)
}

// Subscribe 实现 wallet.Provider
func (p *FakeProvider) Subscribe(handler func(wallet.Event)) (wallet.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSub++
	p.subTotal++
	id := p.nextSub
	p.handlers[id] = handler
	return &fakeSubscription{unsubscribe: func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}}, nil
}

// Backend 实现 wallet.Provider
func (p *FakeProvider) Backend() wallet.Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

// Close 实现 wallet.Provider
func (p *FakeProvider) Close() error { return nil }

// Emit 同步向全部处理器推送事件
func (p *FakeProvider) Emit(ev wallet.Event) {
	p.mu.Lock()
	handlers := make([]func(wallet.Event), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Accounts 实现 wallet.AccountManager
func (p *FakeProvider) Accounts() []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address{}, p.known...)
}

// SwitchAccount 实现 wallet.AccountManager，同步推送 accountsChanged
func (p *FakeProvider) SwitchAccount(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.known) {
		p.mu.Unlock()
		return fmt.Errorf("%w: index %d", wallet.ErrUnknownAccount, index)
	}
	addr := p.known[index]
	p.accounts = []common.Address{addr}
	p.mu.Unlock()

	p.Emit(wallet.Event{Name: wallet.EventAccountsChanged, Accounts: []common.Address{addr}})
	return nil
}

// Lock 实现 wallet.AccountManager
func (p *FakeProvider) Lock() {
	p.mu.Lock()
	p.accounts = nil
	p.mu.Unlock()

	p.Emit(wallet.Event{Name: wallet.EventAccountsChanged})
}

// ActiveSubscriptions 当前订阅数
func (p *FakeProvider) ActiveSubscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}

// TotalSubscriptions 累计订阅次数
func (p *FakeProvider) TotalSubscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subTotal
}

// Requests 已收到的方法名
func (p *FakeProvider) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	copy(out, p.requests)
	return out
}

// WatchedAssets 已收到的 wallet_watchAsset 请求
func (p *FakeProvider) WatchedAssets() []wallet.WatchAssetParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.WatchAssetParams{}, p.watched...)
}

// SentTransactions 已收到的 eth_sendTransaction 请求
func (p *FakeProvider) SentTransactions() []wallet.SendTxArgs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.SendTxArgs{}, p.sent...)
}

type fakeSubscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *fakeSubscription) Unsubscribe() { s.once.Do(s.unsubscribe) }

// assign 经 JSON 往返把 value 写入 result
func assign(result, value interface{}) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

// ==================== 合约 ====================

// hashSource 顺序生成交易哈希
type hashSource struct {
	mu   sync.Mutex
	next int64
}

func (h *hashSource) hash() common.Hash {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	return common.BigToHash(big.NewInt(h.next))
}

// FakeToken 内存 ERC-20
type FakeToken struct {
	mu       sync.Mutex
	address  common.Address
	balances map[common.Address]*big.Int
	meta     types.TokenMetadata
	errs     map[string]error
	calls    *CallLog
	hashes   *hashSource
	metaHits int
}

var _ game.TokenContract = (*FakeToken)(nil)

// SetBalance 设置余额
func (t *FakeToken) SetBalance(owner common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[owner] = new(big.Int).Set(amount)
}

// Fail 让 method 返回 err；err 为 nil 时恢复
func (t *FakeToken) Fail(method string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.errs, method)
		return
	}
	t.errs[method] = err
}

// MetadataCalls Metadata 被调用次数
func (t *FakeToken) MetadataCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metaHits
}

func (t *FakeToken) err(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errs[method]
}

func (t *FakeToken) Address() common.Address { return t.address }

func (t *FakeToken) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	t.calls.Add("balanceOf")
	if err := t.err("balanceOf"); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (t *FakeToken) Metadata(ctx context.Context) (types.TokenMetadata, error) {
	t.mu.Lock()
	t.metaHits++
	t.mu.Unlock()
	if err := t.err("metadata"); err != nil {
		return types.TokenMetadata{}, err
	}
	return t.meta, nil
}

func (t *FakeToken) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	t.calls.Add(fmt.Sprintf("approve(%s)", amount))
	if err := t.err("approve"); err != nil {
		return common.Hash{}, err
	}
	return t.hashes.hash(), nil
}

func (t *FakeToken) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	t.calls.Add(fmt.Sprintf("transfer(%s)", amount))
	if err := t.err("transfer"); err != nil {
		return common.Hash{}, err
	}
	return t.hashes.hash(), nil
}

// FakeFarm 内存农场合约
type FakeFarm struct {
	mu         sync.Mutex
	address    common.Address
	ids        map[common.Address][]*big.Int
	farms      map[string]*types.Farm
	sellPrices map[string]*big.Int
	price      *big.Int
	capCost    *big.Int
	rateCost   *big.Int
	errs       map[string]error
	calls      *CallLog
	hashes     *hashSource
	readGate   chan struct{}
}

var _ game.FarmContract = (*FakeFarm)(nil)

// AddFarm 登记一个属于 farm.Owner 的农场
func (f *FakeFarm) AddFarm(farm *types.Farm, sellPrice *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[farm.Owner] = append(f.ids[farm.Owner], farm.ID)
	f.farms[farm.ID.String()] = farm
	if sellPrice != nil {
		f.sellPrices[farm.ID.String()] = sellPrice
	}
}

// SetPrices 设置购买与升级价格
func (f *FakeFarm) SetPrices(farmPrice, capCost, rateCost *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price, f.capCost, f.rateCost = farmPrice, capCost, rateCost
}

// Fail 让 method 返回 err；err 为 nil 时恢复
func (f *FakeFarm) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// BlockReads 让 getIdsFarm 阻塞直到返回的函数被调用
func (f *FakeFarm) BlockReads() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.readGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.readGate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *FakeFarm) err(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[method]
}

func (f *FakeFarm) Address() common.Address { return f.address }

func (f *FakeFarm) GetIdsFarm(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	f.calls.Add("getIdsFarm")
	f.mu.Lock()
	gate := f.readGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.err("getIdsFarm"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]*big.Int, len(f.ids[owner]))
	for i, id := range f.ids[owner] {
		ids[i] = new(big.Int).Set(id)
	}
	return ids, nil
}

func (f *FakeFarm) AllFarms(ctx context.Context, id *big.Int) (*types.Farm, error) {
	if err := f.err("allFarms"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	farm, ok := f.farms[id.String()]
	if !ok {
		return nil, fmt.Errorf("farm %s not found", id)
	}
	cp := *farm
	return &cp, nil
}

func (f *FakeFarm) FarmPrice(ctx context.Context) (*big.Int, error) {
	f.calls.Add("FARM_PRICE")
	if err := f.err("FARM_PRICE"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.price), nil
}

func (f *FakeFarm) CurrentCostUpgradeMaxCapacity(ctx context.Context, level *big.Int) (*big.Int, error) {
	f.calls.Add(fmt.Sprintf("currentCostUpgradeMaxCapacity(%s)", level))
	if err := f.err("currentCostUpgradeMaxCapacity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.capCost), nil
}

func (f *FakeFarm) CurrentCostUpgradeRewardRate(ctx context.Context, level *big.Int) (*big.Int, error) {
	f.calls.Add(fmt.Sprintf("currentCostUpgradeRewardRate(%s)", level))
	if err := f.err("currentCostUpgradeRewardRate"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.rateCost), nil
}

func (f *FakeFarm) GetFarmSellPrice(ctx context.Context, id *big.Int) (*big.Int, error) {
	if err := f.err("getFarmSellPrice"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.sellPrices[id.String()]; ok {
		return new(big.Int).Set(p), nil
	}
	return big.NewInt(0), nil
}

func (f *FakeFarm) write(call string) (common.Hash, error) {
	f.calls.Add(call)
	name := call
	if i := strings.IndexByte(call, '('); i >= 0 {
		name = call[:i]
	}
	if err := f.err(name); err != nil {
		return common.Hash{}, err
	}
	return f.hashes.hash(), nil
}

func (f *FakeFarm) BuyFarm(ctx context.Context) (common.Hash, error) { return f.write("buyFarm") }

func (f *FakeFarm) UpgradeMaxCapacity(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.write(fmt.Sprintf("upgradeMaxCapacity(%s)", id))
}

func (f *FakeFarm) UpgradeRewardRate(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.write(fmt.Sprintf("upgradeRewardRate(%s)", id))
}

func (f *FakeFarm) ClaimRewards(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.write(fmt.Sprintf("claimRewards(%s)", id))
}

func (f *FakeFarm) SellFarm(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.write(fmt.Sprintf("sellFarm(%s)", id))
}

// FakeConfirmer 按哈希返回预设结果的确认器
type FakeConfirmer struct {
	mu      sync.Mutex
	failing map[common.Hash]error
	failAll error
	gate    chan struct{}
	waited  []common.Hash
	calls   *CallLog
}

var _ game.Confirmer = (*FakeConfirmer)(nil)

// FailHash 让指定哈希确认失败
func (c *FakeConfirmer) FailHash(hash common.Hash, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[hash] = err
}

// FailAll 让所有确认失败；err 为 nil 时恢复
func (c *FakeConfirmer) FailAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAll = err
}

// Hold 让 WaitMined 阻塞直到返回的函数被调用
func (c *FakeConfirmer) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.gate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Waited 已确认的哈希
func (c *FakeConfirmer) Waited() []common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Hash{}, c.waited...)
}

func (c *FakeConfirmer) WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	c.calls.Add("wait")
	c.mu.Lock()
	gate := c.gate
	c.waited = append(c.waited, hash)
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll != nil {
		return nil, c.failAll
	}
	if err := c.failing[hash]; err != nil {
		return nil, err
	}
	return &ethtypes.Receipt{TxHash: hash, Status: ethtypes.ReceiptStatusSuccessful}, nil
}
