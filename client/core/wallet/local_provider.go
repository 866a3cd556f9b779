package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// 错误定义
var (
	ErrLocked         = errors.New("wallet is locked")
	ErrUnknownAccount = walletInterface.ErrUnknownAccount
)

// LocalOptions 本地钱包配置
type LocalOptions struct {
	NodeURL          string
	Mnemonic         string
	Passphrase       string
	AccountCount     uint32
	KeystorePath     string
	KeystorePassword string
}

// LocalProvider 本地密钥钱包
//
// 账户请求、链 ID、资产跟踪与交易签名在本地完成，其余请求转发给链节点。
// 账户切换与锁定通过事件总线发出 accountsChanged。
type LocalProvider struct {
	client *ethclient.Client
	bus    event.EventBus
	logger log.Logger

	mu       sync.RWMutex
	accounts []Account
	active   int
	locked   bool
	chainID  *big.Int
	watched  []walletInterface.WatchAssetParams
}

var (
	_ walletInterface.Provider       = (*LocalProvider)(nil)
	_ walletInterface.AccountManager = (*LocalProvider)(nil)
)

// NewLocalProvider 加载密钥并连接链节点
func NewLocalProvider(ctx context.Context, opts LocalOptions, bus event.EventBus, logger log.Logger) (*LocalProvider, error) {
	var accounts []Account
	switch {
	case opts.Mnemonic != "":
		count := opts.AccountCount
		if count == 0 {
			count = 1
		}
		derived, err := DeriveAccounts(opts.Mnemonic, opts.Passphrase, count)
		if err != nil {
			return nil, err
		}
		accounts = derived
	case opts.KeystorePath != "":
		acct, err := LoadKeystore(opts.KeystorePath, opts.KeystorePassword)
		if err != nil {
			return nil, err
		}
		accounts = []Account{acct}
	default:
		return nil, errors.New("local wallet requires a mnemonic or a keystore")
	}

	client, err := ethclient.DialContext(ctx, opts.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	p := newLocalProvider(client, accounts, bus, logger)
	logger.Infof("本地钱包已加载 accounts=%d node=%s", len(accounts), opts.NodeURL)
	return p, nil
}

func newLocalProvider(client *ethclient.Client, accounts []Account, bus event.EventBus, logger log.Logger) *LocalProvider {
	return &LocalProvider{
		client:   client,
		bus:      bus,
		logger:   logger,
		accounts: accounts,
	}
}

// Accounts 全部本地账户地址
func (p *LocalProvider) Accounts() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]common.Address, len(p.accounts))
	for i, a := range p.accounts {
		out[i] = a.Address
	}
	return out
}

// SwitchAccount 切换当前账户并解锁
func (p *LocalProvider) SwitchAccount(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.accounts) {
		p.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrUnknownAccount, index)
	}
	p.active = index
	p.locked = false
	addr := p.accounts[index].Address
	p.mu.Unlock()

	p.emit(infraevent.TopicWalletAccountsChanged, walletInterface.Event{
		Name:     walletInterface.EventAccountsChanged,
		Accounts: []common.Address{addr},
	})
	return nil
}

// Lock 锁定钱包，之后不再暴露账户
func (p *LocalProvider) Lock() {
	p.mu.Lock()
	if p.locked {
		p.mu.Unlock()
		return
	}
	p.locked = true
	p.mu.Unlock()

	p.emit(infraevent.TopicWalletAccountsChanged, walletInterface.Event{Name: walletInterface.EventAccountsChanged})
}

// WatchedAssets 已接受的 wallet_watchAsset 请求
func (p *LocalProvider) WatchedAssets() []walletInterface.WatchAssetParams {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]walletInterface.WatchAssetParams{}, p.watched...)
}

// Request 实现 wallet.Provider
func (p *LocalProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	switch method {
	case walletInterface.MethodRequestAccounts, walletInterface.MethodAccounts:
		return assign(result, p.exposedAccounts())

	case walletInterface.MethodChainID:
		id, err := p.chain(ctx)
		if err != nil {
			return err
		}
		return assign(result, hexutil.EncodeBig(id))

	case walletInterface.MethodWatchAsset:
		var asset walletInterface.WatchAssetParams
		if err := decodeParam(params, &asset); err != nil {
			return err
		}
		p.mu.Lock()
		p.watched = append(p.watched, asset)
		p.mu.Unlock()
		p.logger.Infof("已跟踪资产 %s %s", asset.Options.Symbol, asset.Options.Address)
		return assign(result, true)

	case walletInterface.MethodSendTransaction:
		var args walletInterface.SendTxArgs
		if err := decodeParam(params, &args); err != nil {
			return err
		}
		hash, err := p.send(ctx, args)
		if err != nil {
			return err
		}
		return assign(result, hash.Hex())

	default:
		return p.client.Client().CallContext(ctx, result, method, params...)
	}
}

func (p *LocalProvider) exposedAccounts() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.locked || len(p.accounts) == 0 {
		return []common.Address{}
	}
	return []common.Address{p.accounts[p.active].Address}
}

func (p *LocalProvider) chain(ctx context.Context) (*big.Int, error) {
	p.mu.RLock()
	cached := p.chainID
	p.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	id, err := p.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	p.mu.Lock()
	p.chainID = id
	p.mu.Unlock()
	return id, nil
}

// send 用当前账户签名并广播交易（legacy gas price）
func (p *LocalProvider) send(ctx context.Context, args walletInterface.SendTxArgs) (common.Hash, error) {
	if args.To == nil {
		return common.Hash{}, errors.New("contract creation is not supported")
	}

	p.mu.RLock()
	locked := p.locked
	var acct Account
	if len(p.accounts) > 0 {
		acct = p.accounts[p.active]
	}
	p.mu.RUnlock()

	if locked {
		return common.Hash{}, ErrLocked
	}
	if acct.key == nil || acct.Address != args.From {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownAccount, args.From.Hex())
	}

	chainID, err := p.chain(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(acct.key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	if args.Value != "" {
		if opts.Value, err = hexutil.DecodeBig(args.Value); err != nil {
			return common.Hash{}, fmt.Errorf("invalid value: %w", err)
		}
	}
	var data []byte
	if args.Data != "" {
		if data, err = hexutil.Decode(args.Data); err != nil {
			return common.Hash{}, fmt.Errorf("invalid data: %w", err)
		}
	}

	if opts.GasPrice, err = p.client.SuggestGasPrice(ctx); err != nil {
		return common.Hash{}, fmt.Errorf("eth_gasPrice: %w", err)
	}

	contract := bind.NewBoundContract(*args.To, abi.ABI{}, p.client, p.client, p.client)
	tx, err := contract.RawTransact(opts, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	p.logger.Infof("交易已广播 hash=%s to=%s nonce=%d", tx.Hash().Hex(), args.To.Hex(), tx.Nonce())
	return tx.Hash(), nil
}

// Subscribe 实现 wallet.Provider，事件经事件总线异步投递
func (p *LocalProvider) Subscribe(handler func(walletInterface.Event)) (walletInterface.Subscription, error) {
	if p.bus == nil {
		return nil, errors.New("event bus is not configured")
	}

	// 两个主题使用不同的闭包，Unsubscribe 按函数指针匹配
	onAccounts := func(ev walletInterface.Event) { handler(ev) }
	onChain := func(ev walletInterface.Event) { handler(ev) }

	if err := p.bus.SubscribeAsync(infraevent.TopicWalletAccountsChanged, onAccounts, true); err != nil {
		return nil, err
	}
	if err := p.bus.SubscribeAsync(infraevent.TopicWalletChainChanged, onChain, true); err != nil {
		_ = p.bus.Unsubscribe(infraevent.TopicWalletAccountsChanged, onAccounts)
		return nil, err
	}

	return &busSubscription{unsubscribe: func() {
		_ = p.bus.Unsubscribe(infraevent.TopicWalletAccountsChanged, onAccounts)
		_ = p.bus.Unsubscribe(infraevent.TopicWalletChainChanged, onChain)
	}}, nil
}

func (p *LocalProvider) emit(topic event.EventType, ev walletInterface.Event) {
	if p.bus != nil {
		p.bus.Publish(topic, ev)
	}
}

// Backend 实现 wallet.Provider
func (p *LocalProvider) Backend() walletInterface.Backend { return p.client }

// Close 关闭节点连接
func (p *LocalProvider) Close() error {
	p.client.Close()
	return nil
}

type busSubscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *busSubscription) Unsubscribe() { s.once.Do(s.unsubscribe) }

// decodeParam 把第一个位置参数经 JSON 解码到 dst
func decodeParam(params []interface{}, dst interface{}) error {
	if len(params) == 0 {
		return errors.New("missing params")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

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
