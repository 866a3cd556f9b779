package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/weisyn/p2efarm/client/core/transport"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// RPCOptions 外部钱包桥配置
type RPCOptions struct {
	Endpoint       string        // 钱包 JSON-RPC 地址
	EventsEndpoint string        // 钱包事件 WebSocket 地址，可为空
	Timeout        time.Duration // 单次请求超时
}

// RPCProvider 通过 JSON-RPC 访问外部钱包桥
//
// 请求全部转发给钱包；事件来自可选的 WebSocket 推送流。
// 位置参数的请求走 go-ethereum rpc；EIP-747 的对象参数由 named 发送，二者共用一个 http.Client。
type RPCProvider struct {
	rc      *rpc.Client
	named   *transport.JSONRPCClient
	backend *ethclient.Client
	logger  log.Logger

	stream *transport.EventStream

	mu       sync.RWMutex
	handlers map[uint64]func(walletInterface.Event)
	nextID   uint64
}

var _ walletInterface.Provider = (*RPCProvider)(nil)

// NewRPCProvider 连接钱包桥
func NewRPCProvider(ctx context.Context, opts RPCOptions, logger log.Logger) (*RPCProvider, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("wallet endpoint is required")
	}

	named := transport.NewJSONRPCClient(opts.Endpoint, opts.Timeout)
	rc, err := rpc.DialOptions(ctx, opts.Endpoint, rpc.WithHTTPClient(named.HTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("dial wallet: %w", err)
	}

	p := &RPCProvider{
		rc:       rc,
		named:    named,
		backend:  ethclient.NewClient(rc),
		logger:   logger,
		handlers: make(map[uint64]func(walletInterface.Event)),
	}

	if opts.EventsEndpoint != "" {
		stream, err := transport.DialEventStream(ctx, opts.EventsEndpoint, p.dispatch, logger)
		if err != nil {
			p.backend.Close()
			return nil, fmt.Errorf("dial wallet events: %w", err)
		}
		p.stream = stream
	}

	logger.Infof("钱包桥已连接 endpoint=%s events=%t", opts.Endpoint, p.stream != nil)
	return p, nil
}

// Request 实现 wallet.Provider
func (p *RPCProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	var err error
	if method == walletInterface.MethodWatchAsset && len(params) == 1 {
		// EIP-747 的参数是对象，rpc.Client 只发送数组
		err = p.named.CallWithParams(ctx, result, method, params[0])
	} else {
		err = p.rc.CallContext(ctx, result, method, params...)
	}
	return mapWalletError(method, err)
}

func mapWalletError(method string, err error) error {
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == transport.CodeUserRejected {
		return fmt.Errorf("%s: %w: %w", method, walletInterface.ErrUserRejected, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}

// Subscribe 实现 wallet.Provider
func (p *RPCProvider) Subscribe(handler func(walletInterface.Event)) (walletInterface.Subscription, error) {
	if p.stream == nil {
		return nil, errors.New("wallet events endpoint is not configured")
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.handlers[id] = handler
	p.mu.Unlock()

	return &busSubscription{unsubscribe: func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}}, nil
}

// dispatch 解码 wallet_event 通知并分发
func (p *RPCProvider) dispatch(n transport.Notification) {
	if n.Method != transport.MethodWalletEvent {
		return
	}

	var ev walletInterface.Event
	if err := json.Unmarshal(n.Params, &ev); err != nil {
		p.logger.Warnf("无法解析钱包事件: %v", err)
		return
	}
	if ev.Name != walletInterface.EventAccountsChanged && ev.Name != walletInterface.EventChainChanged {
		p.logger.Debugf("忽略钱包事件 %s", ev.Name)
		return
	}

	p.mu.RLock()
	handlers := make([]func(walletInterface.Event), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Backend 实现 wallet.Provider
func (p *RPCProvider) Backend() walletInterface.Backend { return p.backend }

// Close 关闭事件流与后端连接
func (p *RPCProvider) Close() error {
	var err error
	if p.stream != nil {
		err = p.stream.Close()
	}
	p.backend.Close()
	return err
}
