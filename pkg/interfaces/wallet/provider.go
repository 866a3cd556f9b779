// Package wallet 定义钱包提供者接口
//
// 提供者遵循 EIP-1193 的模型：JSON-RPC 请求加上
// accountsChanged / chainChanged 两类事件。
package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// 钱包 JSON-RPC 方法
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodWatchAsset      = "wallet_watchAsset"
	MethodSendTransaction = "eth_sendTransaction"
)

// 钱包事件名
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

var (
	// ErrUserRejected 用户在钱包中拒绝了请求（EIP-1193 code 4001）
	ErrUserRejected = errors.New("user rejected request")
	// ErrUnknownAccount 账户索引或地址不存在
	ErrUnknownAccount = errors.New("unknown account")
	// ErrAccountsUnsupported 提供者不在本地管理账户
	ErrAccountsUnsupported = errors.New("wallet does not manage accounts locally")
)

// Event 钱包推送的事件
type Event struct {
	Name     string           `json:"name"`
	Accounts []common.Address `json:"accounts,omitempty"`
	ChainID  string           `json:"chain_id,omitempty"`
}

// Subscription 事件订阅句柄
type Subscription interface {
	// Unsubscribe 取消订阅，重复调用安全
	Unsubscribe()
}

// Backend 合约读取与回执查询所需的链访问能力
type Backend interface {
	bind.ContractCaller
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// SendTxArgs eth_sendTransaction 参数
type SendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  string          `json:"data,omitempty"`  // 0x 前缀十六进制
	Value string          `json:"value,omitempty"` // 0x 前缀十六进制
}

// WatchAssetParams wallet_watchAsset 参数
type WatchAssetParams struct {
	Type    string           `json:"type"`
	Options WatchAssetOption `json:"options"`
}

// WatchAssetOption ERC-20 代币描述
type WatchAssetOption struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Image    string `json:"image,omitempty"`
}

// Provider 钱包提供者
type Provider interface {
	// Request 发起 JSON-RPC 请求，结果解码到 result（可为 nil）
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error

	// Subscribe 注册事件处理器
	Subscribe(handler func(Event)) (Subscription, error)

	// Backend 链读取后端
	Backend() Backend

	// Close 释放连接
	Close() error
}

// AccountManager 本地管理账户的提供者
//
// SwitchAccount 与 Lock 通过 accountsChanged 通知订阅者，锁定时账户列表为空。
type AccountManager interface {
	Accounts() []common.Address
	SwitchAccount(index int) error
	Lock()
}
