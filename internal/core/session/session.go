// Package session 管理钱包连接生命周期与合约绑定
package session

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// State 连接状态
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText 以字符串形式序列化
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// 错误定义
var (
	ErrNoWallet          = errors.New("no wallet provider")
	ErrWrongNetwork      = errors.New("wallet is on the wrong network")
	ErrNoAccounts        = errors.New("wallet returned no accounts")
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrConnectAborted    = errors.New("connect aborted by reset")
	ErrInvalidAccount    = errors.New("invalid account address")
)

// 用户提示
const (
	MessageNoWallet      = "Please install a wallet provider!"
	MessageNoAccounts    = "No wallet account available."
	MessageConnectFailed = "Failed to connect wallet."
)

// Session 一次已认证的钱包会话
//
// 只由 Initialize 创建，整体替换，从不局部修改。
type Session struct {
	ID        string
	Provider  wallet.Provider
	Signer    common.Address
	Token     game.TokenContract
	Farm      game.FarmContract
	Confirmer game.Confirmer
	CreatedAt time.Time
}

// Binder 为账户创建绑定到固定部署地址的合约客户端
type Binder func(ctx context.Context, provider wallet.Provider, account common.Address) (game.Bindings, error)
