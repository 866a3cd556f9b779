// Package txflow 编排"先授权后执行"的农场交易
package txflow

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind 操作类型
type Kind string

const (
	KindBuy             Kind = "buy"
	KindUpgradeCapacity Kind = "upgrade-capacity"
	KindUpgradeRate     Kind = "upgrade-rate"
	KindClaim           Kind = "claim"
	KindSell            Kind = "sell"
	KindTransfer        Kind = "transfer"
)

// Kinds 全部操作类型
var Kinds = []Kind{KindBuy, KindUpgradeCapacity, KindUpgradeRate, KindClaim, KindSell, KindTransfer}

// ParseKind 解析操作类型
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, s)
}

// RequiresApproval 需要先授权代币的操作
func (k Kind) RequiresApproval() bool {
	switch k {
	case KindBuy, KindUpgradeCapacity, KindUpgradeRate:
		return true
	default:
		return false
	}
}

// SuccessMessage 成功提示
func (k Kind) SuccessMessage() string {
	switch k {
	case KindBuy:
		return "Farm purchased!"
	case KindUpgradeCapacity:
		return "Farm capacity upgraded!"
	case KindUpgradeRate:
		return "Farm reward rate upgraded!"
	case KindClaim:
		return "Rewards claimed!"
	case KindSell:
		return "Farm sold!"
	case KindTransfer:
		return "Tokens transferred!"
	default:
		return "Transaction confirmed!"
	}
}

// ErrInvalidAction 参数不完整或不合法
var ErrInvalidAction = errors.New("invalid action")

// Action 一次用户操作
//
// FarmID 用于 upgrade-*、claim、sell；Level 为 upgrade-* 的当前等级；
// To 与 Amount 用于 transfer。
type Action struct {
	Kind   Kind
	FarmID *big.Int
	Level  *big.Int
	To     common.Address
	Amount *big.Int
}

// Validate 检查操作参数
func (a Action) Validate() error {
	switch a.Kind {
	case KindBuy:
		return nil
	case KindUpgradeCapacity, KindUpgradeRate:
		if err := requirePositive("farm id", a.FarmID, true); err != nil {
			return err
		}
		return requirePositive("level", a.Level, false)
	case KindClaim, KindSell:
		return requirePositive("farm id", a.FarmID, true)
	case KindTransfer:
		if a.To == (common.Address{}) {
			return fmt.Errorf("%w: transfer recipient required", ErrInvalidAction)
		}
		return requirePositive("amount", a.Amount, false)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
}

// requirePositive allowZero 时允许 0
func requirePositive(name string, v *big.Int, allowZero bool) error {
	if v == nil {
		return fmt.Errorf("%w: %s required", ErrInvalidAction, name)
	}
	if v.Sign() < 0 || (!allowZero && v.Sign() == 0) {
		return fmt.Errorf("%w: %s out of range", ErrInvalidAction, name)
	}
	return nil
}

// PendingTx 已提交、待确认的主交易
type PendingTx struct {
	Hash common.Hash `json:"hash"`
	Kind Kind        `json:"kind"`
}
