// Package game 定义农场游戏合约的访问接口
//
// 核心组件只依赖这里的接口，具体实现位于 client/core/contract，
// 测试中可替换为内存实现。
package game

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/weisyn/p2efarm/pkg/types"
)

// TokenContract ERC-20 奖励代币
type TokenContract interface {
	// Address 合约地址
	Address() common.Address

	// BalanceOf 查询余额
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// Metadata 查询 symbol / decimals
	Metadata(ctx context.Context) (types.TokenMetadata, error)

	// Approve 授权 spender 花费 amount，返回已提交交易哈希
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)

	// Transfer 转账，返回已提交交易哈希
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}

// FarmContract P2EFarm 管理合约
type FarmContract interface {
	Address() common.Address

	// ===== 只读 =====

	GetIdsFarm(ctx context.Context, owner common.Address) ([]*big.Int, error)
	AllFarms(ctx context.Context, id *big.Int) (*types.Farm, error)
	FarmPrice(ctx context.Context) (*big.Int, error)
	CurrentCostUpgradeMaxCapacity(ctx context.Context, level *big.Int) (*big.Int, error)
	CurrentCostUpgradeRewardRate(ctx context.Context, level *big.Int) (*big.Int, error)
	GetFarmSellPrice(ctx context.Context, id *big.Int) (*big.Int, error)

	// ===== 交易（返回已提交交易哈希） =====

	BuyFarm(ctx context.Context) (common.Hash, error)
	UpgradeMaxCapacity(ctx context.Context, id *big.Int) (common.Hash, error)
	UpgradeRewardRate(ctx context.Context, id *big.Int) (common.Hash, error)
	ClaimRewards(ctx context.Context, id *big.Int) (common.Hash, error)
	SellFarm(ctx context.Context, id *big.Int) (common.Hash, error)
}

// ErrReverted 交易已打包但执行失败
var ErrReverted = errors.New("transaction reverted")

// Confirmer 等待交易上链
type Confirmer interface {
	// WaitMined 阻塞直到交易被打包；回执状态失败时返回包装了 ErrReverted 的错误
	WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Bindings 一个会话绑定的全部合约客户端
type Bindings struct {
	Token     TokenContract
	Farm      FarmContract
	Confirmer Confirmer
}
