package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
	"github.com/weisyn/p2efarm/pkg/types"
)

// Farm P2EFarm 合约客户端
type Farm struct {
	c *boundContract
}

var _ game.FarmContract = (*Farm)(nil)

// NewFarm 创建农场合约客户端
func NewFarm(address common.Address, provider walletInterface.Provider, account common.Address) *Farm {
	return &Farm{c: newBoundContract(address, farmABI, provider, account)}
}

// Address 合约地址
func (f *Farm) Address() common.Address { return f.c.address }

func (f *Farm) uint256(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := f.c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetIdsFarm 账户拥有的农场 id
func (f *Farm) GetIdsFarm(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	out, err := f.c.call(ctx, "getIdsFarm", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// AllFarms 读取农场记录
func (f *Farm) AllFarms(ctx context.Context, id *big.Int) (*types.Farm, error) {
	out, err := f.c.call(ctx, "allFarms", id)
	if err != nil {
		return nil, err
	}
	if len(out) != 6 {
		return nil, fmt.Errorf("allFarms: expected 6 outputs, got %d", len(out))
	}

	num := func(i int) *big.Int { return *abi.ConvertType(out[i], new(*big.Int)).(**big.Int) }
	return &types.Farm{
		Owner:         *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		ID:            num(1),
		RateLevel:     num(2),
		CapacityLevel: num(3),
		Balance:       num(4),
		LastClaimTime: num(5),
	}, nil
}

// FarmPrice 购买价格
func (f *Farm) FarmPrice(ctx context.Context) (*big.Int, error) {
	return f.uint256(ctx, "FARM_PRICE")
}

// CurrentCostUpgradeMaxCapacity 容量升级费用
func (f *Farm) CurrentCostUpgradeMaxCapacity(ctx context.Context, level *big.Int) (*big.Int, error) {
	return f.uint256(ctx, "currentCostUpgradeMaxCapacity", level)
}

// CurrentCostUpgradeRewardRate 速率升级费用
func (f *Farm) CurrentCostUpgradeRewardRate(ctx context.Context, level *big.Int) (*big.Int, error) {
	return f.uint256(ctx, "currentCostUpgradeRewardRate", level)
}

// GetFarmSellPrice 出售价格
func (f *Farm) GetFarmSellPrice(ctx context.Context, id *big.Int) (*big.Int, error) {
	return f.uint256(ctx, "getFarmSellPrice", id)
}

func (f *Farm) BuyFarm(ctx context.Context) (common.Hash, error) {
	return f.c.transact(ctx, "buyFarm")
}

func (f *Farm) UpgradeMaxCapacity(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.c.transact(ctx, "upgradeMaxCapacity", id)
}

func (f *Farm) UpgradeRewardRate(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.c.transact(ctx, "upgradeRewardRate", id)
}

func (f *Farm) ClaimRewards(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.c.transact(ctx, "claimRewards", id)
}

func (f *Farm) SellFarm(ctx context.Context, id *big.Int) (common.Hash, error) {
	return f.c.transact(ctx, "sellFarm", id)
}
