package testutil

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
	"github.com/weisyn/p2efarm/pkg/types"
)

// 测试常量
const (
	SepoliaChainID = "0xaa36a7"
	MainnetChainID = "0x1"
)

// 测试地址
var (
	Alice        = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	Bob          = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
	FarmAddress  = common.HexToAddress("0xEC23e89F986522Ce570f13413C069EeF7536E70D")
	TokenAddress = common.HexToAddress("0x0388DdFE3627F48b084782EC291A4D00c6f08b6a")
)

// FakeChain 共享调用记录的一套合约实现
type FakeChain struct {
	Calls     *CallLog
	Token     *FakeToken
	Farm      *FakeFarm
	Confirmer *FakeConfirmer
}

// NewFakeChain 创建默认价格的合约集合：农场 100，容量升级 30，速率升级 20
func NewFakeChain() *FakeChain {
	calls := &CallLog{}
	hashes := &hashSource{}

	return &FakeChain{
		Calls: calls,
		Token: &FakeToken{
			address:  TokenAddress,
			balances: make(map[common.Address]*big.Int),
			meta:     types.TokenMetadata{Address: TokenAddress, Symbol: "CRT", Decimals: 18},
			errs:     make(map[string]error),
			calls:    calls,
			hashes:   hashes,
		},
		Farm: &FakeFarm{
			address:    FarmAddress,
			ids:        make(map[common.Address][]*big.Int),
			farms:      make(map[string]*types.Farm),
			sellPrices: make(map[string]*big.Int),
			price:      big.NewInt(100),
			capCost:    big.NewInt(30),
			rateCost:   big.NewInt(20),
			errs:       make(map[string]error),
			calls:      calls,
			hashes:     hashes,
		},
		Confirmer: &FakeConfirmer{
			failing: make(map[common.Hash]error),
			calls:   calls,
		},
	}
}

// Bindings 以接口形式返回
func (c *FakeChain) Bindings() game.Bindings {
	return game.Bindings{Token: c.Token, Farm: c.Farm, Confirmer: c.Confirmer}
}

// Binder 与 session.Binder 兼容的绑定函数
func (c *FakeChain) Binder() func(ctx context.Context, provider wallet.Provider, account common.Address) (game.Bindings, error) {
	return func(context.Context, wallet.Provider, common.Address) (game.Bindings, error) {
		return c.Bindings(), nil
	}
}

// NewFarm 构造农场记录
func NewFarm(owner common.Address, id, capLevel, rateLevel, lastClaim int64) *types.Farm {
	return &types.Farm{
		Owner:         owner,
		ID:            big.NewInt(id),
		RateLevel:     big.NewInt(rateLevel),
		CapacityLevel: big.NewInt(capLevel),
		Balance:       big.NewInt(0),
		LastClaimTime: big.NewInt(lastClaim),
	}
}
