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

// Token ERC-20 奖励代币客户端
type Token struct {
	c *boundContract
}

var _ game.TokenContract = (*Token)(nil)

// NewToken 创建代币客户端
func NewToken(address common.Address, provider walletInterface.Provider, account common.Address) *Token {
	return &Token{c: newBoundContract(address, tokenABI, provider, account)}
}

// Address 合约地址
func (t *Token) Address() common.Address { return t.c.address }

// BalanceOf 查询余额
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := t.c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Metadata 查询 symbol 与 decimals
func (t *Token) Metadata(ctx context.Context) (types.TokenMetadata, error) {
	out, err := t.c.call(ctx, "symbol")
	if err != nil {
		return types.TokenMetadata{}, err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return types.TokenMetadata{}, fmt.Errorf("symbol: unexpected type %T", out[0])
	}

	out, err = t.c.call(ctx, "decimals")
	if err != nil {
		return types.TokenMetadata{}, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return types.TokenMetadata{}, fmt.Errorf("decimals: unexpected type %T", out[0])
	}

	return types.TokenMetadata{Address: t.c.address, Symbol: symbol, Decimals: decimals}, nil
}

// Approve 授权 spender
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.c.transact(ctx, "approve", spender, amount)
}

// Transfer 转账
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	return t.c.transact(ctx, "transfer", to, amount)
}
