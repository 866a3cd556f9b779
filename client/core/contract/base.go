package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// ErrEmptyHash 钱包未返回交易哈希
var ErrEmptyHash = errors.New("wallet returned an empty transaction hash")

// boundContract 绑定到固定地址与签名账户的合约
type boundContract struct {
	address  common.Address
	account  common.Address
	abi      abi.ABI
	caller   *bind.BoundContract
	provider walletInterface.Provider
}

func newBoundContract(address common.Address, parsed abi.ABI, provider walletInterface.Provider, account common.Address) *boundContract {
	return &boundContract{
		address:  address,
		account:  account,
		abi:      parsed,
		caller:   bind.NewBoundContract(address, parsed, provider.Backend(), nil, nil),
		provider: provider,
	}
}

// call 以签名账户为 from 执行 eth_call
func (c *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.account}
	if err := c.caller.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// transact 打包调用数据并交给钱包签名发送
func (c *boundContract) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	to := c.address
	var hash common.Hash
	err = c.provider.Request(ctx, &hash, walletInterface.MethodSendTransaction, walletInterface.SendTxArgs{
		From: c.account,
		To:   &to,
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}
	if hash == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%s: %w", method, ErrEmptyHash)
	}
	return hash, nil
}
