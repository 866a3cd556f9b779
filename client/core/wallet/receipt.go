package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/weisyn/p2efarm/pkg/interfaces/game"
)

// DefaultReceiptPoll 回执轮询间隔
const DefaultReceiptPoll = 2 * time.Second

// ReceiptBackend 回执查询
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// WaitMined 轮询直到交易被打包
//
// 回执状态为失败时返回回执与包装了 game.ErrReverted 的错误；
// 除 ethereum.NotFound 以外的查询错误直接返回。
func WaitMined(ctx context.Context, backend ReceiptBackend, hash common.Hash, interval time.Duration) (*ethtypes.Receipt, error) {
	if interval <= 0 {
		interval = DefaultReceiptPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == ethtypes.ReceiptStatusFailed {
				return receipt, fmt.Errorf("tx %s: %w", hash.Hex(), game.ErrReverted)
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Confirmer 基于回执轮询的 game.Confirmer
type Confirmer struct {
	backend  ReceiptBackend
	interval time.Duration
}

var _ game.Confirmer = (*Confirmer)(nil)

// NewConfirmer 创建确认器
func NewConfirmer(backend ReceiptBackend, interval time.Duration) *Confirmer {
	return &Confirmer{backend: backend, interval: interval}
}

// WaitMined 实现 game.Confirmer
func (c *Confirmer) WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	return WaitMined(ctx, c.backend, hash, c.interval)
}
