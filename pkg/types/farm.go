package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Farm 链上农场记录（allFarms(id) 的返回值）
//
// 每次刷新都从链上重新获取，本地从不修改。
type Farm struct {
	Owner         common.Address `json:"owner"`
	ID            *big.Int       `json:"id"`
	RateLevel     *big.Int       `json:"rate_level"`     // 奖励速率等级，>= 1
	CapacityLevel *big.Int       `json:"capacity_level"` // 容量等级，>= 1
	Balance       *big.Int       `json:"balance"`
	LastClaimTime *big.Int       `json:"last_claim_time"` // unix 秒
}

// RewardEstimate 单个农场的待领取奖励估算（纯展示用）
type RewardEstimate struct {
	Capacity       float64 `json:"capacity"`
	RewardRate     float64 `json:"reward_rate"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Reward         float64 `json:"reward"`
}

// TokenMetadata ERC-20 代币元数据
type TokenMetadata struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}
