package farmview

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/weisyn/p2efarm/pkg/types"
)

// 奖励估算参数，与合约保持一致
const (
	DefaultMaxCapacity          = 100
	CapacityGrowthCoefficient   = 20
	DefaultRewardRate           = 10
	RewardRateGrowthCoefficient = 2
	ClaimIntervalSeconds        = 10
)

// EstimateReward 估算 farm 在 now 时刻的待领取奖励
//
//	capacity   = 100 + (capacityLevel-1)*20
//	rewardRate = 10 + (rateLevel-1)*2
//	reward     = min(elapsed/10*rewardRate, capacity)
//
// 仅用于展示，链上计算为准。elapsed 为负（本地时钟落后）时按 0 处理。
func EstimateReward(farm *types.Farm, now time.Time) types.RewardEstimate {
	capacity := float64(DefaultMaxCapacity) + (toFloat(farm.CapacityLevel)-1)*CapacityGrowthCoefficient
	rate := float64(DefaultRewardRate) + (toFloat(farm.RateLevel)-1)*RewardRateGrowthCoefficient

	lastClaim := time.Unix(toInt64(farm.LastClaimTime), 0)
	elapsed := now.Sub(lastClaim).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return types.RewardEstimate{
		Capacity:       capacity,
		RewardRate:     rate,
		ElapsedSeconds: elapsed,
		Reward:         math.Min(elapsed/ClaimIntervalSeconds*rate, capacity),
	}
}

func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func toInt64(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

// FormatUnits 按 decimals 位小数格式化整数金额，去掉末尾的 0
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}

	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	out := whole.String()
	if decimals > 0 && frac.Sign() > 0 {
		digits := frac.String()
		digits = strings.Repeat("0", int(decimals)-len(digits)) + digits
		out += "." + strings.TrimRight(digits, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}
