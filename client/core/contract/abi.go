// Package contract 奖励代币与 P2EFarm 合约客户端
//
// 读取经 bind.BoundContract 走链节点 eth_call；写入只打包调用数据，
// 由钱包 eth_sendTransaction 签名并广播。
package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TokenABI 奖励代币使用到的 ERC-20 片段
const TokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// FarmABI P2EFarm 游戏合约
const FarmABI = `[
	{"type":"function","name":"getIdsFarm","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"allFarms","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"owner","type":"address"},
		{"name":"idFarm","type":"uint256"},
		{"name":"rateLvl","type":"uint256"},
		{"name":"capacityLvl","type":"uint256"},
		{"name":"balance","type":"uint256"},
		{"name":"lastClaimTime","type":"uint256"}
	]},
	{"type":"function","name":"FARM_PRICE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"currentCostUpgradeMaxCapacity","stateMutability":"view","inputs":[{"name":"level","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"currentCostUpgradeRewardRate","stateMutability":"view","inputs":[{"name":"level","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getFarmSellPrice","stateMutability":"view","inputs":[{"name":"idFarm","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"buyFarm","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"upgradeMaxCapacity","stateMutability":"nonpayable","inputs":[{"name":"idFarm","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"upgradeRewardRate","stateMutability":"nonpayable","inputs":[{"name":"idFarm","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"claimRewards","stateMutability":"nonpayable","inputs":[{"name":"idFarm","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"sellFarm","stateMutability":"nonpayable","inputs":[{"name":"idFarm","type":"uint256"}],"outputs":[]}
]`

var (
	tokenABI = mustParse(TokenABI)
	farmABI  = mustParse(FarmABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contract: invalid ABI: " + err.Error())
	}
	return parsed
}
