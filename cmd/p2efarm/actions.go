package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/farmview"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/types"
)

// actionDef 一个交易子命令
type actionDef struct {
	kind  txflow.Kind
	use   string
	short string
	args  int
}

var actionDefs = []actionDef{
	{txflow.KindBuy, "buy", "购买新农场（先 approve 农场价格）", 0},
	{txflow.KindUpgradeCapacity, "upgrade-capacity <farm-id>", "升级农场容量（先 approve 升级费用）", 1},
	{txflow.KindUpgradeRate, "upgrade-rate <farm-id>", "升级奖励速率（先 approve 升级费用）", 1},
	{txflow.KindClaim, "claim <farm-id>", "领取农场奖励", 1},
	{txflow.KindSell, "sell <farm-id>", "出售农场", 1},
	{txflow.KindTransfer, "transfer <to> <amount>", "转账奖励代币（amount 为最小单位）", 2},
}

// actionLevel 升级命令的 --level，0 表示按链上当前等级
var actionLevel int64

func actionCommands() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(actionDefs))
	for _, def := range actionDefs {
		cmd := &cobra.Command{
			Use:   def.use,
			Short: def.short,
			Args:  cobra.ExactArgs(def.args),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd.Context(), func(ctx context.Context, ctrl *controller.Controller) error {
					action, err := buildAction(def.kind, args, actionLevel, ctrl.State().Farms)
					if err != nil {
						return err
					}
					return submit(ctx, ctrl, action)
				})
			},
		}
		if def.kind == txflow.KindUpgradeCapacity || def.kind == txflow.KindUpgradeRate {
			cmd.Flags().Int64Var(&actionLevel, "level", 0, "当前等级 (默认读取链上农场)")
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// buildAction 由位置参数构造操作
func buildAction(kind txflow.Kind, args []string, level int64, farms []farmview.FarmView) (txflow.Action, error) {
	action := txflow.Action{Kind: kind}

	switch kind {
	case txflow.KindBuy:
		return action, nil

	case txflow.KindTransfer:
		if !common.IsHexAddress(args[0]) {
			return action, fmt.Errorf("%w: invalid recipient %q", txflow.ErrInvalidAction, args[0])
		}
		action.To = common.HexToAddress(args[0])
		amount, err := parseBig("amount", args[1])
		if err != nil {
			return action, err
		}
		action.Amount = amount
		return action, nil
	}

	id, err := parseBig("farm-id", args[0])
	if err != nil {
		return action, err
	}
	action.FarmID = id

	if kind == txflow.KindUpgradeCapacity || kind == txflow.KindUpgradeRate {
		if level > 0 {
			action.Level = big.NewInt(level)
			return action, nil
		}
		farm := findFarm(farms, id)
		if farm == nil {
			return action, fmt.Errorf("%w: farm %s is not owned by the signer", txflow.ErrInvalidAction, id)
		}
		if kind == txflow.KindUpgradeCapacity {
			action.Level = farm.CapacityLevel
		} else {
			action.Level = farm.RateLevel
		}
	}
	return action, nil
}

// findFarm 按 id 查找签名账户的农场
func findFarm(farms []farmview.FarmView, id *big.Int) *types.Farm {
	for _, f := range farms {
		if f.Farm != nil && f.Farm.ID.Cmp(id) == 0 {
			return f.Farm
		}
	}
	return nil
}

func parseBig(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an integer", txflow.ErrInvalidAction, name)
	}
	return v, nil
}

// submit 同步执行并输出结果
func submit(ctx context.Context, ctrl *controller.Controller, action txflow.Action) error {
	res, err := ctrl.Submit(ctx, action)
	printAlerts(ctrl.State())
	if err != nil {
		return err
	}
	return formatter.Print(res)
}
