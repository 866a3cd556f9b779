package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/types"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// ActionRequest POST /api/v1/actions 请求体
//
// 数值字段接受 JSON 数字或十进制字符串。
type ActionRequest struct {
	Kind   string      `json:"kind" binding:"required"`
	FarmID json.Number `json:"farm_id,omitempty"`
	Level  json.Number `json:"level,omitempty"`
	To     string      `json:"to,omitempty"`
	Amount json.Number `json:"amount,omitempty"`
}

// ToAction 转换为控制器操作
func (r ActionRequest) ToAction() (txflow.Action, error) {
	kind, err := txflow.ParseKind(r.Kind)
	if err != nil {
		return txflow.Action{}, err
	}
	action := txflow.Action{Kind: kind}

	if action.FarmID, err = parseInt("farm_id", r.FarmID); err != nil {
		return txflow.Action{}, err
	}
	if action.Level, err = parseInt("level", r.Level); err != nil {
		return txflow.Action{}, err
	}
	if action.Amount, err = parseInt("amount", r.Amount); err != nil {
		return txflow.Action{}, err
	}
	if r.To != "" {
		if !common.IsHexAddress(r.To) {
			return txflow.Action{}, fmt.Errorf("%w: invalid recipient %q", txflow.ErrInvalidAction, r.To)
		}
		action.To = common.HexToAddress(r.To)
	}
	return action, nil
}

// parseInt 空值返回 nil
func parseInt(name string, n json.Number) (*big.Int, error) {
	if n == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an integer", txflow.ErrInvalidAction, name)
	}
	return v, nil
}

// ActionHandler 游戏操作端点
type ActionHandler struct {
	ctrl   Controller
	logger log.Logger
}

// NewActionHandler 创建操作处理器
func NewActionHandler(ctrl Controller, logger log.Logger) *ActionHandler {
	return &ActionHandler{ctrl: ctrl, logger: logger}
}

// RegisterRoutes 注册路由
func (h *ActionHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/actions", h.Submit)
}

// Submit POST /api/v1/actions
//
// 前置检查同步完成；受理后返回 202，结果通过告警与状态展示。
func (h *ActionHandler) Submit(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, types.ErrInvalidArgument, err.Error())
		return
	}
	action, err := req.ToAction()
	if err != nil {
		writeError(c, err)
		return
	}

	err = h.ctrl.SubmitAsync(action, func(res *txflow.Result, err error) {
		if err != nil {
			h.logger.Warnf("后台交易失败 kind=%s: %v", action.Kind, err)
			return
		}
		h.logger.Infof("后台交易完成 kind=%s hash=%s", res.Kind, res.Hash.Hex())
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusAccepted, types.ActionAccepted{Kind: string(action.Kind), Status: "accepted"})
}
