package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/types"
)

// WalletHandler 本地钱包账户端点
type WalletHandler struct {
	ctrl Controller
}

// NewWalletHandler 创建本地钱包处理器
func NewWalletHandler(ctrl Controller) *WalletHandler {
	return &WalletHandler{ctrl: ctrl}
}

// RegisterRoutes 注册路由
func (h *WalletHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/wallet")
	g.GET("/accounts", h.Accounts)
	g.POST("/account", h.SwitchAccount)
	g.POST("/lock", h.Lock)
}

type walletAccount struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
}

// Accounts GET /api/v1/wallet/accounts
func (h *WalletHandler) Accounts(c *gin.Context) {
	accounts, err := h.ctrl.WalletAccounts()
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]walletAccount, len(accounts))
	for i, a := range accounts {
		out[i] = walletAccount{Index: i, Address: a.Hex()}
	}
	ok(c, http.StatusOK, out)
}

// SwitchAccountRequest POST /api/v1/wallet/account 请求体
type SwitchAccountRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// SwitchAccount POST /api/v1/wallet/account
//
// 会话随钱包事件异步切换，返回 202。
func (h *WalletHandler) SwitchAccount(c *gin.Context) {
	var req SwitchAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, types.ErrInvalidArgument, err.Error())
		return
	}
	if err := h.ctrl.SwitchAccount(*req.Index); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusAccepted, gin.H{"index": *req.Index})
}

// Lock POST /api/v1/wallet/lock
func (h *WalletHandler) Lock(c *gin.Context) {
	if err := h.ctrl.LockWallet(); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusAccepted, gin.H{"locked": true})
}
