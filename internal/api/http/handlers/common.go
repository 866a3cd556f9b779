// Package handlers HTTP 端点处理器
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/middleware"
	"github.com/weisyn/p2efarm/internal/api/http/types"
	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/internal/core/txflow"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// Controller 处理器使用的控制器命令
type Controller interface {
	State() controller.StateView
	Connect(ctx context.Context) error
	Disconnect()
	SubmitAsync(action txflow.Action, done func(*txflow.Result, error)) error
	DismissAlert(id uint64) bool
	WatchToken(ctx context.Context) error
	WalletAccounts() ([]common.Address, error)
	SwitchAccount(index int) error
	LockWallet() error
}

var _ Controller = (*controller.Controller)(nil)

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, types.NewSuccessResponse(data).WithRequestID(middleware.GetRequestID(c)))
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, types.NewErrorResponse(code, message, nil).WithRequestID(middleware.GetRequestID(c)))
}

// writeError 按哨兵错误映射状态码
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, txflow.ErrNoSession):
		fail(c, http.StatusUnauthorized, types.ErrUnauthenticated, err.Error())
	case errors.Is(err, txflow.ErrInvalidAction):
		fail(c, http.StatusBadRequest, types.ErrInvalidArgument, err.Error())
	case errors.Is(err, txflow.ErrBusy):
		fail(c, http.StatusConflict, types.ErrBusy, txflow.MessageBusy)
	case errors.Is(err, session.ErrConnectInProgress):
		fail(c, http.StatusConflict, types.ErrConflict, err.Error())
	case errors.Is(err, session.ErrNoWallet):
		fail(c, http.StatusServiceUnavailable, types.ErrNoWallet, err.Error())
	case errors.Is(err, session.ErrWrongNetwork):
		fail(c, http.StatusPreconditionFailed, types.ErrWrongNetwork, err.Error())
	case errors.Is(err, session.ErrNoAccounts):
		fail(c, http.StatusUnauthorized, types.ErrNoAccounts, err.Error())
	case errors.Is(err, wallet.ErrUnknownAccount):
		fail(c, http.StatusNotFound, types.ErrNotFound, err.Error())
	case errors.Is(err, wallet.ErrAccountsUnsupported):
		fail(c, http.StatusNotImplemented, types.ErrUnsupported, err.Error())
	case errors.Is(err, wallet.ErrUserRejected):
		fail(c, http.StatusForbidden, types.ErrUserRejected, err.Error())
	default:
		fail(c, http.StatusBadGateway, types.ErrWalletFailure, err.Error())
	}
}
