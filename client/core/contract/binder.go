package contract

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/p2efarm/client/core/wallet"
	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/session"
	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// NewBinder 把固定部署地址绑定到会话账户
func NewBinder(cfg config.ContractsConfig, poll time.Duration) session.Binder {
	farmAddr := common.HexToAddress(cfg.Farm)
	tokenAddr := common.HexToAddress(cfg.Token)

	return func(ctx context.Context, provider walletInterface.Provider, account common.Address) (game.Bindings, error) {
		if provider == nil {
			return game.Bindings{}, errors.New("no wallet provider")
		}
		backend := provider.Backend()
		if backend == nil {
			return game.Bindings{}, errors.New("wallet provider has no chain backend")
		}
		return game.Bindings{
			Token:     NewToken(tokenAddr, provider, account),
			Farm:      NewFarm(farmAddr, provider, account),
			Confirmer: wallet.NewConfirmer(backend, poll),
		}, nil
	}
}
