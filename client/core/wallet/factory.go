package wallet

import (
	"context"
	"fmt"

	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// NewProvider 按配置创建钱包提供者
//
// none 模式返回 nil，表示未安装钱包。
func NewProvider(ctx context.Context, cfg config.WalletConfig, bus event.EventBus, logger log.Logger) (walletInterface.Provider, error) {
	switch cfg.Mode {
	case config.WalletModeRPC:
		p, err := NewRPCProvider(ctx, RPCOptions{
			Endpoint:       cfg.Endpoint,
			EventsEndpoint: cfg.EventsEndpoint,
			Timeout:        cfg.RequestTimeout.Std(),
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.WalletModeLocal:
		p, err := NewLocalProvider(ctx, LocalOptions{
			NodeURL:          cfg.NodeURL,
			Mnemonic:         cfg.Mnemonic,
			Passphrase:       cfg.Passphrase,
			AccountCount:     cfg.AccountCount,
			KeystorePath:     cfg.KeystorePath,
			KeystorePassword: cfg.KeystorePassword,
		}, bus, logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.WalletModeNone, "":
		logger.Warn("未配置钱包提供者")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown wallet mode %q", cfg.Mode)
	}
}
