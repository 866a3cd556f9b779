package config

import (
	"time"

	logconfig "github.com/weisyn/p2efarm/internal/config/log"
)

// 部署常量（Sepolia）
const (
	DefaultNetworkName  = "Sepolia"
	DefaultChainID      = "0xaa36a7"
	DefaultNetworkURL   = "https://sepolia.infura.io/v3/"
	DefaultFarmAddress  = "0xEC23e89F986522Ce570f13413C069EeF7536E70D"
	DefaultTokenAddress = "0x0388DdFE3627F48b084782EC291A4D00c6f08b6a"
)

const (
	defaultAlertCapacity   = 5
	defaultAlertTTL        = 5 * time.Second
	defaultTick            = time.Second
	defaultReceiptPoll     = 2 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultAPIListen       = "127.0.0.1:28690"
	defaultNTPServer       = "time.google.com"
	defaultSyncInterval    = 10 * time.Minute
	defaultCacheLifeWindow = 10 * time.Minute
	defaultMaxEntrySize    = 512
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Name:    DefaultNetworkName,
			ChainID: DefaultChainID,
			URL:     DefaultNetworkURL,
		},
		Contracts: ContractsConfig{
			Farm:  DefaultFarmAddress,
			Token: DefaultTokenAddress,
		},
		Wallet: WalletConfig{
			Mode:           WalletModeRPC,
			Endpoint:       "http://127.0.0.1:8545",
			AccountCount:   1,
			RequestTimeout: Duration(defaultRequestTimeout),
		},
		Alerts: AlertsConfig{
			Capacity: defaultAlertCapacity,
			TTL:      Duration(defaultAlertTTL),
		},
		Refresh: RefreshConfig{
			Tick:        Duration(defaultTick),
			ReceiptPoll: Duration(defaultReceiptPoll),
		},
		API: APIConfig{
			Enabled: true,
			Listen:  defaultAPIListen,
		},
		Clock: ClockConfig{
			Type:         "system",
			NTPServer:    defaultNTPServer,
			SyncInterval: Duration(defaultSyncInterval),
		},
		Cache: CacheConfig{
			LifeWindow:   Duration(defaultCacheLifeWindow),
			MaxEntrySize: defaultMaxEntrySize,
		},
		Log: logconfig.DefaultOptions(),
	}
}
