package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// 环境变量
const (
	EnvConfigPath       = "P2EFARM_CONFIG"
	EnvChainID          = "P2EFARM_NETWORK_CHAIN_ID"
	EnvNetworkName      = "P2EFARM_NETWORK_NAME"
	EnvNetworkURL       = "P2EFARM_NETWORK_URL"
	EnvWalletMode       = "P2EFARM_WALLET_MODE"
	EnvWalletEndpoint   = "P2EFARM_WALLET_ENDPOINT"
	EnvWalletEvents     = "P2EFARM_WALLET_EVENTS_ENDPOINT"
	EnvWalletNodeURL    = "P2EFARM_WALLET_NODE_URL"
	EnvWalletMnemonic   = "P2EFARM_WALLET_MNEMONIC"
	EnvWalletPassphrase = "P2EFARM_WALLET_PASSPHRASE"
	EnvWalletKeystore   = "P2EFARM_WALLET_KEYSTORE"
	EnvKeystorePassword = "P2EFARM_WALLET_KEYSTORE_PASSWORD"
	EnvAPIListen        = "P2EFARM_API_LISTEN"
	EnvLogLevel         = "P2EFARM_LOG_LEVEL"
	EnvLogFile          = "P2EFARM_LOG_FILE"
)

var validate = validator.New()

// DefaultPath 默认配置文件路径 ~/.p2efarm/config.json
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".p2efarm", "config.json")
	}
	return filepath.Join(homeDir, ".p2efarm", "config.json")
}

// Load 加载配置
//
// 顺序：默认值 → 配置文件（不存在时写入默认配置）→ .env → 环境变量 → 校验。
// path 为空时依次使用 P2EFARM_CONFIG 与 DefaultPath()。
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		//nolint:gosec // G301: 配置目录需要用户可读权限
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("saving default config: %w", err)
		}
	} else {
		//nolint:gosec // G304: 路径来自用户参数或主目录
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save 保存配置
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ApplyEnv 应用环境变量覆盖
func (c *Config) ApplyEnv() {
	setString(&c.Network.ChainID, EnvChainID)
	setString(&c.Network.Name, EnvNetworkName)
	setString(&c.Network.URL, EnvNetworkURL)
	setString(&c.Wallet.Mode, EnvWalletMode)
	setString(&c.Wallet.Endpoint, EnvWalletEndpoint)
	setString(&c.Wallet.EventsEndpoint, EnvWalletEvents)
	setString(&c.Wallet.NodeURL, EnvWalletNodeURL)
	setString(&c.Wallet.Mnemonic, EnvWalletMnemonic)
	setString(&c.Wallet.Passphrase, EnvWalletPassphrase)
	setString(&c.Wallet.KeystorePath, EnvWalletKeystore)
	setString(&c.Wallet.KeystorePassword, EnvKeystorePassword)
	setString(&c.API.Listen, EnvAPIListen)
	if c.Log != nil {
		setString(&c.Log.Level, EnvLogLevel)
		setString(&c.Log.FilePath, EnvLogFile)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Wallet.Mode {
	case WalletModeRPC:
		if c.Wallet.Endpoint == "" {
			return fmt.Errorf("invalid config: wallet.endpoint is required in %q mode", WalletModeRPC)
		}
	case WalletModeLocal:
		if c.Wallet.NodeURL == "" {
			return fmt.Errorf("invalid config: wallet.node_url is required in %q mode", WalletModeLocal)
		}
		if c.Wallet.Mnemonic == "" && c.Wallet.KeystorePath == "" {
			return fmt.Errorf("invalid config: %s or wallet.keystore_path is required in %q mode", EnvWalletMnemonic, WalletModeLocal)
		}
	}

	if c.Alerts.TTL.Std() <= 0 {
		return errors.New("invalid config: alerts.ttl must be positive")
	}
	if c.Refresh.Tick.Std() <= 0 || c.Refresh.ReceiptPoll.Std() <= 0 {
		return errors.New("invalid config: refresh intervals must be positive")
	}
	return nil
}
