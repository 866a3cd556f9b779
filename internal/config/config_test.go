package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0xaa36a7", cfg.Network.ChainID)
	assert.Equal(t, 5, cfg.Alerts.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Alerts.TTL.Std())
	assert.Equal(t, time.Second, cfg.Refresh.Tick.Std())
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFarmAddress, cfg.Contracts.Farm)

	_, err = os.Stat(path)
	require.NoError(t, err, "默认配置应写入磁盘")
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := map[string]interface{}{
		"network": map[string]string{"name": "Local", "chain_id": "0x7a69", "url": "http://127.0.0.1:8545"},
		"alerts":  map[string]interface{}{"capacity": 3, "ttl": "2s"},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	t.Setenv(EnvAPIListen, "0.0.0.0:9999")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Local", cfg.Network.Name)
	assert.Equal(t, "0x7a69", cfg.Network.ChainID)
	assert.Equal(t, 3, cfg.Alerts.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Alerts.TTL.Std())
	assert.Equal(t, "0.0.0.0:9999", cfg.API.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 未出现在文件中的字段保持默认
	assert.Equal(t, DefaultTokenAddress, cfg.Contracts.Token)
}

func TestValidate(t *testing.T) {
	t.Run("非法合约地址", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Contracts.Farm = "0x1234"
		assert.Error(t, cfg.Validate())
	})

	t.Run("非法链ID", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Network.ChainID = "sepolia"
		assert.Error(t, cfg.Validate())
	})

	t.Run("local模式缺少密钥来源", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Wallet.Mode = WalletModeLocal
		cfg.Wallet.NodeURL = "http://127.0.0.1:8545"
		assert.Error(t, cfg.Validate())

		cfg.Wallet.Mnemonic = "test test test test test test test test test test test junk"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("none模式", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Wallet.Mode = WalletModeNone
		assert.NoError(t, cfg.Validate())
	})

	t.Run("未知模式", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Wallet.Mode = "browser"
		assert.Error(t, cfg.Validate())
	})

	t.Run("告警TTL必须为正", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Alerts.TTL = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1500ms"`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}
