// Package config 提供应用配置管理功能
package config

import (
	"encoding/json"
	"time"

	logconfig "github.com/weisyn/p2efarm/internal/config/log"
)

// Config 应用配置
type Config struct {
	Network   NetworkConfig         `json:"network"`
	Contracts ContractsConfig       `json:"contracts"`
	Wallet    WalletConfig          `json:"wallet"`
	Alerts    AlertsConfig          `json:"alerts"`
	Refresh   RefreshConfig         `json:"refresh"`
	API       APIConfig             `json:"api"`
	Clock     ClockConfig           `json:"clock"`
	Cache     CacheConfig           `json:"cache"`
	Log       *logconfig.LogOptions `json:"log" validate:"required"`
}

// NetworkConfig 必需网络
type NetworkConfig struct {
	Name    string `json:"name" validate:"required"`                  // 展示名称，如 Sepolia
	ChainID string `json:"chain_id" validate:"required,hexadecimal"` // 0x 前缀十六进制链 ID
	URL     string `json:"url" validate:"required,url"`              // 提示信息中展示的网络地址
}

// ContractsConfig 固定部署地址
type ContractsConfig struct {
	Farm  string `json:"farm" validate:"required,eth_addr"`
	Token string `json:"token" validate:"required,eth_addr"`
}

// 钱包模式
const (
	WalletModeRPC   = "rpc"   // 远程钱包桥，JSON-RPC + WebSocket 事件
	WalletModeLocal = "local" // 本地助记词或 keystore
	WalletModeNone  = "none"  // 未安装钱包
)

// WalletConfig 钱包提供者配置
type WalletConfig struct {
	Mode           string   `json:"mode" validate:"required,oneof=rpc local none"`
	Endpoint       string   `json:"endpoint" validate:"omitempty,url"`        // rpc 模式：钱包桥 JSON-RPC 地址
	EventsEndpoint string   `json:"events_endpoint" validate:"omitempty,url"` // rpc 模式：事件 WebSocket 地址
	NodeURL        string   `json:"node_url" validate:"omitempty,url"`        // local 模式：链节点地址
	KeystorePath   string   `json:"keystore_path"`                            // local 模式：keystore 文件
	AccountCount   uint32   `json:"account_count" validate:"min=1,max=100"`   // local 模式：派生账户数量
	RequestTimeout Duration `json:"request_timeout"`

	// 敏感信息只从环境变量读取
	Mnemonic         string `json:"-"`
	Passphrase       string `json:"-"`
	KeystorePassword string `json:"-"`
}

// AlertsConfig 告警队列配置
type AlertsConfig struct {
	Capacity int      `json:"capacity" validate:"min=1"`
	TTL      Duration `json:"ttl"`
}

// RefreshConfig 刷新与确认配置
type RefreshConfig struct {
	Tick        Duration `json:"tick"`         // 估算重算间隔
	ReceiptPoll Duration `json:"receipt_poll"` // 交易回执轮询间隔
}

// APIConfig HTTP API 配置
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen" validate:"required,hostname_port"`
}

// ClockConfig 时钟配置
type ClockConfig struct {
	Type         string   `json:"type" validate:"oneof=system ntp"`
	NTPServer    string   `json:"ntp_server"`
	SyncInterval Duration `json:"sync_interval"`
}

// CacheConfig 代币元数据缓存配置
type CacheConfig struct {
	LifeWindow   Duration `json:"life_window"`
	MaxEntrySize int      `json:"max_entry_size" validate:"min=64"`
}

// Duration 时间duration(支持JSON序列化)
type Duration time.Duration

// Std 转换为 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}
