package app

import (
	"github.com/weisyn/p2efarm/internal/config"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
type options struct {
	// 配置文件路径
	configFilePath string

	// 已加载的配置（优先级高于configFilePath）
	config *config.Config

	// API开关，nil 表示沿用配置文件
	enableAPI *bool

	// 启动后立即连接钱包
	autoConnect bool
}

// WithConfigFile 设置配置文件路径
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithConfig 直接使用已加载的配置，跳过文件读取
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithAPI 启用API模块
func WithAPI() Option {
	return func(o *options) {
		enabled := true
		o.enableAPI = &enabled
	}
}

// WithoutAPI 禁用API模块
func WithoutAPI() Option {
	return func(o *options) {
		enabled := false
		o.enableAPI = &enabled
	}
}

// WithAutoConnect 启动完成后连接钱包
//
// 连接失败只记录告警，不影响启动。
func WithAutoConnect() Option {
	return func(o *options) {
		o.autoConnect = true
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	options := &options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
