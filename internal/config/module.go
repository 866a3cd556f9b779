package config

import (
	logconfig "github.com/weisyn/p2efarm/internal/config/log"
	"go.uber.org/fx"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// Path 配置文件路径，由命令行注入
	Path string `name:"config_path" optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	Config     *Config
	LogOptions *logconfig.LogOptions
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(ProvideConfig),
	)
}

// Supply 使用已加载的配置，跳过文件读取
func Supply(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Provide(func() ConfigOutput {
			return ConfigOutput{Config: cfg, LogOptions: cfg.Log}
		}),
	)
}

// ProvideConfig 加载配置
func ProvideConfig(params ConfigParams) (ConfigOutput, error) {
	cfg, err := Load(params.Path)
	if err != nil {
		return ConfigOutput{}, err
	}
	return ConfigOutput{Config: cfg, LogOptions: cfg.Log}, nil
}
