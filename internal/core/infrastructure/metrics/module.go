package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// ModuleOutput 指标模块输出
type ModuleOutput struct {
	fx.Out

	Registry   *prometheus.Registry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Metrics    *Metrics
}

// Module 返回 metrics 模块
//
// 提供：
// - *prometheus.Registry: 进程级注册表，含 Go 运行时与进程采集器
// - *Metrics: 控制器指标
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建注册表并注册全部指标
func ProvideServices() ModuleOutput {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return ModuleOutput{
		Registry:   reg,
		Registerer: reg,
		Gatherer:   reg,
		Metrics:    New(reg),
	}
}
