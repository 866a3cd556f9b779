package clock

import (
	"github.com/weisyn/p2efarm/internal/config"
	infraClock "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/clock"
)

// New 按配置选择时钟实现
func New(cfg config.ClockConfig) infraClock.Clock {
	if cfg.Type == "ntp" && cfg.NTPServer != "" {
		return NewNTPClock(cfg.NTPServer, cfg.SyncInterval.Std())
	}
	return NewSystemClock()
}
