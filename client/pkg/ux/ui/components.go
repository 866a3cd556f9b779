// Package ui 终端渲染组件
package ui

import (
	"time"

	"github.com/pterm/pterm"
)

// ThemeConfig 主题配置
type ThemeConfig struct {
	PrimaryColor   pterm.Color // 主色调
	SecondaryColor pterm.Color // 辅助色
	SuccessColor   pterm.Color // 成功色
	WarningColor   pterm.Color // 警告色
	ErrorColor     pterm.Color // 错误色
}

// GetDefaultTheme 获取默认主题配置
func GetDefaultTheme() *ThemeConfig {
	return &ThemeConfig{
		PrimaryColor:   pterm.FgLightBlue,
		SecondaryColor: pterm.FgLightCyan,
		SuccessColor:   pterm.FgGreen,
		WarningColor:   pterm.FgYellow,
		ErrorColor:     pterm.FgRed,
	}
}

// FormatDuration 格式化时间段
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return pterm.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return pterm.Sprintf("%dm %ds", minutes, seconds)
	}
	return pterm.Sprintf("%ds", seconds)
}

// TruncateString 截断字符串
func TruncateString(str string, maxLen int) string {
	if len(str) <= maxLen {
		return str
	}
	if maxLen <= 3 {
		return str[:maxLen]
	}
	return str[:maxLen-3] + "..."
}

// ShortAddress 0x1234…abcd 形式的地址
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
