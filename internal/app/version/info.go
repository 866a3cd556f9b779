// Package version 构建版本信息，发布构建通过 -ldflags "-X" 注入
package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

var (
	Version   = "v0.1.0"
	BuildTime = "unknown"     // RFC3339
	BuildEnv  = "development" // development | testing | production
	Commit    = "unknown"
)

// BuildInfo 构建与运行时信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	BuildEnv  string `json:"build_env"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion 语义化版本号
func GetVersion() string { return Version }

// GetDisplayVersion 面板标题用，非生产构建附加环境标签
func GetDisplayVersion() string {
	if IsProductionBuild() {
		return Version
	}
	return Version + "-" + BuildEnv
}

// IsProductionBuild 是否生产构建
func IsProductionBuild() bool { return BuildEnv == "production" }

// GetBuildInfo 当前二进制的构建信息
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		BuildEnv:  BuildEnv,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String 多行文本，用于 `p2efarm version`
func (b BuildInfo) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "p2efarm %s", b.Version)
	if b.Commit != "unknown" {
		fmt.Fprintf(&s, " (%s)", b.Commit)
	}
	if b.BuildTime != "unknown" {
		built := b.BuildTime
		if t, err := time.Parse(time.RFC3339, b.BuildTime); err == nil {
			built = t.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Fprintf(&s, "\n构建时间: %s", built)
	}
	fmt.Fprintf(&s, "\n构建环境: %s", b.BuildEnv)
	fmt.Fprintf(&s, "\nGo版本: %s", b.GoVersion)
	fmt.Fprintf(&s, "\n平台: %s", b.Platform)
	return s.String()
}
