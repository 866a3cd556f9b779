// Package log 基于 zap 的日志实现，控制台写 stderr，文件按 lumberjack 轮转
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	logconfig "github.com/weisyn/p2efarm/internal/config/log"
	logInterface "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// 配置中可用的级别
const (
	DebugLevel = string(logInterface.DebugLevel)
	InfoLevel  = string(logInterface.InfoLevel)
	WarnLevel  = string(logInterface.WarnLevel)
	ErrorLevel = string(logInterface.ErrorLevel)
	FatalLevel = string(logInterface.FatalLevel)
)

// Logger 实现 log.Logger
type Logger struct {
	zl    *zap.Logger
	sugar *zap.SugaredLogger
}

var _ logInterface.Logger = (*Logger)(nil)

// New 按配置构造日志记录器
//
// stdout 留给 CLI 输出，控制台日志只写 stderr；两路都关闭时等价于 Nop。
func New(cfg *logconfig.Config) (logInterface.Logger, error) {
	cores, err := buildCores(cfg)
	if err != nil {
		return nil, err
	}

	var opts []zap.Option
	if cfg.IsCallerEnabled() {
		// 跳过本包的封装层
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if cfg.IsStacktraceEnabled() {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return wrap(zap.New(zapcore.NewTee(cores...), opts...)), nil
}

func buildCores(cfg *logconfig.Config) ([]zapcore.Core, error) {
	level := zap.NewAtomicLevelAt(cfg.GetZapLevel())
	var cores []zapcore.Core

	if cfg.IsConsoleEnabled() {
		cores = append(cores, zapcore.NewCore(cfg.CreateConsoleEncoder(), zapcore.Lock(os.Stderr), level))
	}

	if path := cfg.GetFilePath(); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("解析日志文件路径 %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
			return nil, fmt.Errorf("创建日志目录: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   abs,
			MaxSize:    cfg.GetMaxSize(), // MB
			MaxBackups: cfg.GetMaxBackups(),
			MaxAge:     cfg.GetMaxAge(), // 天
			Compress:   cfg.IsCompressionEnabled(),
		}
		cores = append(cores, zapcore.NewCore(cfg.CreateFileEncoder(), zapcore.AddSync(rotator), level))
	}
	return cores, nil
}

func wrap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl, sugar: zl.Sugar()}
}

// GetZapLogger 底层 zap 记录器，供 gin 中间件使用
func (l *Logger) GetZapLogger() *zap.Logger { return l.zl }

func (l *Logger) Debug(msg string)                          { l.sugar.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(msg string)                           { l.sugar.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(msg string)                           { l.sugar.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.sugar.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *Logger) Fatal(msg string)                          { l.sugar.Fatal(msg) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }

// With 附加键值对字段，奇数个参数时丢弃最后一个
func (l *Logger) With(args ...interface{}) logInterface.Logger {
	if len(args)%2 != 0 {
		args = args[:len(args)-1]
	}
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return wrap(l.zl.With(fields...))
}

// Sync 刷新缓冲
func (l *Logger) Sync() error { return l.zl.Sync() }
