package client

import (
	"go.uber.org/zap"
)

// zapLogger 基于 zap 的 Logger 实现（key/value 形式的 args）
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger 将 *zap.Logger 适配为 Logger
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

// NopLogger 丢弃所有日志
func NopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}
