package log

import (
	"github.com/rs/zerolog"
)

var (
	// G 全局日志实例，未显式传入 Logger 时使用
	G *Logger
)

func init() {
	G = New()
}

// SetGlobalLogger 设置全局日志记录器
func SetGlobalLogger(logger *Logger) {
	G = logger
}

// SetGlobalLevel 设置全局日志级别
func SetGlobalLevel(level zerolog.Level) {
	G.Logger = G.Logger.Level(level)
}

// Debug 返回 debug 级别的日志事件
func Debug() *zerolog.Event {
	return G.Debug()
}

// Info 返回 info 级别的日志事件
func Info() *zerolog.Event {
	return G.Info()
}

// Warn 返回 warn 级别的日志事件
func Warn() *zerolog.Event {
	return G.Warn()
}

// Error 返回 error 级别的日志事件（带堆栈）
func Error() *zerolog.Event {
	return G.Error().Stack()
}

// Fatal 返回 fatal 级别的日志事件（带堆栈）
func Fatal() *zerolog.Event {
	return G.Fatal().Stack()
}

// Errorf 格式化输出 error 日志（带堆栈）
func Errorf(format string, args ...any) {
	G.Error().Stack().Msgf(format, args...)
}
