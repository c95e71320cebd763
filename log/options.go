package log

import (
	"github.com/rs/zerolog"
)

// Option Logger 选项函数
type Option func(*Logger)

// WithLevel 设置日志级别
func WithLevel(level zerolog.Level) Option {
	return func(l *Logger) {
		l.Logger = l.Logger.Level(level)
	}
}

// WithCaller 设置调用栈信息
func WithCaller() Option {
	return func(l *Logger) {
		l.Logger = l.Logger.With().Caller().Logger()
	}
}

// WithFields 为所有日志追加固定字段
func WithFields(fields map[string]any) Option {
	return func(l *Logger) {
		l.Logger = l.Logger.With().Fields(fields).Logger()
	}
}
