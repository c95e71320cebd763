package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/kochabx/rediskit/log/writer"
)

// Logger 日志记录器
type Logger struct {
	zerolog.Logger
	writer io.Writer
	closer io.Closer // 仅根 Logger 持有，Context 派生的子 Logger 为 nil
}

// Close 关闭日志记录器，释放资源
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Context 返回带有 context 字段的子 Logger，共享同一个输出
func (l *Logger) Context(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("context", name).Logger(),
		writer: l.writer,
	}
}

// Writer 返回底层输出
func (l *Logger) Writer() io.Writer {
	return l.writer
}

func init() {
	zerolog.TimeFieldFormat = time.DateTime
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// SetZerologGlobalLevel 设置全局日志级别
func SetZerologGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func newLogger(w io.Writer, opts ...Option) *Logger {
	logger := &Logger{
		writer: w,
		Logger: zerolog.New(w).With().Timestamp().Logger(),
	}

	for _, opt := range opts {
		opt(logger)
	}

	return logger
}

// New 创建新的 Logger 实例，输出到控制台
func New(opts ...Option) *Logger {
	return newLogger(writer.Console(), opts...)
}

// NewWriter 创建输出到任意 io.Writer 的 Logger（JSON 格式）
func NewWriter(w io.Writer, opts ...Option) *Logger {
	return newLogger(w, opts...)
}

// NewStdout 创建输出到标准输出的 JSON Logger
func NewStdout(opts ...Option) *Logger {
	return newLogger(os.Stdout, opts...)
}

// Nop 返回丢弃所有输出的 Logger
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop(), writer: io.Discard}
}

// NewFile 创建文件输出的 Logger
func NewFile(c FileConfig, opts ...Option) (*Logger, error) {
	w, err := fileWriter(c)
	if err != nil {
		return nil, err
	}

	logger := newLogger(w, opts...)
	if closer, ok := w.(io.Closer); ok {
		logger.closer = closer
	}

	return logger, nil
}

// NewMulti 创建同时输出到控制台和文件的 Logger
func NewMulti(c FileConfig, opts ...Option) (*Logger, error) {
	w, err := fileWriter(c)
	if err != nil {
		return nil, err
	}

	logger := newLogger(zerolog.MultiLevelWriter(writer.Console(), w), opts...)
	if closer, ok := w.(io.Closer); ok {
		logger.closer = closer
	}

	return logger, nil
}

func fileWriter(c FileConfig) (io.Writer, error) {
	c.applyDefaults()

	w, err := writer.File(c.toWriterConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create file writer: %w", err)
	}
	return w, nil
}

// WithStr 返回附加了固定字符串字段的子 Logger
func (l *Logger) WithStr(key, val string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str(key, val).Logger(),
		writer: l.writer,
	}
}
