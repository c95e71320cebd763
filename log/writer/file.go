package writer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateMode 日志轮转模式
type RotateMode int

const (
	// RotateModeTime 按时间轮转（file-rotatelogs）
	RotateModeTime RotateMode = iota
	// RotateModeSize 按大小轮转（lumberjack）
	RotateModeSize
)

func (m RotateMode) String() string {
	switch m {
	case RotateModeTime:
		return "time"
	case RotateModeSize:
		return "size"
	default:
		return "unknown"
	}
}

// RotateConfig 日志轮转配置
type RotateConfig struct {
	Mode             RotateMode
	Filepath         string
	Filename         string
	FileExt          string
	TimeRotateConfig TimeRotateConfig
	SizeRotateConfig SizeRotateConfig
}

// TimeRotateConfig 按时间轮转配置
type TimeRotateConfig struct {
	MaxAge       int // 小时
	RotationTime int // 小时
}

// SizeRotateConfig 按大小轮转配置
type SizeRotateConfig struct {
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// File 创建文件输出 writer
func File(config RotateConfig) (io.Writer, error) {
	switch config.Mode {
	case RotateModeTime:
		w, err := rotatelogs.New(
			config.path("%Y%m%d%H%M"),
			rotatelogs.WithLinkName(config.path("")),
			rotatelogs.WithMaxAge(time.Duration(config.TimeRotateConfig.MaxAge)*time.Hour),
			rotatelogs.WithRotationTime(time.Duration(config.TimeRotateConfig.RotationTime)*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create time rotate writer: %w", err)
		}
		return w, nil
	case RotateModeSize:
		return &lumberjack.Logger{
			Filename:   config.path(""),
			MaxSize:    config.SizeRotateConfig.MaxSize,
			MaxBackups: config.SizeRotateConfig.MaxBackups,
			MaxAge:     config.SizeRotateConfig.MaxAge,
			Compress:   config.SizeRotateConfig.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rotate mode: %v", config.Mode)
	}
}

// path 返回 <Filepath>/<Filename>[.<format>].<FileExt>
func (c *RotateConfig) path(format string) string {
	var b strings.Builder
	b.Grow(len(c.Filename) + len(format) + len(c.FileExt) + 2)

	b.WriteString(c.Filename)
	if format != "" {
		b.WriteByte('.')
		b.WriteString(format)
	}
	b.WriteByte('.')
	b.WriteString(c.FileExt)

	return filepath.Join(c.Filepath, b.String())
}
