package log

import (
	"github.com/kochabx/rediskit/log/writer"
)

// FileConfig 日志文件配置
type FileConfig struct {
	Filepath         string            `json:"filepath" mapstructure:"filepath"`
	Filename         string            `json:"filename" mapstructure:"filename"`
	FileExt          string            `json:"file_ext" mapstructure:"file_ext"`
	RotateMode       writer.RotateMode `json:"rotate_mode" mapstructure:"rotate_mode"`
	RotatelogsConfig RotatelogsConfig  `json:"rotatelogs_config" mapstructure:"rotatelogs_config"`
	LumberjackConfig LumberjackConfig  `json:"lumberjack_config" mapstructure:"lumberjack_config"`
}

// RotatelogsConfig 按时间轮转配置
type RotatelogsConfig struct {
	MaxAge       int `json:"max_age" mapstructure:"max_age"`             // 默认 24 小时
	RotationTime int `json:"rotation_time" mapstructure:"rotation_time"` // 默认 1 小时
}

// LumberjackConfig 按大小轮转配置
type LumberjackConfig struct {
	MaxSize    int  `json:"max_size" mapstructure:"max_size"`       // 默认 100 MB
	MaxBackups int  `json:"max_backups" mapstructure:"max_backups"` // 默认 5
	MaxAge     int  `json:"max_age" mapstructure:"max_age"`         // 默认 30 天
	Compress   bool `json:"compress" mapstructure:"compress"`
}

func (c *FileConfig) applyDefaults() {
	if c.Filepath == "" {
		c.Filepath = "log"
	}
	if c.Filename == "" {
		c.Filename = "rediskit"
	}
	if c.FileExt == "" {
		c.FileExt = "log"
	}
	if c.RotatelogsConfig.MaxAge == 0 {
		c.RotatelogsConfig.MaxAge = 24
	}
	if c.RotatelogsConfig.RotationTime == 0 {
		c.RotatelogsConfig.RotationTime = 1
	}
	if c.LumberjackConfig.MaxSize == 0 {
		c.LumberjackConfig.MaxSize = 100
	}
	if c.LumberjackConfig.MaxBackups == 0 {
		c.LumberjackConfig.MaxBackups = 5
	}
	if c.LumberjackConfig.MaxAge == 0 {
		c.LumberjackConfig.MaxAge = 30
	}
}

func (c *FileConfig) toWriterConfig() writer.RotateConfig {
	return writer.RotateConfig{
		Filepath: c.Filepath,
		Filename: c.Filename,
		FileExt:  c.FileExt,
		Mode:     c.RotateMode,
		TimeRotateConfig: writer.TimeRotateConfig{
			MaxAge:       c.RotatelogsConfig.MaxAge,
			RotationTime: c.RotatelogsConfig.RotationTime,
		},
		SizeRotateConfig: writer.SizeRotateConfig{
			MaxSize:    c.LumberjackConfig.MaxSize,
			MaxBackups: c.LumberjackConfig.MaxBackups,
			MaxAge:     c.LumberjackConfig.MaxAge,
			Compress:   c.LumberjackConfig.Compress,
		},
	}
}
