package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

// App rediskit 命令行的配置文件结构
type App struct {
	Redis  RedisFile  `json:"redis" mapstructure:"redis"`
	Log    LogFile    `json:"log" mapstructure:"log"`
	Health HealthFile `json:"health" mapstructure:"health"`
}

// RedisFile 配置文件中的 redis 段
// 零值字段不会出现在 ToMap 的结果中，由连接解析器补默认值
type RedisFile struct {
	Name             string        `json:"name" mapstructure:"name"`
	Sentinels        []string      `json:"sentinels" mapstructure:"sentinels" validate:"omitempty,dive,hostname_port"`
	Host             string        `json:"host" mapstructure:"host"`
	Port             int           `json:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	LazyConnect      *bool         `json:"lazy_connect" mapstructure:"lazy_connect"`
	Username         string        `json:"username" mapstructure:"username"`
	Password         string        `json:"password" mapstructure:"password"`
	SentinelPassword string        `json:"sentinel_password" mapstructure:"sentinel_password"`
	DB               int           `json:"db" mapstructure:"db" validate:"min=0"`
	DialTimeout      time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout      time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
}

// ToMap 转换为连接解析器接受的原始选项
func (r RedisFile) ToMap() map[string]any {
	m := make(map[string]any)

	if r.Name != "" {
		m["name"] = r.Name
	}
	if r.Sentinels != nil {
		m["sentinels"] = append([]string(nil), r.Sentinels...)
	}
	if r.Host != "" {
		m["host"] = r.Host
		m["port"] = r.Port
	}
	if r.LazyConnect != nil {
		m["lazyConnect"] = *r.LazyConnect
	}
	if r.Username != "" {
		m["username"] = r.Username
	}
	if r.Password != "" {
		m["password"] = r.Password
	}
	if r.SentinelPassword != "" {
		m["sentinelPassword"] = r.SentinelPassword
	}
	if r.DB != 0 {
		m["db"] = r.DB
	}
	if r.DialTimeout != 0 {
		m["dialTimeout"] = r.DialTimeout
	}
	if r.ReadTimeout != 0 {
		m["readTimeout"] = r.ReadTimeout
	}
	if r.WriteTimeout != 0 {
		m["writeTimeout"] = r.WriteTimeout
	}

	return m
}

// LogFile 配置文件中的 log 段
type LogFile struct {
	Level  string         `json:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Output string         `json:"output" mapstructure:"output" validate:"omitempty,oneof=console json file multi"`
	Caller bool           `json:"caller" mapstructure:"caller"`
	File   log.FileConfig `json:"file" mapstructure:"file"`
}

// NewLogger 按配置创建 Logger；json 输出写到 stdout
func (l LogFile) NewLogger() (*log.Logger, error) {
	level := zerolog.InfoLevel
	if l.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(l.Level))
		if err != nil {
			return nil, errors.InvalidConfigError("log.level", err.Error()).WithCause(err)
		}
		level = parsed
	}

	opts := []log.Option{log.WithLevel(level)}
	if l.Caller {
		opts = append(opts, log.WithCaller())
	}

	switch l.Output {
	case "", "console":
		return log.New(opts...), nil
	case "json":
		return log.NewStdout(opts...), nil
	case "file":
		return log.NewFile(l.File, opts...)
	case "multi":
		return log.NewMulti(l.File, opts...)
	default:
		return nil, errors.InvalidConfigError("log.output", "unsupported output "+l.Output)
	}
}

// HealthFile 配置文件中的 health 段
type HealthFile struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval" validate:"min=0"`
}

// Defaults App 的默认值
// redis 段的字符串与数字 key 在这里登记，使 REDIS_HOST 之类的环境变量在配置文件缺少该 key 时也能生效
func Defaults() map[string]any {
	return map[string]any{
		"redis.name":              "",
		"redis.host":              "",
		"redis.port":              0,
		"redis.username":          "",
		"redis.password":          "",
		"redis.sentinel_password": "",
		"redis.db":                0,
		"log.level":               "info",
		"log.output":              "console",
		"health.enabled":          false,
		"health.interval":         "30s",
	}
}
