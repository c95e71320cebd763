package config

import (
	"github.com/spf13/viper"

	"github.com/kochabx/rediskit/log"
)

// Option 配置 Config 的选项
type Option func(*Config)

// WithViper 使用自定义的 viper 实例
func WithViper(v *viper.Viper) Option {
	return func(c *Config) {
		c.viper = v
	}
}

// WithValidator 使用自定义的校验器，传 nil 关闭校验
func WithValidator(v Validator) Option {
	return func(c *Config) {
		c.validate = v
	}
}

// WithLoader 使用自定义的加载器，此时 WithFile 不再生效
func WithLoader(loader Loader) Option {
	return func(c *Config) {
		c.loader = loader
	}
}

// WithFile 设置配置文件名与搜索目录，默认 config.yaml 与当前目录
func WithFile(name string, paths ...string) Option {
	return func(c *Config) {
		c.name = name
		if len(paths) > 0 {
			c.paths = paths
		}
	}
}

// WithDefaults 设置默认值，key 使用点号分隔，例如 "redis.port"
// 设置了默认值的 key 才能被同名环境变量覆盖
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) {
		for k, v := range defaults {
			c.defaults[k] = v
		}
	}
}

// WithLogger 设置记录重载事件的 Logger，默认 log.G
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithOnChange 注册配置重载成功后的回调
func WithOnChange(fn func()) Option {
	return func(c *Config) {
		if fn != nil {
			c.onChange = append(c.onChange, fn)
		}
	}
}
