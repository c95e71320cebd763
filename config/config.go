package config

import (
	"sync"

	"github.com/spf13/viper"

	"github.com/kochabx/rediskit/log"
)

// Config 管理应用配置
type Config struct {
	mu       sync.RWMutex
	viper    *viper.Viper
	validate Validator
	target   any
	loader   Loader
	logger   *log.Logger

	name     string
	paths    []string
	defaults map[string]any
	onChange []func()
}

// New 创建 Config，target 为解码目标（结构体指针）
// 未指定加载器时使用 FileLoader，默认读取当前目录下的 config.yaml
func New(target any, opts ...Option) *Config {
	c := &Config{
		viper:    viper.New(),
		validate: NewValidator(),
		target:   target,
		name:     "config.yaml",
		paths:    []string{"."},
		defaults: make(map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.G
	}
	for k, v := range c.defaults {
		c.viper.SetDefault(k, v)
	}
	if c.loader == nil {
		c.loader = NewFileLoader(c.name, c.paths, c.viper, c.validate)
	}

	return c
}

// Load 读取配置
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loader.Load(c.target)
}

// Reload 重新读取配置，成功后依次调用 WithOnChange 注册的回调
func (c *Config) Reload() error {
	c.mu.Lock()
	err := c.loader.Load(c.target)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range c.onChange {
		fn()
	}
	return nil
}

// Watch 监听配置文件，变化时自动 Reload
func (c *Config) Watch() error {
	return c.loader.Watch(func() {
		c.logger.Info().Msg("config change detected")

		if err := c.Reload(); err != nil {
			c.logger.Error().Err(err).Msg("failed to reload config after change")
			return
		}

		c.logger.Info().Msg("config reloaded successfully")
	})
}

// Read 在读锁下访问 target，用于和 Watch 触发的重载并发读取
func (c *Config) Read(fn func(target any)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.target)
}

// Viper 返回底层的 viper 实例
func (c *Config) Viper() *viper.Viper {
	return c.viper
}
