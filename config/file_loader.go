package config

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kochabx/rediskit/errors"
)

// FileLoader 从文件读取配置，环境变量可覆盖文件中的值（redis.host -> REDIS_HOST）
type FileLoader struct {
	viper    *viper.Viper
	validate Validator
	name     string
	paths    []string
}

var _ Loader = (*FileLoader)(nil)

// NewFileLoader 创建文件加载器，name 的扩展名决定文件格式
func NewFileLoader(name string, paths []string, v *viper.Viper, validate Validator) *FileLoader {
	ext := filepath.Ext(name)

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName(strings.TrimSuffix(name, ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &FileLoader{
		viper:    v,
		validate: validate,
		name:     name,
		paths:    paths,
	}
}

// Load 实现 Loader
func (l *FileLoader) Load(target any) error {
	if err := l.viper.ReadInConfig(); err != nil {
		return errors.InvalidConfigError(l.name, "config file not found: "+err.Error()).WithCause(err)
	}

	if err := l.viper.Unmarshal(target); err != nil {
		return errors.InvalidConfigError(l.name, "config parse error: "+err.Error()).WithCause(err)
	}

	if l.validate != nil {
		if err := l.validate.Struct(target); err != nil {
			return err
		}
	}

	return nil
}

// Watch 实现 Loader
func (l *FileLoader) Watch(callback func()) error {
	l.viper.OnConfigChange(func(fsnotify.Event) {
		if callback != nil {
			callback()
		}
	})

	l.viper.WatchConfig()
	return nil
}

// ConfigFileUsed 返回实际读取的文件路径，Load 之前为空
func (l *FileLoader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}
