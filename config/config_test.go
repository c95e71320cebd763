package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

const sentinelYAML = `
redis:
  name: mymaster
  sentinels:
    - 127.0.0.1:57780
    - 127.0.0.1:57781
  lazy_connect: false
  password: secret
  db: 2
  dial_timeout: 2s
log:
  level: debug
  output: json
health:
  enabled: true
  interval: 5s
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rediskit.yaml", sentinelYAML)

	cfg := new(App)
	c := New(cfg, WithFile("rediskit.yaml", dir), WithDefaults(Defaults()), WithLogger(log.Nop()))
	require.NoError(t, c.Load())

	assert.Equal(t, "mymaster", cfg.Redis.Name)
	assert.Equal(t, []string{"127.0.0.1:57780", "127.0.0.1:57781"}, cfg.Redis.Sentinels)
	require.NotNil(t, cfg.Redis.LazyConnect)
	assert.False(t, *cfg.Redis.LazyConnect)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Health.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Health.Interval)

	assert.Equal(t, map[string]any{
		"name":        "mymaster",
		"sentinels":   []string{"127.0.0.1:57780", "127.0.0.1:57781"},
		"lazyConnect": false,
		"password":    "secret",
		"db":          2,
		"dialTimeout": 2 * time.Second,
	}, cfg.Redis.ToMap())
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rediskit.yaml", "redis:\n  name: cache\n")

	cfg := new(App)
	c := New(cfg, WithFile("rediskit.yaml", dir), WithDefaults(Defaults()))
	require.NoError(t, c.Load())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Output)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, map[string]any{"name": "cache"}, cfg.Redis.ToMap())
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rediskit.yaml", sentinelYAML)

	t.Setenv("REDIS_HOST", "10.0.0.9")
	t.Setenv("REDIS_PORT", "6380")

	cfg := new(App)
	c := New(cfg, WithFile("rediskit.yaml", dir), WithDefaults(Defaults()))
	require.NoError(t, c.Load())

	assert.Equal(t, "10.0.0.9", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)

	m := cfg.Redis.ToMap()
	assert.Equal(t, "10.0.0.9", m["host"])
	assert.Equal(t, 6380, m["port"])
}

func TestLoadMissingFile(t *testing.T) {
	c := New(new(App), WithFile("missing.yaml", t.TempDir()))

	err := c.Load()
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfig, errors.CodeOf(err))
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"port out of range", "redis:\n  host: h\n  port: 70000\n", "redis.port"},
		{"bad sentinel", "redis:\n  sentinels: [nohost]\n", "redis.sentinels[0]"},
		{"negative db", "redis:\n  db: -1\n", "redis.db"},
		{"log level", "log:\n  level: loud\n", "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "rediskit.yaml", tc.content)

			err := New(new(App), WithFile("rediskit.yaml", dir)).Load()
			require.Error(t, err)
			assert.Equal(t, errors.InvalidConfig, errors.CodeOf(err))
			assert.Equal(t, tc.field, errors.FromError(err).GetMetadata()["field"])
		})
	}
}

func TestWithoutValidator(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rediskit.yaml", "redis:\n  db: -1\n")

	cfg := new(App)
	require.NoError(t, New(cfg, WithFile("rediskit.yaml", dir), WithValidator(nil)).Load())
	assert.Equal(t, -1, cfg.Redis.DB)
}

func TestJSONFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rediskit.json", `{"redis": {"host": "localhost", "port": 6379}}`)

	cfg := new(App)
	require.NoError(t, New(cfg, WithFile("rediskit.json", dir)).Load())
	assert.Equal(t, map[string]any{"host": "localhost", "port": 6379}, cfg.Redis.ToMap())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rediskit.yaml", "redis:\n  name: before\n")

	changed := make(chan struct{}, 1)
	cfg := new(App)
	c := New(cfg,
		WithFile("rediskit.yaml", dir),
		WithLogger(log.Nop()),
		WithOnChange(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}),
	)
	require.NoError(t, c.Load())
	require.NoError(t, c.Watch())

	// 给 fsnotify 一点时间注册监听
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("redis:\n  name: after\n"), 0o644))

	// 写文件可能触发多次事件，中间状态下读到的可能是空文件
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-changed:
			var name string
			c.Read(func(target any) { name = target.(*App).Redis.Name })
			if name == "after" {
				return
			}
		case <-deadline:
			t.Fatal("config change not detected")
		}
	}
}

type stubLoader struct {
	loads int
	err   error
}

func (l *stubLoader) Load(any) error {
	l.loads++
	return l.err
}

func (l *stubLoader) Watch(func()) error { return nil }

func TestReloadCallbacks(t *testing.T) {
	loader := &stubLoader{}
	calls := 0
	c := New(new(App), WithLoader(loader), WithOnChange(func() { calls++ }))

	require.NoError(t, c.Load())
	require.NoError(t, c.Reload())
	assert.Equal(t, 2, loader.loads)
	assert.Equal(t, 1, calls)

	loader.err = errors.InvalidConfigError("redis", "broken")
	require.Error(t, c.Reload())
	assert.Equal(t, 1, calls)
}

func TestLogFileNewLogger(t *testing.T) {
	logger, err := LogFile{Level: "warn", Output: "json"}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, "warn", logger.GetLevel().String())

	_, err = LogFile{Level: "loud"}.NewLogger()
	assert.Equal(t, errors.InvalidConfig, errors.CodeOf(err))

	_, err = LogFile{Output: "syslog"}.NewLogger()
	assert.Equal(t, errors.InvalidConfig, errors.CodeOf(err))

	dir := t.TempDir()
	logger, err = LogFile{Output: "file", File: log.FileConfig{Filepath: dir, Filename: "test"}}.NewLogger()
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}
