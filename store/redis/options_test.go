package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

func TestResolveDefaults(t *testing.T) {
	desc, err := Resolve(nil)
	require.NoError(t, err)

	assert.Equal(t, ModeSentinel, desc.Mode)
	assert.Equal(t, "mymaster", desc.MasterName)
	assert.True(t, desc.LazyConnect)
	assert.Same(t, log.G, desc.Logger)
	assert.Equal(t, []Addr{
		{Host: "127.0.0.1", Port: 57780},
		{Host: "127.0.0.1", Port: 57781},
		{Host: "127.0.0.1", Port: 57782},
	}, desc.Sentinels)
	assert.Empty(t, desc.Host)
	assert.Zero(t, desc.Port)
	assert.Empty(t, desc.Addr())
}

func TestResolveEmptyOptionsUsesDefaults(t *testing.T) {
	desc, err := Resolve(&Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeSentinel, desc.Mode)
	assert.Len(t, desc.Sentinels, 3)
}

func TestResolveDefaultsNotShared(t *testing.T) {
	opts := DefaultOptions()
	opts.Sentinels[0] = "10.0.0.1:1"
	assert.Equal(t, "127.0.0.1:57780", DefaultSentinels[0])
}

func TestResolveSentinels(t *testing.T) {
	logger := log.Nop()
	desc, err := Resolve(&Options{
		Logger:      logger,
		Name:        "cache",
		Sentinels:   []string{"10.0.0.1:26379", Addr{Host: "10.0.0.2", Port: 26380}.String()},
		LazyConnect: Bool(false),
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSentinel, desc.Mode)
	assert.Equal(t, "cache", desc.MasterName)
	assert.False(t, desc.LazyConnect)
	assert.Same(t, logger, desc.Logger)
	assert.Equal(t, []string{"10.0.0.1:26379", "10.0.0.2:26380"}, desc.SentinelAddrs())
}

func TestResolveDirectWins(t *testing.T) {
	desc, err := Resolve(&Options{
		Sentinels: []string{"10.0.0.1:26379"},
		Host:      "10.0.0.9",
		Port:      6379,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeDirect, desc.Mode)
	assert.Empty(t, desc.Sentinels)
	assert.Equal(t, "10.0.0.9:6379", desc.Addr())
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name  string
		opts  *Options
		field string
	}{
		{"bad port", &Options{Host: "h", Port: 0}, "port"},
		{"port too large", &Options{Host: "h", Port: 70000}, "port"},
		{"empty sentinels", &Options{Sentinels: []string{}}, "sentinels"},
		{"non numeric sentinel port", &Options{Sentinels: []string{"h:abc"}}, "sentinels[0]"},
		{"missing sentinel port", &Options{Sentinels: []string{"127.0.0.1:1", "localhost"}}, "sentinels[1]"},
		{"negative db", &Options{DB: -1}, "db"},
		{"negative timeout", &Options{ReadTimeout: -time.Second}, "timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, tc.field, errors.FromError(err).GetMetadata()["field"])
		})
	}
}

func TestParseAddr(t *testing.T) {
	addr, err := ParseAddr("127.0.0.1:57780")
	require.NoError(t, err)
	assert.Equal(t, Addr{Host: "127.0.0.1", Port: 57780}, addr)

	addr, err = ParseAddr("[::1]:26379")
	require.NoError(t, err)
	assert.Equal(t, "::1", addr.Host)
	assert.Equal(t, "[::1]:26379", addr.String())

	_, err = ParseAddr("host:port")
	assert.Error(t, err)
	_, err = ParseAddr("nohost")
	assert.Error(t, err)
}

func TestResolveMap(t *testing.T) {
	logger := log.Nop()
	desc, err := ResolveMap(map[string]any{
		"logger": logger,
		"name":   "mymaster",
		"sentinels": []any{
			map[string]any{"host": "127.0.0.1", "port": 57780},
			"127.0.0.1:57781",
			map[string]any{"host": "127.0.0.1", "port": float64(57782)},
		},
		"lazyConnect":  false,
		"password":     "secret",
		"db":           float64(2),
		"dialTimeout":  "2s",
		"readTimeout":  500,
		"writeTimeout": 250 * time.Millisecond,
		"unknown":      "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSentinel, desc.Mode)
	assert.Equal(t, []string{"127.0.0.1:57780", "127.0.0.1:57781", "127.0.0.1:57782"}, desc.SentinelAddrs())
	assert.False(t, desc.LazyConnect)
	assert.Same(t, logger, desc.Logger)
	assert.Equal(t, "secret", desc.Password)
	assert.Equal(t, 2, desc.DB)
	assert.Equal(t, 2*time.Second, desc.DialTimeout)
	assert.Equal(t, 500*time.Millisecond, desc.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, desc.WriteTimeout)
}

func TestResolveMapNil(t *testing.T) {
	desc, err := ResolveMap(nil)
	require.NoError(t, err)
	assert.Equal(t, ModeSentinel, desc.Mode)
}

func TestResolveMapModeIsSentinelIffNoHost(t *testing.T) {
	inputs := []map[string]any{
		{},
		{"name": "x"},
		{"sentinels": []string{"1.2.3.4:5"}},
		{"host": "h", "port": 1},
		{"host": "h", "port": 6379, "sentinels": []string{"1.2.3.4:5"}},
		{"sentinels": []string{"1.2.3.4:5"}, "lazyConnect": true, "host": "h", "port": 2},
	}

	for _, raw := range inputs {
		desc, err := ResolveMap(raw)
		require.NoError(t, err)

		_, hasHost := raw["host"]
		if hasHost {
			assert.Equal(t, ModeDirect, desc.Mode)
			assert.Empty(t, desc.Sentinels)
		} else {
			assert.Equal(t, ModeSentinel, desc.Mode)
			assert.NotEmpty(t, desc.Sentinels)
		}
	}
}

func TestResolveMapTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"logger", map[string]any{"logger": "stdout"}, "logger"},
		{"name", map[string]any{"name": 1}, "name"},
		{"sentinels not a list", map[string]any{"sentinels": "127.0.0.1:1"}, "sentinels"},
		{"sentinel bad element", map[string]any{"sentinels": []any{42}}, "sentinels[0]"},
		{"sentinel host", map[string]any{"sentinels": []any{map[string]any{"host": 1, "port": 1}}}, "sentinels[0].host"},
		{"sentinel port", map[string]any{"sentinels": []any{map[string]any{"host": "h", "port": "1"}}}, "sentinels[0].port"},
		{"sentinel string port", map[string]any{"sentinels": []any{"h:x"}}, "sentinels[0]"},
		{"host", map[string]any{"host": 1, "port": 1}, "host"},
		{"empty host", map[string]any{"host": "", "port": 6379}, "host"},
		{"port missing", map[string]any{"host": "h"}, "port"},
		{"port string", map[string]any{"host": "h", "port": "6379"}, "port"},
		{"port fraction", map[string]any{"host": "h", "port": 6379.5}, "port"},
		{"lazyConnect", map[string]any{"lazyConnect": "yes"}, "lazyConnect"},
		{"password", map[string]any{"password": 123}, "password"},
		{"db", map[string]any{"db": "0"}, "db"},
		{"dialTimeout", map[string]any{"dialTimeout": "soon"}, "dialTimeout"},
		{"readTimeout", map[string]any{"readTimeout": true}, "readTimeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveMap(tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, tc.field, errors.FromError(err).GetMetadata()["field"])
		})
	}
}
