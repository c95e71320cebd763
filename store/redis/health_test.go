package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/log"
)

type flakyPinger struct {
	fail atomic.Bool
	hits atomic.Int32
}

func (p *flakyPinger) Ping(context.Context) error {
	p.hits.Add(1)
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthCheckerNotStarted(t *testing.T) {
	hc := NewHealthChecker(&flakyPinger{}, time.Second, nil)

	status := hc.GetStatus()
	assert.False(t, status.Healthy)
	assert.Equal(t, "not checked yet", status.ErrorMessage)

	// 未启动时 Stop 不阻塞
	require.NoError(t, hc.Stop())
}

func TestHealthCheckerTransitions(t *testing.T) {
	p := &flakyPinger{}
	p.fail.Store(true)

	hc := NewHealthChecker(p, 10*time.Millisecond, log.Nop())
	require.NoError(t, hc.Start())
	require.NoError(t, hc.Start())
	defer hc.Stop()

	assert.False(t, hc.IsHealthy())
	assert.Equal(t, "connection refused", hc.GetStatus().ErrorMessage)

	p.fail.Store(false)
	assert.True(t, hc.WaitForHealthy(context.Background(), time.Second))
	assert.GreaterOrEqual(t, p.hits.Load(), int32(2))

	require.NoError(t, hc.Stop())
	require.NoError(t, hc.Stop())
}

func TestHealthCheckerRestart(t *testing.T) {
	p := &flakyPinger{}
	hc := NewHealthChecker(p, 5*time.Millisecond, log.Nop())

	for range 3 {
		require.NoError(t, hc.Start())
		assert.True(t, hc.IsHealthy())
		require.NoError(t, hc.Stop())
	}

	// 重启后仍会按 interval 继续检查
	require.NoError(t, hc.Start())
	defer hc.Stop()
	p.fail.Store(true)
	assert.Eventually(t, func() bool { return !hc.IsHealthy() }, time.Second, 5*time.Millisecond)
}

func TestHealthCheckerWaitTimeout(t *testing.T) {
	p := &flakyPinger{}
	p.fail.Store(true)

	hc := NewHealthChecker(p, time.Hour, nil)
	require.NoError(t, hc.Start())
	defer hc.Stop()

	assert.False(t, hc.WaitForHealthy(context.Background(), 30*time.Millisecond))
}

func TestHealthCheckerWithClient(t *testing.T) {
	driver := NewMemoryDriver()
	client, err := New(&Options{Logger: log.Nop()}, WithDriver(driver))
	require.NoError(t, err)

	hc := NewHealthChecker(client, time.Hour, nil)
	require.NoError(t, hc.Start())
	assert.True(t, hc.IsHealthy())
	require.NoError(t, hc.Stop())

	require.NoError(t, client.Close())
	hc = NewHealthChecker(client, time.Hour, nil)
	require.NoError(t, hc.Start())
	defer hc.Stop()
	assert.False(t, hc.IsHealthy())
}
