package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/log"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	driver := NewMemoryDriver()

	client, err := New(&Options{Logger: log.Nop()}, WithDriver(driver), WithMetrics(registry))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Set(ctx, "k", "v")
	require.NoError(t, err)
	_, _, err = client.Get(ctx, "k")
	require.NoError(t, err)

	driver.FailNext(errors.New("boom"))
	_, _, err = client.Get(ctx, "k")
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.commands.WithLabelValues("set")))
	assert.Equal(t, float64(2), testutil.ToFloat64(client.metrics.commands.WithLabelValues("get")))
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.failures.WithLabelValues("get", "-2610")))
	assert.Equal(t, 2, testutil.CollectAndCount(client.metrics.duration))
}

func TestMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()

	m1, err := NewMetrics(registry)
	require.NoError(t, err)
	m2, err := NewMetrics(registry)
	require.NoError(t, err)

	assert.Same(t, m1.commands, m2.commands)
	assert.Same(t, m1.duration, m2.duration)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe("get", 0, 0) })
}
