package redis

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 命令级 Prometheus 指标
type Metrics struct {
	commands *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics 创建并注册指标；同名指标已注册时复用已有的 collector
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rediskit",
			Name:      "commands_total",
			Help:      "Number of commands issued through the client.",
		}, []string{"command"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rediskit",
			Name:      "command_errors_total",
			Help:      "Number of commands that resolved to a catalog error code.",
		}, []string{"command", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rediskit",
			Name:      "command_duration_seconds",
			Help:      "Time spent waiting for the driver reply.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"command"}),
	}

	var err error
	if m.commands, err = register(registerer, m.commands); err != nil {
		return nil, err
	}
	if m.failures, err = register(registerer, m.failures); err != nil {
		return nil, err
	}
	if m.duration, err = register(registerer, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observe 记录一条命令；m 为 nil 时不做任何事
// code 为 0 表示成功
func (m *Metrics) observe(command string, elapsed time.Duration, code int) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
	if code != 0 {
		m.failures.WithLabelValues(command, strconv.Itoa(code)).Inc()
	}
}
