package redis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Option 客户端与驱动的可选项
type Option func(*clientOptions)

type clientOptions struct {
	// 驱动
	driver   Driver
	poolSize int
	hooks    []redis.Hook

	// 可观测性
	enableTracing     bool
	enableOTelMetrics bool
	enableDebug       bool
	tracingOpts       []redisotel.TracingOption
	otelMetricsOpts   []redisotel.MetricsOption
	slowQueryThresh   time.Duration
	registerer        prometheus.Registerer
}

// WithDriver 使用自定义驱动（例如 MemoryDriver），忽略其余驱动相关选项
func WithDriver(driver Driver) Option {
	return func(o *clientOptions) {
		o.driver = driver
	}
}

// WithPoolSize 设置连接池大小，0 表示 10 * GOMAXPROCS
func WithPoolSize(size int) Option {
	return func(o *clientOptions) {
		o.poolSize = size
	}
}

// WithHooks 添加自定义 go-redis Hooks
func WithHooks(hooks ...redis.Hook) Option {
	return func(o *clientOptions) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithTracing 启用 OpenTelemetry 分布式追踪
func WithTracing(opts ...redisotel.TracingOption) Option {
	return func(o *clientOptions) {
		o.enableTracing = true
		o.tracingOpts = opts
	}
}

// WithOTelMetrics 启用 OpenTelemetry 连接池与命令指标
func WithOTelMetrics(opts ...redisotel.MetricsOption) Option {
	return func(o *clientOptions) {
		o.enableOTelMetrics = true
		o.otelMetricsOpts = opts
	}
}

// WithDebug 启用调试日志（每条命令一条 debug 日志 + 慢查询告警）
// slowQueryThreshold 为 0 表示不检测慢查询
func WithDebug(slowQueryThreshold ...time.Duration) Option {
	return func(o *clientOptions) {
		o.enableDebug = true
		if len(slowQueryThreshold) > 0 {
			o.slowQueryThresh = slowQueryThreshold[0]
		}
	}
}

// WithMetrics 将命令计数、错误计数和耗时注册到 Prometheus
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *clientOptions) {
		o.registerer = registerer
	}
}

func applyOptions(opts []Option) *clientOptions {
	o := &clientOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
