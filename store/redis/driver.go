package redis

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Driver 存储驱动，持有真正的网络连接
// 哨兵发现、故障转移和协议编解码都由驱动负责
type Driver interface {
	// Connect 建立连接（直连或经哨兵发现主节点）
	Connect(ctx context.Context) error

	// Disconnect 断开连接，之后的 Do 返回 ErrDriverClosed
	Disconnect() error

	// Do 执行一条命令，args[0] 为命令名
	// key 不存在时返回 (nil, nil)
	Do(ctx context.Context, args ...any) (any, error)

	// OnError 注册连接级错误的回调，这些错误不属于任何一条命令
	OnError(handler func(error))
}

// errorHandlers 连接级错误回调，驱动实现共用
type errorHandlers struct {
	mu       sync.RWMutex
	handlers []func(error)
}

func (h *errorHandlers) add(handler func(error)) {
	if handler == nil {
		return
	}
	h.mu.Lock()
	h.handlers = append(h.handlers, handler)
	h.mu.Unlock()
}

func (h *errorHandlers) emit(err error) {
	h.mu.RLock()
	handlers := h.handlers
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(err)
	}
}

// goRedisDriver 基于 go-redis 的驱动
// 哨兵模式使用 FailoverClient，直连模式使用普通 Client
type goRedisDriver struct {
	client *redis.Client
	errs   errorHandlers
}

var _ Driver = (*goRedisDriver)(nil)

// NewDriver 根据连接描述创建 go-redis 驱动
// 创建时不会建立连接，go-redis 在第一次命令或 Connect 时拨号
func NewDriver(desc Descriptor, opts ...Option) (Driver, error) {
	d, err := newGoRedisDriver(desc, applyOptions(opts))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newGoRedisDriver(desc Descriptor, o *clientOptions) (*goRedisDriver, error) {
	poolSize := o.poolSize
	if poolSize == 0 {
		poolSize = 10 * runtime.GOMAXPROCS(0)
	}

	var client *redis.Client
	switch desc.Mode {
	case ModeDirect:
		client = redis.NewClient(&redis.Options{
			Addr:         desc.Addr(),
			Username:     desc.Username,
			Password:     desc.Password,
			DB:           desc.DB,
			DialTimeout:  desc.DialTimeout,
			ReadTimeout:  desc.ReadTimeout,
			WriteTimeout: desc.WriteTimeout,
			PoolSize:     poolSize,
		})
	case ModeSentinel:
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       desc.MasterName,
			SentinelAddrs:    desc.SentinelAddrs(),
			SentinelPassword: desc.SentinelPassword,
			Username:         desc.Username,
			Password:         desc.Password,
			DB:               desc.DB,
			DialTimeout:      desc.DialTimeout,
			ReadTimeout:      desc.ReadTimeout,
			WriteTimeout:     desc.WriteTimeout,
			PoolSize:         poolSize,
		})
	default:
		return nil, ErrInvalidConfig
	}

	d := &goRedisDriver{client: client}

	var success bool
	defer func() {
		if !success {
			client.Close()
		}
	}()

	if err := d.setupHooks(desc, o); err != nil {
		return nil, err
	}

	success = true
	return d, nil
}

func (d *goRedisDriver) setupHooks(desc Descriptor, o *clientOptions) error {
	// 拨号失败作为连接级错误上报
	d.client.AddHook(&connErrorHook{emit: d.errs.emit})

	for _, hook := range o.hooks {
		d.client.AddHook(hook)
	}

	if o.enableTracing {
		if err := redisotel.InstrumentTracing(d.client, o.tracingOpts...); err != nil {
			return err
		}
	}

	if o.enableOTelMetrics {
		if err := redisotel.InstrumentMetrics(d.client, o.otelMetricsOpts...); err != nil {
			return err
		}
	}

	if o.enableDebug {
		d.client.AddHook(NewDebugHook(desc.Logger, o.slowQueryThresh))
	}

	return nil
}

func (d *goRedisDriver) Connect(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *goRedisDriver) Disconnect() error {
	return d.client.Close()
}

func (d *goRedisDriver) Do(ctx context.Context, args ...any) (any, error) {
	res, err := d.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return res, err
}

func (d *goRedisDriver) OnError(handler func(error)) {
	d.errs.add(handler)
}

// PoolStats 返回连接池统计
func (d *goRedisDriver) PoolStats() *redis.PoolStats {
	return d.client.PoolStats()
}
