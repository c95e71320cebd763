package redis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

// State 客户端生命周期状态
type State int32

const (
	StateCreated State = iota
	StateOpening
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client 命令门面，持有唯一的驱动实例
// 所有命令都返回 (值, error)，error 非 nil 时一定是带目录错误码的 *errors.Error
// 可并发使用，命令不做串行化，交给驱动复用连接
type Client struct {
	id      string
	desc    Descriptor
	driver  Driver
	logger  *log.Logger
	metrics *Metrics

	mu    sync.Mutex // 保护 Open/Close
	state atomic.Int32
}

// New 解析配置并创建客户端
// LazyConnect 为 false 时立即连接，连接失败返回错误
func New(opts *Options, options ...Option) (*Client, error) {
	desc, err := Resolve(opts)
	if err != nil {
		return nil, err
	}
	return NewFromDescriptor(desc, options...)
}

// NewFromDescriptor 使用已解析的描述创建客户端，通常与 ResolveMap 配合
// 未通过 WithDriver 指定驱动时创建 go-redis 驱动
func NewFromDescriptor(desc Descriptor, options ...Option) (*Client, error) {
	var err error
	o := applyOptions(options)
	driver := o.driver
	if driver == nil {
		if driver, err = newGoRedisDriver(desc, o); err != nil {
			return nil, err
		}
	}

	client, err := newClient(desc, driver, o)
	if err != nil {
		driver.Disconnect()
		return nil, err
	}

	if !desc.LazyConnect {
		if err := client.Open(context.Background()); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

// NewWithDriver 使用已解析的描述和现成的驱动创建客户端，不会自动连接
func NewWithDriver(desc Descriptor, driver Driver, options ...Option) (*Client, error) {
	if driver == nil {
		return nil, ErrNilDriver
	}
	return newClient(desc, driver, applyOptions(options))
}

func newClient(desc Descriptor, driver Driver, o *clientOptions) (*Client, error) {
	logger := desc.Logger
	if logger == nil {
		logger = log.G
	}

	c := &Client{
		id:     uuid.NewString(),
		desc:   desc,
		driver: driver,
	}
	c.logger = logger.Context("redis-client").WithStr("client_id", c.id)

	if o.registerer != nil {
		metrics, err := NewMetrics(o.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = metrics
	}

	// 连接级错误只记录日志，不影响状态也不传递给调用方
	driver.OnError(func(err error) {
		c.logger.Error().Err(err).Str("state", c.State().String()).Msg("redis connection error")
	})

	c.logger.Debug().Str("mode", desc.Mode.String()).Str("master", desc.MasterName).Strs("sentinels", desc.SentinelAddrs()).Str("addr", desc.Addr()).Msg("redis client created")
	return c, nil
}

// ID 返回客户端实例 ID，出现在每条日志的 client_id 字段
func (c *Client) ID() string {
	return c.id
}

// Descriptor 返回连接描述
func (c *Client) Descriptor() Descriptor {
	return c.desc
}

// State 返回当前生命周期状态
func (c *Client) State() State {
	return State(c.state.Load())
}

// Open 建立连接：Created → Opening → Open
// 失败时回到 Created，可以重试；已关闭的客户端返回 NOT_CONNECTED
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateOpen:
		return nil
	case StateClosed:
		return errors.NotConnectedError("open", "")
	}

	c.state.Store(int32(StateOpening))
	if err := c.driver.Connect(ctx); err != nil {
		c.state.Store(int32(StateCreated))
		c.logger.Error().Err(err).Msg("redis connect failed")
		return errors.Wrap(err, errors.NotConnected, "%s", errors.Format(errors.NotConnected, "open", ""))
	}

	c.state.Store(int32(StateOpen))
	c.logger.Debug().Msg("redis client opened")
	return nil
}

// Close 断开连接，重复调用无副作用
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateClosed {
		return nil
	}

	c.state.Store(int32(StateClosed))
	err := c.driver.Disconnect()
	c.logger.Debug().Msg("redis client closed")
	return err
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.State() == StateClosed
}

// do 执行一条命令并统一错误：
// 关闭后拒绝执行；驱动错误记录一条 error 日志后转换为 SEND_COMMAND_ERROR
func (c *Client) do(ctx context.Context, command string, args ...any) (any, error) {
	key := ""
	if len(args) > 0 {
		key = argString(args[0])
	}

	if c.State() == StateClosed {
		err := errors.NotConnectedError(command, key)
		c.logger.Error().Str("command", command).Str("key", key).Int("code", err.Code).Msg(err.Message)
		c.metrics.observe(command, 0, err.Code)
		return nil, err
	}

	start := time.Now()
	res, err := c.driver.Do(ctx, append([]any{command}, args...)...)
	if err != nil {
		c.metrics.observe(command, time.Since(start), errors.SendCommandError)
		return nil, c.fail(command, key, err)
	}

	c.metrics.observe(command, time.Since(start), 0)
	return res, nil
}

func (c *Client) fail(command, key string, cause error) error {
	c.logger.Error().Str("command", command).Str("key", key).Err(cause).Msg(errors.Format(errors.SendCommandError, command, key, cause))
	return errors.SendCommand(command, key, cause)
}

// unexpected 结果类型不符时按命令失败处理
func (c *Client) unexpected(command, key string, reply any) error {
	return c.fail(command, key, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply))
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping")
	return err
}

// Set 设置字符串值，opts 原样透传（如 "PX", 100, "NX"）
// 服务端回复 OK 时返回 true
func (c *Client) Set(ctx context.Context, key, value string, opts ...any) (bool, error) {
	args := append([]any{key, value}, opts...)
	res, err := c.do(ctx, "set", args...)
	if err != nil {
		return false, err
	}
	return isOK(res), nil
}

// Get 获取字符串值，key 不存在时 ok 为 false
func (c *Client) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	res, err := c.do(ctx, "get", key)
	if err != nil || res == nil {
		return "", false, err
	}
	s, ok := toString(res)
	if !ok {
		return "", false, c.unexpected("get", key, res)
	}
	return s, true, nil
}

// HSet 设置哈希字段，新字段返回 1，更新返回 0
func (c *Client) HSet(ctx context.Context, key, field, value string) (int64, error) {
	res, err := c.do(ctx, "hset", key, field, value)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(res)
	if !ok {
		return 0, c.unexpected("hset", key, res)
	}
	return n, nil
}

// HGet 获取哈希字段，不存在时 ok 为 false
func (c *Client) HGet(ctx context.Context, key, field string) (value string, ok bool, err error) {
	res, err := c.do(ctx, "hget", key, field)
	if err != nil || res == nil {
		return "", false, err
	}
	s, ok := toString(res)
	if !ok {
		return "", false, c.unexpected("hget", key, res)
	}
	return s, true, nil
}

// HGetAll 获取哈希的全部字段
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := c.do(ctx, "hgetall", key)
	if err != nil {
		return nil, err
	}
	m, ok := toStringMap(res)
	if !ok {
		return nil, c.unexpected("hgetall", key, res)
	}
	return m, nil
}

// HDel 删除哈希字段，返回实际删除的数量
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	args := make([]any, 0, len(fields)+1)
	args = append(args, key)
	for _, f := range fields {
		args = append(args, f)
	}

	res, err := c.do(ctx, "hdel", args...)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(res)
	if !ok {
		return 0, c.unexpected("hdel", key, res)
	}
	return n, nil
}

// LPush 依次插入到列表头部，返回新长度
func (c *Client) LPush(ctx context.Context, key string, values ...any) (int64, error) {
	args := make([]any, 0, len(values)+1)
	args = append(args, key)
	args = append(args, values...)

	res, err := c.do(ctx, "lpush", args...)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(res)
	if !ok {
		return 0, c.unexpected("lpush", key, res)
	}
	return n, nil
}

// LTrim 裁剪列表到 [start, stop]，负数表示从尾部计数
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) (bool, error) {
	res, err := c.do(ctx, "ltrim", key, start, stop)
	if err != nil {
		return false, err
	}
	return isOK(res), nil
}

// LRange 返回列表 [start, stop] 区间的元素
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	res, err := c.do(ctx, "lrange", key, start, stop)
	if err != nil {
		return nil, err
	}
	list, ok := toStringSlice(res)
	if !ok {
		return nil, c.unexpected("lrange", key, res)
	}
	return list, nil
}

// Delete 删除 key，返回实际删除的数量
func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	res, err := c.do(ctx, "del", args...)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(res)
	if !ok {
		return 0, c.unexpected("del", firstOrEmpty(keys), res)
	}
	return n, nil
}

func firstOrEmpty(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
